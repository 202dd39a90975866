package logsvc

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
)

// RollbarLogger writes through zap and reports to Rollbar (and Sentry, when a DSN is set).
type RollbarLogger struct {
	zl     *zap.SugaredLogger
	sentry bool
}

var _ core.Logger = (*RollbarLogger)(nil)

// the rollbar client is process-wide and its transport can only be closed once.
var rollbarClose sync.Once

func NewRollbarLogger(conf *core.Config) (*RollbarLogger, error) {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	zl, err := newZap(conf)
	if err != nil {
		return nil, err
	}
	l := &RollbarLogger{zl: zl.Sugar()}

	if conf.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              conf.SentryDSN,
			Environment:      strings.ToLower(conf.Env),
			Release:          conf.Build,
			AttachStacktrace: true,
		})
		if err != nil {
			return nil, err
		}
		l.sentry = true
	}
	return l, nil
}

func newZap(conf *core.Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(conf.Log.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	var zc zap.Config
	if conf.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := zc.Build(zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}

	if conf.Log.File != "" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		file := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   conf.Log.File,
				MaxSize:    100, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}),
			level,
		)
		zl = zl.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, file)
		}))
	}
	return zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env)), nil
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close flushes buffered entries and pending reports.
func (l RollbarLogger) Close() {
	_ = l.zl.Sync()
	rollbarClose.Do(rollbar.Close)
	if l.sentry {
		sentry.Flush(2 * time.Second)
	}
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) (rbArgs []interface{}, fields []interface{}, usr *user.User) {
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if usr == nil { // only set one User
				u := v
				usr = &u
				rollbar.SetPerson(strconv.Itoa(v.ID), v.Name, v.Email)
				fields = append(fields, "user_id", v.ID)
			}
			continue
		case error:
			fields = append(fields, "error", v)
		case map[string]interface{}:
			for k, val := range v {
				fields = append(fields, k, val)
			}
		default:
			fields = append(fields, "extra", v)
		}
		rbArgs = append(rbArgs, arg)
	}
	if usr == nil {
		rollbar.ClearPerson()
	}
	return rbArgs, fields, usr
}

func (l RollbarLogger) capture(msg string, level sentry.Level, args []interface{}, usr *user.User) {
	if !l.sentry {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if usr != nil {
			scope.SetUser(sentry.User{ID: strconv.Itoa(usr.ID), Email: usr.Email, Username: usr.Name})
		}
		for _, arg := range args {
			if err, ok := arg.(error); ok {
				scope.SetExtra("message", msg)
				sentry.CaptureException(err)
				return
			}
		}
		sentry.CaptureMessage(msg)
	})
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, fields, _ := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.zl.Debugw(msg, fields...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, fields, _ := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.zl.Infow(msg, fields...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, fields, usr := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.zl.Warnw(msg, fields...)
	l.capture(msg, sentry.LevelWarning, args, usr)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, fields, usr := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.zl.Errorw(msg, fields...)
	l.capture(msg, sentry.LevelError, args, usr)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, fields, usr := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	l.capture(msg, sentry.LevelFatal, args, usr)
	l.Close()
	l.zl.Errorw(msg, fields...)
	_ = l.zl.Sync()
	os.Exit(1)
}
