package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/presence/apps/api/echo"
	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	"github.com/trezcool/presence/core/user"
	logsvc "github.com/trezcool/presence/services/logger"
	"github.com/trezcool/presence/services/metrics"
	"github.com/trezcool/presence/storage/database"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	sqlxrepos "github.com/trezcool/presence/storage/database/sqlx"
)

// store is what the services need from a database engine.
type store interface {
	user.Repository
	class.Repository
	student.Repository
	subject.Repository
	session.Repository
	session.References
	attendance.Repository
	attendance.References
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger.Enable(!conf.Debug)
	defer logger.Close()

	var db store
	var dbCheck func(ctx context.Context) error
	if conf.Database.InMemory() {
		logger.Warn("using the in-memory database: data will not survive a restart")
		db = inmemdb.Open()
	} else {
		sqlDB, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = sqlDB.Close(); err != nil {
				logger.Error("failed to close database", err)
			}
		}()
		db = sqlxrepos.NewStore(sqlDB)
		dbCheck = func(ctx context.Context) error { return database.StatusCheck(ctx, sqlDB) }
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		DBCheck:       dbCheck,
		UserSvc:       user.NewService(db),
		ClassSvc:      class.NewService(db),
		StudentSvc:    student.NewService(db, db),
		SubjectSvc:    subject.NewService(db),
		SessionSvc:    session.NewService(db, db),
		AttendanceSvc: attendance.NewService(db, db),
	})

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*6)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db.DB, 10); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
