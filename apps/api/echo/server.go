package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/services/metrics"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		// DBCheck reports whether the database is reachable. It may be nil.
		DBCheck func(ctx context.Context) error

		UserSvc       *user.Service
		ClassSvc      *class.Service
		StudentSvc    *student.Service
		SubjectSvc    *subject.Service
		SessionSvc    *session.Service
		AttendanceSvc *attendance.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metrics.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/health", s.health)

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))

	registerAuthAPI(g, jwt, conf, s.deps.UserSvc)
	registerUserAPI(g, jwt, s.deps.UserSvc, s.deps.Validate)
	registerClassAPI(g, jwt, s.deps.ClassSvc, s.deps.Validate)
	registerStudentAPI(g, jwt, s.deps.StudentSvc, s.deps.Validate)
	registerSubjectAPI(g, jwt, s.deps.SubjectSvc, s.deps.Validate)
	registerSessionAPI(g, jwt, s.deps.SessionSvc, s.deps.Validate)
	registerAttendanceAPI(g, jwt, s.deps.AttendanceSvc, s.deps.ClassSvc)
}

// Start listens on the configured address; failures other than a shutdown are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the Server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

type healthResponse struct {
	Status   string `json:"status"`
	Build    string `json:"build"`
	Database string `json:"database"`
}

func (s *Server) health(ctx echo.Context) error {
	resp := healthResponse{Status: "ok", Build: s.deps.Conf.Build, Database: "ok"}
	if s.deps.DBCheck == nil {
		return ctx.JSON(http.StatusOK, resp)
	}

	c, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()
	start := time.Now()
	err := s.deps.DBCheck(c)
	metrics.ObserveDBPing(time.Since(start))
	if err != nil {
		s.deps.Logger.Warn("health check: database unreachable", errors.Wrap(err, "checking database"))
		resp.Status, resp.Database = "unavailable", "unreachable"
		return ctx.JSON(http.StatusServiceUnavailable, resp)
	}
	return ctx.JSON(http.StatusOK, resp)
}
