package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tailwebs/classwork/core"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		DB             *inmemdb.DB
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts    *Options
		app     *echo.Echo
		auth    *jwtAuth
		metrics *metrics
	}
)

var _ Server = (*server)(nil)

// NewServer returns the classwork API backed by opts.DB.
func NewServer(opts *Options) Server {
	s := &server{
		opts:    opts,
		app:     echo.New(),
		auth:    newJWTAuth(opts.Conf),
		metrics: newMetrics(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	users := inmemdb.NewUserRepository(s.opts.DB)
	assignments := inmemdb.NewAssignmentRepository(s.opts.DB)
	submissions := inmemdb.NewSubmissionRepository(s.opts.DB)

	api := s.app.Group("/api")
	jwt := s.auth.middleware()

	registerUserAPI(api, users, s.auth)
	registerAssignmentAPI(api, jwt, &assignmentApi{
		repo:    assignments,
		subs:    submissions,
		metrics: s.metrics,
	})
	registerSubmissionAPI(api, jwt, &submissionApi{
		repo:        submissions,
		assignments: assignments,
		users:       users,
		metrics:     s.metrics,
	})
}

func (s *server) Start() error {
	s.opts.Logger.Info("api listening", map[string]interface{}{"address": s.opts.Conf.Server.Address})
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Classwork API!")
}
