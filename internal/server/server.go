package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/search"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const UserHeader = "X-User-ID"

// Searcher is the part of the orchestrator the HTTP layer needs.
type Searcher interface {
	SearchWithReport(ctx context.Context, req models.SearchRequest, userID string) ([]models.JobPosting, search.Report, error)
	Usage(ctx context.Context, userID string) models.Usage
	Sources() []string
	DefaultSources() []string
}

type Options struct {
	DefaultUserID string
	Version       string
}

type Server struct {
	echo    *echo.Echo
	svc     Searcher
	opts    Options
	logger  zerolog.Logger
	started time.Time
}

func New(svc Searcher, opts Options, logger zerolog.Logger) *Server {
	if opts.DefaultUserID == "" {
		opts.DefaultUserID = "default"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		svc:     svc,
		opts:    opts,
		logger:  logger.With().Str("component", "http").Logger(),
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.Use(echomiddleware.Recover())
	s.echo.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(s.requestLogger())

	s.echo.GET("/health", s.health)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/search", s.search)
	v1.GET("/usage", s.usage)
	v1.GET("/sources", s.sources)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("server starting")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) userID(c echo.Context, fromBody string) string {
	for _, candidate := range []string{
		c.Request().Header.Get(UserHeader),
		fromBody,
		c.QueryParam("user_id"),
	} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return s.opts.DefaultUserID
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
