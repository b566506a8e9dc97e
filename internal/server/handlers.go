package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/search"
	"github.com/labstack/echo/v4"
)

type searchBody struct {
	models.SearchRequest
	UserID string `json:"user_id"`
}

type searchResponse struct {
	SearchID string                 `json:"search_id"`
	Count    int                    `json:"count"`
	CacheHit bool                   `json:"cache_hit"`
	Sources  []search.SourceOutcome `json:"sources"`
	Jobs     []models.JobPosting    `json:"jobs"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
	Default []string `json:"default"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
	Uptime  time.Duration `json:"uptime_ns"`
}

func (s *Server) search(c echo.Context) error {
	var body searchBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "invalid_request",
			Message:   "request body must be a JSON search request",
			RequestID: requestID(c),
		})
	}

	jobs, report, err := s.svc.SearchWithReport(c.Request().Context(), body.SearchRequest, s.userID(c, body.UserID))
	if err != nil {
		return s.searchError(c, err)
	}
	if jobs == nil {
		jobs = []models.JobPosting{}
	}

	return c.JSON(http.StatusOK, searchResponse{
		SearchID: report.SearchID,
		Count:    len(jobs),
		CacheHit: report.CacheHit,
		Sources:  report.Sources,
		Jobs:     jobs,
	})
}

func (s *Server) searchError(c echo.Context, err error) error {
	var validation *search.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "validation_failed",
			Message:   err.Error(),
			Field:     validation.Field,
			RequestID: requestID(c),
		})
	case errors.Is(err, search.ErrQuotaExceeded):
		return c.JSON(http.StatusTooManyRequests, errorResponse{
			Error:     "quota_exceeded",
			Message:   err.Error(),
			RequestID: requestID(c),
		})
	default:
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("search failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     "internal_error",
			Message:   "search failed",
			RequestID: requestID(c),
		})
	}
}

func (s *Server) usage(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Usage(c.Request().Context(), s.userID(c, "")))
}

func (s *Server) sources(c echo.Context) error {
	return c.JSON(http.StatusOK, sourcesResponse{
		Sources: s.svc.Sources(),
		Default: s.svc.DefaultSources(),
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.opts.Version,
		Uptime:  time.Since(s.started),
	})
}
