package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/search"
	"github.com/rs/zerolog"
)

type fakeSearcher struct {
	gotReq  models.SearchRequest
	gotUser string
	jobs    []models.JobPosting
	report  search.Report
	err     error
}

func (f *fakeSearcher) SearchWithReport(_ context.Context, req models.SearchRequest, userID string) ([]models.JobPosting, search.Report, error) {
	f.gotReq = req
	f.gotUser = userID
	return f.jobs, f.report, f.err
}

func (f *fakeSearcher) Usage(_ context.Context, userID string) models.Usage {
	f.gotUser = userID
	return models.Usage{UserID: userID, Today: 2, Total: 5, DailyLimit: 10, Remaining: 8}
}

func (f *fakeSearcher) Sources() []string { return []string{"adzuna", "linkedin"} }

func (f *fakeSearcher) DefaultSources() []string { return []string{"adzuna"} }

func do(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	svc := &fakeSearcher{
		jobs:   []models.JobPosting{{Title: "Go Dev", Source: "adzuna", Salary: models.SalaryAmount(50000)}},
		report: search.Report{SearchID: "abc", Sources: []search.SourceOutcome{{Source: "adzuna", Count: 1, Attempts: 1}}},
	}
	s := New(svc, Options{}, zerolog.Nop())

	rec := do(t, s, http.MethodPost, "/api/v1/search",
		`{"keywords":"go","location":"Berlin","remote_only":true,"sources":["adzuna"],"user_id":"bob"}`,
		map[string]string{UserHeader: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.gotUser != "alice" {
		t.Fatalf("header user should win, got %q", svc.gotUser)
	}
	if !svc.gotReq.RemoteOnly || svc.gotReq.Keywords != "go" || len(svc.gotReq.Sources) != 1 {
		t.Fatalf("unexpected request: %+v", svc.gotReq)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	var resp struct {
		SearchID string           `json:"search_id"`
		Count    int              `json:"count"`
		Jobs     []map[string]any `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SearchID != "abc" || resp.Count != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if salary, ok := resp.Jobs[0]["salary"].(float64); !ok || salary != 50000 {
		t.Fatalf("expected numeric salary, got %#v", resp.Jobs[0]["salary"])
	}
}

func TestSearchEndpointUserFallbacks(t *testing.T) {
	svc := &fakeSearcher{}
	s := New(svc, Options{DefaultUserID: "anon"}, zerolog.Nop())

	do(t, s, http.MethodPost, "/api/v1/search", `{"keywords":"go","location":"x","user_id":"bob"}`, nil)
	if svc.gotUser != "bob" {
		t.Fatalf("expected body user, got %q", svc.gotUser)
	}
	rec := do(t, s, http.MethodPost, "/api/v1/search", `{"keywords":"go","location":"x"}`, nil)
	if svc.gotUser != "anon" {
		t.Fatalf("expected default user, got %q", svc.gotUser)
	}
	if !strings.Contains(rec.Body.String(), `"jobs":[]`) {
		t.Fatalf("expected empty jobs array, got %s", rec.Body.String())
	}
}

func TestSearchEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad json", `{"keywords":`, nil, http.StatusBadRequest, "invalid_request"},
		{"validation", `{}`, &search.ValidationError{Field: "keywords", Reason: "is required"}, http.StatusBadRequest, "validation_failed"},
		{"quota", `{}`, &search.QuotaExceededError{UserID: "default", Limit: 1}, http.StatusTooManyRequests, "quota_exceeded"},
		{"other", `{}`, context.Canceled, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&fakeSearcher{err: tc.err}, Options{}, zerolog.Nop())
			rec := do(t, s, http.MethodPost, "/api/v1/search", tc.body, nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tc.code || resp.RequestID == "" {
				t.Fatalf("unexpected error body: %+v", resp)
			}
		})
	}
}

func TestUsageSourcesAndHealth(t *testing.T) {
	svc := &fakeSearcher{}
	s := New(svc, Options{Version: "1.2.3"}, zerolog.Nop())

	rec := do(t, s, http.MethodGet, "/api/v1/usage?user_id=carol", "", nil)
	if rec.Code != http.StatusOK || svc.gotUser != "carol" {
		t.Fatalf("usage status = %d user = %q", rec.Code, svc.gotUser)
	}
	var usage map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &usage)
	if usage["today_count"] != float64(2) || usage["total_count"] != float64(5) || usage["daily_limit"] != float64(10) {
		t.Fatalf("unexpected usage body: %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/v1/sources", "", nil)
	var sources sourcesResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &sources)
	if len(sources.Sources) != 2 || sources.Default[0] != "adzuna" {
		t.Fatalf("unexpected sources body: %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version":"1.2.3"`) {
		t.Fatalf("unexpected health: %d %s", rec.Code, rec.Body.String())
	}
}
