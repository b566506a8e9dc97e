package adzuna

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{AppID: "id"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("NewClient() error = %v, want ErrMissingCredentials", err)
	}
}

func TestSearchJobs(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "count": 2,
  "results": [
    {"id": "42", "title": " Go Developer ", "company": {"display_name": "Acme"},
     "location": {"display_name": "Austin, TX"}, "description": "Remote friendly team",
     "redirect_url": "https://adzuna.example/42", "created": "2024-01-15T10:00:00Z",
     "contract_time": "full_time", "salary_min": 90000},
    {"title": "SRE", "company": {"display_name": "Beta"}, "location": {"display_name": "Denver"},
     "redirect_url": "https://adzuna.example/43"}
  ]
}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{AppID: "id", AppKey: "key", Country: "GB", BaseURL: srv.URL + "/", PageSize: 80})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	jobs, err := client.SearchJobs(context.Background(), SearchParams{What: "golang", Where: "London", RemoteOnly: true})
	if err != nil {
		t.Fatalf("SearchJobs() error = %v", err)
	}

	if gotPath != "/v1/api/jobs/gb/search/1" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	for _, part := range []string{"what=golang", "where=London", "results_per_page=50", "title_only=remote", "app_id=id"} {
		if !strings.Contains(gotQuery, part) {
			t.Fatalf("query %q missing %q", gotQuery, part)
		}
	}

	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Title != "Go Developer" || jobs[0].CompanyName != "Acme" {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}
	if jobs[0].SalaryMin == nil || *jobs[0].SalaryMin != 90000 {
		t.Fatalf("expected salary_min 90000, got %v", jobs[0].SalaryMin)
	}
	if jobs[1].ID == "" {
		t.Fatalf("expected generated id for result without id")
	}
	if jobs[1].SalaryMin != nil {
		t.Fatalf("expected nil salary for result without salary")
	}
}

func TestSearchJobsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(Config{AppID: "id", AppKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.SearchJobs(context.Background(), SearchParams{What: "go"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("SearchJobs() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("StatusCode = %d, want 401", statusErr.StatusCode)
	}
}

func TestSearchJobsRequiresQuery(t *testing.T) {
	client, err := NewClient(Config{AppID: "id", AppKey: "key"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.SearchJobs(context.Background(), SearchParams{What: "  "}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestSearchJobsIntegration(t *testing.T) {
	appID := os.Getenv("ADZUNA_APP_ID")
	appKey := os.Getenv("ADZUNA_APP_KEY")
	if appID == "" || appKey == "" {
		t.Skip("ADZUNA_APP_ID and ADZUNA_APP_KEY must be set to run this test")
	}

	client, err := NewClient(Config{AppID: appID, AppKey: appKey, Country: os.Getenv("ADZUNA_COUNTRY")})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	jobs, err := client.SearchJobs(ctx, SearchParams{What: "software engineer", Where: "Oregon"})
	if err != nil {
		t.Fatalf("SearchJobs: %v", err)
	}
	t.Logf("Adzuna search returned %d jobs", len(jobs))
}
