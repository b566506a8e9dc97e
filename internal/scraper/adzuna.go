package scraper

import (
	"context"
	"strings"

	"github.com/jimezsa/jobagg/internal/adzuna"
	"github.com/jimezsa/jobagg/internal/models"
)

// searchClient is the subset of the Adzuna client the adapter uses.
type searchClient interface {
	SearchJobs(ctx context.Context, params adzuna.SearchParams) ([]adzuna.Job, error)
}

// Adzuna adapts the Adzuna REST API. A nil client means credentials
// were not configured; Fetch then fails with adzuna.ErrMissingCredentials.
type Adzuna struct {
	client searchClient
}

func NewAdzuna(client searchClient) *Adzuna {
	return &Adzuna{client: client}
}

func (a *Adzuna) Name() string {
	return SiteAdzuna
}

func (a *Adzuna) Fetch(ctx context.Context, query models.Query) ([]models.JobPosting, error) {
	if a.client == nil {
		return nil, adzuna.ErrMissingCredentials
	}

	results, err := a.client.SearchJobs(ctx, adzuna.SearchParams{
		What:       query.Keywords,
		Where:      query.Location,
		RemoteOnly: query.RemoteOnly,
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]models.JobPosting, 0, len(results))
	for _, r := range results {
		job := models.JobPosting{
			Title:        r.Title,
			Company:      r.CompanyName,
			Location:     r.Location,
			Description:  r.Description,
			URL:          r.URL,
			Source:       SiteAdzuna,
			Remote:       query.RemoteOnly || mentionsRemote(r.Description),
			PostedDate:   r.Created,
			JobType:      r.ContractTime,
			Requirements: r.Description,
		}
		if r.SalaryMin != nil {
			job.Salary = models.SalaryAmount(*r.SalaryMin)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

var remoteTerms = []string{"remote", "home office", "work from home"}

func mentionsRemote(text string) bool {
	text = strings.ToLower(text)
	for _, term := range remoteTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
