package scraper

import (
	"context"

	"github.com/jimezsa/jobagg/internal/models"
)

// Scraper is a source adapter: one upstream job board behind a single
// Fetch capability. Implementations must honor ctx cancellation.
type Scraper interface {
	Name() string
	Fetch(ctx context.Context, query models.Query) ([]models.JobPosting, error)
}
