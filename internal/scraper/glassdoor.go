package scraper

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/network"
)

type Glassdoor struct {
	client *network.Client
}

func NewGlassdoor(client *network.Client) *Glassdoor {
	return &Glassdoor{client: client}
}

func (g *Glassdoor) Name() string {
	return SiteGlassdoor
}

func (g *Glassdoor) Fetch(ctx context.Context, query models.Query) ([]models.JobPosting, error) {
	doc, err := fetchDocument(ctx, g.client, buildGlassdoorURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("glassdoor: %w", err)
	}

	jobs := parseJSONLDJobs(doc, SiteGlassdoor)
	jobs = append(jobs, parseGlassdoorJobs(doc)...)
	jobs = dedupeJobs(jobs)

	if query.RemoteOnly {
		jobs = filterRemote(jobs)
	}
	return jobs, nil
}

func buildGlassdoorURL(query models.Query) string {
	values := url.Values{}
	values.Set("sc.keyword", query.Keywords)
	if query.Location != "" {
		values.Set("locKeyword", query.Location)
	}
	if query.RemoteOnly {
		values.Set("remoteWorkType", "1")
	}
	return fmt.Sprintf("https://www.glassdoor.com/Job/jobs.htm?%s", values.Encode())
}

func parseGlassdoorJobs(doc *goquery.Document) []models.JobPosting {
	var jobs []models.JobPosting

	doc.Find(".react-job-listing").Each(func(_ int, s *goquery.Selection) {
		title := cleanText(s.Find(".jobLink").First().Text())
		if title == "" {
			title = cleanText(s.Find("[data-test='job-title']").First().Text())
		}

		company := cleanText(s.Find(".jobEmployerName").First().Text())
		if company == "" {
			company = cleanText(s.Find("[data-test='job-link']").First().Text())
		}

		location := cleanText(s.Find(".jobLocation").First().Text())
		if location == "" {
			location = cleanText(s.Find("[data-test='emp-location']").First().Text())
		}

		salary := cleanText(s.Find(".salarySnippet").First().Text())
		link := absoluteURL("https://www.glassdoor.com", s.Find("a.jobLink").First().AttrOr("href", ""))

		if title == "" || link == "" {
			return
		}

		jobs = append(jobs, models.JobPosting{
			Source:     SiteGlassdoor,
			Title:      title,
			Company:    company,
			Location:   location,
			URL:        link,
			Salary:     models.SalaryText(salary),
			PostedDate: cleanText(s.Find("[data-test='job-age']").First().Text()),
			Remote:     isRemote(location),
		})
	})

	return jobs
}
