package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/network"
)

const indeedBaseURL = "https://www.indeed.com"

type Indeed struct {
	client *network.Client
}

func NewIndeed(client *network.Client) *Indeed {
	return &Indeed{client: client}
}

func (i *Indeed) Name() string {
	return SiteIndeed
}

func (i *Indeed) Fetch(ctx context.Context, query models.Query) ([]models.JobPosting, error) {
	doc, err := fetchDocument(ctx, i.client, buildIndeedURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("indeed: %w", err)
	}

	jobs := parseIndeedJobs(doc)
	if query.RemoteOnly {
		jobs = filterRemote(jobs)
	}
	return dedupeJobs(jobs), nil
}

func parseIndeedJobs(doc *goquery.Document) []models.JobPosting {
	var jobs []models.JobPosting
	doc.Find("a.tapItem").Each(func(_ int, s *goquery.Selection) {
		title := cleanText(s.Find("h2.jobTitle span").First().Text())
		company := cleanText(s.Find("span.companyName").First().Text())
		location := cleanText(s.Find("div.companyLocation").First().Text())
		snippet := normalizeSnippet(s.Find("div.job-snippet").Text())
		salary := cleanText(s.Find("div.salary-snippet").First().Text())
		link := absoluteURL(indeedBaseURL, s.AttrOr("href", ""))

		if title == "" || link == "" {
			return
		}

		jobs = append(jobs, models.JobPosting{
			Source:      SiteIndeed,
			Title:       title,
			Company:     company,
			Location:    location,
			URL:         link,
			Description: snippet,
			Salary:      models.SalaryText(salary),
			PostedDate:  cleanText(s.Find("span.date").First().Text()),
			Remote:      isRemote(location, snippet),
		})
	})
	return jobs
}

func buildIndeedURL(query models.Query) string {
	values := url.Values{}
	values.Set("q", query.Keywords)
	if query.Location != "" {
		values.Set("l", query.Location)
	}
	if query.RemoteOnly {
		// Indeed's "remote" attribute filter.
		values.Set("sc", "0kf:attr(DSQF7);")
	}
	return fmt.Sprintf("%s/jobs?%s", indeedBaseURL, values.Encode())
}

func normalizeSnippet(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
