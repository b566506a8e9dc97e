package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/network"
)

const (
	linkedInSearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInDetailAPI = "https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/"
	// linkedInDetailLimit caps the per-job description requests for one search.
	linkedInDetailLimit = 10
)

var linkedInJobID = regexp.MustCompile(`(\d{6,})(?:[/?#]|$)`)

type LinkedIn struct {
	client *network.Client
}

func NewLinkedIn(client *network.Client) *LinkedIn {
	return &LinkedIn{client: client}
}

func (l *LinkedIn) Name() string {
	return SiteLinkedIn
}

func (l *LinkedIn) Fetch(ctx context.Context, query models.Query) ([]models.JobPosting, error) {
	doc, err := fetchDocument(ctx, l.client, buildLinkedInURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("linkedin: %w", err)
	}

	jobs := dedupeJobs(parseLinkedInJobs(doc))
	if query.RemoteOnly {
		jobs = filterRemote(jobs)
	}

	for i := range limitJobs(jobs, linkedInDetailLimit) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detailURL := linkedInDetailURL(jobs[i].URL)
		if detailURL == "" {
			continue
		}
		detail, err := fetchDocument(ctx, l.client, detailURL, nil)
		if err != nil {
			// Cards without a description are still useful.
			continue
		}
		if desc := parseLinkedInDescription(detail); desc != "" {
			jobs[i].Description = truncate(desc, descriptionLimit)
			jobs[i].Requirements = desc
			jobs[i].Remote = jobs[i].Remote || isRemote(desc)
		}
	}
	return jobs, nil
}

func buildLinkedInURL(query models.Query) string {
	values := url.Values{}
	values.Set("keywords", query.Keywords)
	if query.Location != "" {
		values.Set("location", query.Location)
	}
	if query.RemoteOnly {
		values.Set("f_WT", "2")
	}
	return linkedInSearchURL + "?" + values.Encode()
}

func parseLinkedInJobs(doc *goquery.Document) []models.JobPosting {
	var jobs []models.JobPosting
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.base-card__full-link").First().AttrOr("href", "")
		title := cleanText(s.Find("h3.base-search-card__title").First().Text())
		if link == "" || title == "" {
			return
		}

		location := cleanText(s.Find("span.job-search-card__location").First().Text())
		snippet := cleanText(s.Find(".job-search-card__snippet").First().Text())
		salary := cleanText(s.Find(".job-search-card__salary-info").First().Text())

		jobs = append(jobs, models.JobPosting{
			Source:      SiteLinkedIn,
			Title:       title,
			Company:     cleanText(s.Find("h4.base-search-card__subtitle").First().Text()),
			Location:    location,
			URL:         strings.TrimSpace(link),
			Description: snippet,
			Salary:      models.SalaryText(salary),
			PostedDate:  s.Find("time[datetime]").First().AttrOr("datetime", ""),
			Remote:      isRemote(location, snippet),
		})
	})
	return jobs
}

// linkedInDetailURL maps a public job view URL to the guest detail endpoint.
func linkedInDetailURL(viewURL string) string {
	parsed, err := url.Parse(viewURL)
	if err != nil {
		return ""
	}
	match := linkedInJobID.FindStringSubmatch(parsed.Path)
	if match == nil {
		return ""
	}
	return linkedInDetailAPI + match[1]
}

func parseLinkedInDescription(doc *goquery.Document) string {
	return cleanText(doc.Find(".show-more-less-html__markup").First().Text())
}
