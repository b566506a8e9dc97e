package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/network"
)

const descriptionLimit = 2000

// StatusError reports a non-success HTTP status from a scraped page.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d", e.StatusCode)
}

func fetchDocument(ctx context.Context, client *network.Client, target string, headers map[string]string) (*goquery.Document, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	applyHeaders(req, headers)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func applyHeaders(req *fhttp.Request, headers map[string]string) {
	req.Header.Set("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

func cleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func isRemote(parts ...string) bool {
	return mentionsRemote(strings.Join(parts, " "))
}

// parseJSONLDJobs extracts schema.org JobPosting blocks embedded in a page.
func parseJSONLDJobs(doc *goquery.Document, site string) []models.JobPosting {
	var jobs []models.JobPosting
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		data, err := decodeJSONLD(s.Text())
		if err != nil {
			return
		}
		jobs = append(jobs, extractJobsFromJSONLD(data, site)...)
	})
	return dedupeJobs(jobs)
}

func decodeJSONLD(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<!--")
	raw = strings.TrimSuffix(raw, "-->")
	raw = strings.ReplaceAll(raw, "\u2028", "")
	raw = strings.ReplaceAll(raw, "\u2029", "")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty json-ld block")
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func extractJobsFromJSONLD(data any, site string) []models.JobPosting {
	var jobs []models.JobPosting

	switch value := data.(type) {
	case []any:
		for _, item := range value {
			jobs = append(jobs, extractJobsFromJSONLD(item, site)...)
		}
	case map[string]any:
		switch strings.ToLower(stringValue(value["@type"], value["type"])) {
		case "jobposting":
			return append(jobs, jobFromJobPosting(value, site))
		case "itemlist":
			jobs = append(jobs, extractJobsFromJSONLD(value["itemListElement"], site)...)
		case "listitem":
			jobs = append(jobs, extractJobsFromJSONLD(value["item"], site)...)
		}
		if graph, ok := value["@graph"]; ok {
			jobs = append(jobs, extractJobsFromJSONLD(graph, site)...)
		}
		if main, ok := value["mainEntity"]; ok {
			jobs = append(jobs, extractJobsFromJSONLD(main, site)...)
		}
	}

	return jobs
}

func jobFromJobPosting(value map[string]any, site string) models.JobPosting {
	job := models.JobPosting{
		Source:       site,
		Title:        stringValue(value["title"], value["name"]),
		Company:      stringValue(mapValue(value["hiringOrganization"], "name")),
		URL:          stringValue(value["url"], value["@id"]),
		JobType:      stringValue(value["employmentType"]),
		Salary:       models.SalaryText(salaryFromJSONLD(value["baseSalary"])),
		PostedDate:   stringValue(value["datePosted"]),
		Location:     locationFromJSONLD(value["jobLocation"]),
		Description:  truncate(cleanText(stringValue(value["description"])), descriptionLimit),
		Requirements: cleanText(stringValue(value["qualifications"], value["experienceRequirements"])),
	}
	job.Remote = strings.EqualFold(stringValue(value["jobLocationType"]), "TELECOMMUTE") ||
		isRemote(job.Location)
	return job
}

func salaryFromJSONLD(value any) string {
	switch v := value.(type) {
	case map[string]any:
		currency := stringValue(v["currency"])
		if amount := mapValue(v["value"], "value"); amount != nil {
			return strings.TrimSpace(stringValue(amount) + " " + currency)
		}
		if amount := mapValue(v["value"], "minValue"); amount != nil {
			minStr := stringValue(amount)
			maxStr := stringValue(mapValue(v["value"], "maxValue"))
			if maxStr != "" {
				return strings.TrimSpace(minStr + " - " + maxStr + " " + currency)
			}
			return strings.TrimSpace(minStr + " " + currency)
		}
	case string:
		return v
	}
	return ""
}

func locationFromJSONLD(value any) string {
	switch v := value.(type) {
	case []any:
		var parts []string
		for _, item := range v {
			if loc := locationFromJSONLD(item); loc != "" {
				parts = append(parts, loc)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if addressMap, ok := v["address"].(map[string]any); ok {
			return joinAddress(addressMap)
		}
		return joinAddress(v)
	case string:
		return v
	}
	return ""
}

func joinAddress(value map[string]any) string {
	var cleaned []string
	for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode", "addressCountry"} {
		if part := stringValue(value[key]); part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, ", ")
}

func stringValue(values ...any) string {
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
		case int:
			return fmt.Sprintf("%d", v)
		case int64:
			return fmt.Sprintf("%d", v)
		case json.Number:
			return v.String()
		case map[string]any:
			if name := stringValue(v["name"]); name != "" {
				return name
			}
		}
	}
	return ""
}

func mapValue(value any, key string) any {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || len(value) <= max {
		return value
	}
	return strings.TrimSpace(value[:max]) + "..."
}

func filterRemote(jobs []models.JobPosting) []models.JobPosting {
	filtered := jobs[:0]
	for _, job := range jobs {
		if job.Remote {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

// dedupeJobs drops repeats within one page, keyed by URL and falling back
// to title|company|location. Cross-source duplicates are left alone.
func dedupeJobs(jobs []models.JobPosting) []models.JobPosting {
	seen := map[string]struct{}{}
	out := make([]models.JobPosting, 0, len(jobs))
	for _, job := range jobs {
		key := job.URL
		if key == "" {
			key = strings.ToLower(job.Title + "|" + job.Company + "|" + job.Location)
		}
		if key == "||" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, job)
	}
	return out
}

func limitJobs(jobs []models.JobPosting, limit int) []models.JobPosting {
	if limit <= 0 || len(jobs) <= limit {
		return jobs
	}
	return jobs[:limit]
}
