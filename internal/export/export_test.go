package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jimezsa/jobagg/internal/models"
)

func sampleJobs() []models.JobPosting {
	return []models.JobPosting{
		{
			Title:       "Go Developer",
			Company:     "Acme",
			Location:    "Berlin",
			URL:         "https://www.example.com/jobs/1",
			Source:      "adzuna",
			Remote:      true,
			Salary:      models.SalaryAmount(65000),
			PostedDate:  "2024-05-01",
			Description: "Build\n  services",
			DateAdded:   time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC),
		},
		{
			Title:   "SRE",
			Company: "Beta",
			Source:  "linkedin",
			Salary:  models.SalaryText("$100k - $120k"),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJobs(&buf, sampleJobs(), FormatCSV, WriteOptions{}); err != nil {
		t.Fatalf("WriteJobs() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "source" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	first := rows[1]
	if first[7] != "65000" || first[5] != "true" || first[9] != "Build services" || first[10] != "2024-05-10T08:00:00Z" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if rows[2][7] != "$100k - $120k" || rows[2][10] != "" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestWriteJSONKeepsSalaryShape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJobs(&buf, sampleJobs(), FormatJSON, WriteOptions{}); err != nil {
		t.Fatalf("WriteJobs() error = %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := decoded[0]["salary"].(float64); !ok {
		t.Fatalf("expected numeric salary, got %#v", decoded[0]["salary"])
	}
	if _, ok := decoded[1]["salary"].(string); !ok {
		t.Fatalf("expected text salary, got %#v", decoded[1]["salary"])
	}
}

func TestWriteMarkdownAndTable(t *testing.T) {
	var md bytes.Buffer
	if err := WriteJobs(&md, sampleJobs(), FormatMarkdown, WriteOptions{}); err != nil {
		t.Fatalf("WriteJobs() error = %v", err)
	}
	for _, want := range []string{"- **Go Developer** (Acme)", "Source: adzuna", "Salary: 65000", "Remote: yes", "URL: -"} {
		if !strings.Contains(md.String(), want) {
			t.Fatalf("markdown missing %q:\n%s", want, md.String())
		}
	}

	var empty bytes.Buffer
	_ = WriteJobs(&empty, nil, FormatMarkdown, WriteOptions{})
	if empty.String() != "No results.\n" {
		t.Fatalf("unexpected empty markdown: %q", empty.String())
	}

	var table bytes.Buffer
	if err := WriteJobs(&table, sampleJobs(), FormatTable, WriteOptions{}); err != nil {
		t.Fatalf("WriteJobs() error = %v", err)
	}
	if !strings.Contains(table.String(), "https://www.example.com/jobs/1") {
		t.Fatalf("table missing url:\n%s", table.String())
	}
}

func TestShortURLLabel(t *testing.T) {
	if got := shortURLLabel("https://www.example.com/jobs/1?x=1"); got != "example.com/jobs/1" {
		t.Fatalf("shortURLLabel() = %q", got)
	}
	long := "https://example.com/" + strings.Repeat("a", 100)
	if got := shortURLLabel(long); len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated label, got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"csv": FormatCSV, "Markdown": FormatMarkdown, "": FormatTable, "tsv": FormatTSV} {
		got, err := ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestWriteUsage(t *testing.T) {
	var buf bytes.Buffer
	usage := models.Usage{UserID: "alice", Today: 2, Total: 9, DailyLimit: 10, Remaining: 8}
	if err := WriteUsage(&buf, usage, FormatTable); err != nil {
		t.Fatalf("WriteUsage() error = %v", err)
	}
	if !strings.Contains(buf.String(), "user alice: 2 used today, 8 remaining") {
		t.Fatalf("unexpected usage output:\n%s", buf.String())
	}

	buf.Reset()
	_ = WriteUsage(&buf, usage, FormatJSON)
	if !strings.Contains(buf.String(), `"today_count": 2`) {
		t.Fatalf("unexpected usage json: %s", buf.String())
	}
}
