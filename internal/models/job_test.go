package models

import (
	"encoding/json"
	"testing"
)

func TestSalaryJSON(t *testing.T) {
	cases := []struct {
		name   string
		salary Salary
		want   string
	}{
		{"numeric", SalaryAmount(85000.5), `{"salary":85000.5}`},
		{"text", SalaryText("60k - 80k EUR"), `{"salary":"60k - 80k EUR"}`},
		{"unset", Salary{}, `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(struct {
				Salary Salary `json:"salary,omitzero"`
			}{tc.salary})
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("Marshal() = %s, want %s", data, tc.want)
			}
		})
	}
}

func TestSalaryUnmarshal(t *testing.T) {
	var job JobPosting
	if err := json.Unmarshal([]byte(`{"title":"SRE","salary":120000}`), &job); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !job.Salary.IsNumeric() || job.Salary.Amount != 120000 {
		t.Fatalf("expected numeric salary, got %+v", job.Salary)
	}

	if err := json.Unmarshal([]byte(`{"title":"SRE","salary":"competitive"}`), &job); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if job.Salary.IsNumeric() || job.Salary.String() != "competitive" {
		t.Fatalf("expected text salary, got %+v", job.Salary)
	}
}

func TestSearchRequestQuery(t *testing.T) {
	req := SearchRequest{Keywords: "go", Location: "Berlin", RemoteOnly: true, Sources: []string{"adzuna"}}
	q := req.Query()
	if q.Keywords != "go" || q.Location != "Berlin" || !q.RemoteOnly {
		t.Fatalf("unexpected query: %+v", q)
	}
}
