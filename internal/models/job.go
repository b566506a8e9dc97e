package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// JobPosting is the normalized posting returned by every source adapter.
type JobPosting struct {
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url"`
	Source       string    `json:"source"`
	Remote       bool      `json:"remote"`
	Salary       Salary    `json:"salary,omitzero"`
	PostedDate   string    `json:"posted_date,omitempty"`
	JobType      string    `json:"job_type,omitempty"`
	Requirements string    `json:"requirements,omitempty"`
	DateAdded    time.Time `json:"date_added"`
}

// Salary holds what upstream reported: either a number or free text.
type Salary struct {
	Amount float64
	Text   string
	set    bool
}

func SalaryAmount(amount float64) Salary {
	return Salary{Amount: amount, set: true}
}

func SalaryText(text string) Salary {
	text = strings.TrimSpace(text)
	if text == "" {
		return Salary{}
	}
	return Salary{Text: text, set: true}
}

func (s Salary) IsZero() bool {
	return !s.set
}

func (s Salary) IsNumeric() bool {
	return s.set && s.Text == ""
}

func (s Salary) String() string {
	switch {
	case !s.set:
		return ""
	case s.Text != "":
		return s.Text
	default:
		return strconv.FormatFloat(s.Amount, 'f', -1, 64)
	}
}

func (s Salary) MarshalJSON() ([]byte, error) {
	switch {
	case !s.set:
		return []byte("null"), nil
	case s.Text != "":
		return json.Marshal(s.Text)
	default:
		return json.Marshal(s.Amount)
	}
}

func (s *Salary) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*s = Salary{}
		return nil
	}
	if strings.HasPrefix(raw, "\"") {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = SalaryText(text)
		return nil
	}
	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return err
	}
	*s = SalaryAmount(amount)
	return nil
}
