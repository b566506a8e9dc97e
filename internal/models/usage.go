package models

// Usage reports a user's quota consumption for the current UTC day.
type Usage struct {
	UserID     string        `json:"user_id"`
	Today      int           `json:"today_count"`
	Total      int           `json:"total_count"`
	DailyLimit int           `json:"daily_limit"`
	Remaining  int           `json:"remaining"`
	Sources    []SourceUsage `json:"sources,omitempty"`
}

// SourceUsage is the per-source breakdown reported in per-source quota mode.
type SourceUsage struct {
	Source     string `json:"source"`
	Today      int    `json:"today_count"`
	Total      int    `json:"total_count"`
	DailyLimit int    `json:"daily_limit"`
	Remaining  int    `json:"remaining"`
}
