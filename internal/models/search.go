package models

// Query is what a source adapter receives.
type Query struct {
	Keywords   string
	Location   string
	RemoteOnly bool
}

// SearchRequest is one caller search across a set of sources.
type SearchRequest struct {
	Keywords   string   `json:"keywords" validate:"required"`
	Location   string   `json:"location" validate:"required"`
	RemoteOnly bool     `json:"remote_only"`
	Sources    []string `json:"sources" validate:"required,min=1,dive,required"`
	SearchID   string   `json:"search_id,omitempty"`
}

// Query returns the adapter-facing part of the request.
func (r SearchRequest) Query() Query {
	return Query{
		Keywords:   r.Keywords,
		Location:   r.Location,
		RemoteOnly: r.RemoteOnly,
	}
}
