package domain

import "context"

// Paper is one entry of the arXiv feed.
type Paper struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Authors   []string `json:"authors"`
	Published string   `json:"published"`
	PDFURL    *string  `json:"pdf_url"`
}

type SearchQuery struct {
	Query      string
	Start      int
	MaxResults int
	SortBy     string
	SortOrder  string
}

type PaperSource interface {
	Search(ctx context.Context, q SearchQuery) ([]Paper, error)
	RandomPaper(ctx context.Context) (*Paper, error)
}

type TextExtractor interface {
	ExtractText(ctx context.Context, url string) (string, error)
}

// SearchCache memoizes feed queries. Implementations must treat a miss as
// (nil, false, nil).
type SearchCache interface {
	Get(ctx context.Context, q SearchQuery) ([]Paper, bool, error)
	Set(ctx context.Context, q SearchQuery, papers []Paper) error
}
