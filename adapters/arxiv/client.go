// Package arxiv queries the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

const (
	DefaultURL        = "https://export.arxiv.org/api/query"
	DefaultMaxResults = 10
	DefaultSortBy     = "submittedDate"
	DefaultSortOrder  = "descending"

	randomMaxStart = 100
	randomLimit    = 5
)

var randomTopics = []string{
	"Artificial Intelligence", "Climate Change", "Quantum Computing", "Neuroscience",
	"Astrophysics", "Machine Learning", "Biotechnology", "Robotics",
	"Cryptography", "Genomics", "Nanotechnology", "Renewable Energy",
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	// intn returns a uniform int in [0, n).
	intn func(n int) int
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithRand(intn func(n int) int) Option {
	return func(c *Client) { c.intn = intn }
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultURL,
		httpClient: &http.Client{Timeout: timeout},
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.PaperSource = (*Client)(nil)

func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Paper, error) {
	if q.MaxResults == 0 {
		q.MaxResults = DefaultMaxResults
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder == "" {
		q.SortOrder = DefaultSortOrder
	}

	params := url.Values{}
	params.Set("search_query", "all:"+q.Query)
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("max_results", strconv.Itoa(q.MaxResults))
	params.Set("sortBy", q.SortBy)
	params.Set("sortOrder", q.SortOrder)
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building arxiv request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.WithCtx(ctx).Warn("arxiv returned non-success status",
			zap.String("url", reqURL), zap.Int("status", resp.StatusCode))
		return nil, domain.UpstreamFetchError(reqURL, resp.StatusCode)
	}

	papers, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	log.WithCtx(ctx).Debug("arxiv search", zap.String("query", q.Query), zap.Int("results", len(papers)))
	return papers, nil
}

// RandomPaper picks a random topic and offset and returns one of the
// matches, or nil when the page is empty.
func (c *Client) RandomPaper(ctx context.Context) (*domain.Paper, error) {
	topic := randomTopics[c.intn(len(randomTopics))]
	papers, err := c.Search(ctx, domain.SearchQuery{
		Query:      topic,
		Start:      c.intn(randomMaxStart + 1),
		MaxResults: randomLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, nil
	}
	p := papers[c.intn(len(papers))]
	return &p, nil
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        *string  `xml:"id"`
	Title     *string  `xml:"title"`
	Summary   *string  `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
	Links     []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

var errMalformed = errors.New("malformed arxiv feed")

// Parse decodes an Atom feed into papers in feed order.
func Parse(r io.Reader) ([]domain.Paper, error) {
	var f feed
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}

	papers := make([]domain.Paper, 0, len(f.Entries))
	for i, e := range f.Entries {
		if e.ID == nil || e.Title == nil || e.Summary == nil {
			return nil, fmt.Errorf("%w: entry %d lacks id, title or summary", errMalformed, i)
		}
		p := domain.Paper{
			ID:        strings.TrimSpace(*e.ID),
			Title:     clean(*e.Title),
			Summary:   clean(*e.Summary),
			Published: strings.TrimSpace(e.Published),
			Authors:   make([]string, 0, len(e.Authors)),
		}
		for _, a := range e.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		for _, l := range e.Links {
			if l.Title == "pdf" {
				href := l.Href
				p.PDFURL = &href
				break
			}
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// clean collapses every run of whitespace, newlines included, into a
// single space and trims the ends.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
