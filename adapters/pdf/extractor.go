// Package pdf downloads PDF documents and extracts their plain text.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

// maxDocumentSize caps the bytes read from one download.
const maxDocumentSize = 64 << 20

type Extractor struct {
	httpClient *http.Client
}

var _ domain.TextExtractor = (*Extractor)(nil)

func NewExtractor(timeout time.Duration) *Extractor {
	return &Extractor{httpClient: &http.Client{Timeout: timeout}}
}

// ExtractText fetches url and returns the text of every page, each followed
// by a newline, in page order.
func (e *Extractor) ExtractText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domain.InvalidError("pdf_url is not a valid URL")
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.WithCtx(ctx).Warn("pdf fetch returned non-success status",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return "", domain.UpstreamFetchError(url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	text, pages, err := Text(data)
	if err != nil {
		return "", err
	}
	log.WithCtx(ctx).Debug("extracted pdf text",
		zap.String("url", url), zap.Int("pages", pages), zap.Int("bytes", len(text)))
	return text, nil
}

// Text extracts the plain text of an in-memory PDF and reports its page
// count. A page without content contributes only its newline.
func Text(data []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("parsing pdf: %w", err)
	}

	var b strings.Builder
	n := r.NumPage()
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				return "", 0, fmt.Errorf("reading page %d: %w", i, err)
			}
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	return b.String(), n, nil
}
