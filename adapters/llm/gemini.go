// Package llm binds the Gemini API to domain.Provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"syscall"

	"google.golang.org/genai"

	"github.com/satriahrh/synapse/domain"
)

// GeminiProvider opens one genai chat per request, seeded with the
// request's history. The client is built per call because the key is
// per user.
type GeminiProvider struct {
	httpClient *http.Client
	// baseURL overrides the API endpoint; empty means the public one.
	baseURL string
}

type GeminiOption func(*GeminiProvider)

func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiProvider) { g.httpClient = c }
}

func WithBaseURL(u string) GeminiOption {
	return func(g *GeminiProvider) { g.baseURL = u }
}

func NewGeminiProvider(opts ...GeminiOption) *GeminiProvider {
	g := &GeminiProvider{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var (
	_ domain.Provider    = (*GeminiProvider)(nil)
	_ domain.ModelLister = (*GeminiProvider)(nil)
)

func (g *GeminiProvider) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}

func (g *GeminiProvider) OpenSession(ctx context.Context, cfg domain.ProviderConfig, history []domain.HistoryEntry) (domain.ChatSession, error) {
	client, err := g.newClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	chat, err := client.Chats.Create(ctx, cfg.ModelName, nil, toContents(history))
	if err != nil {
		return nil, fmt.Errorf("creating chat: %w", classify(err))
	}
	return &geminiSession{chat: chat}, nil
}

// ListModels returns the models that support generateContent, in the order
// the API lists them.
func (g *GeminiProvider) ListModels(ctx context.Context, apiKey string) ([]domain.ModelInfo, error) {
	client, err := g.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	models := []domain.ModelInfo{}
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", classify(err))
		}
		if slices.Contains(m.SupportedActions, "generateContent") {
			models = append(models, domain.ModelInfo{Name: m.Name, DisplayName: m.DisplayName})
		}
	}
	return models, nil
}

func toContents(history []domain.HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, entry := range history {
		role := genai.RoleModel
		if entry.Role == domain.UserRole {
			role = genai.RoleUser
		}
		parts := make([]*genai.Part, 0, len(entry.Parts))
		for _, p := range entry.Parts {
			parts = append(parts, &genai.Part{Text: p})
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) SendMessage(ctx context.Context, message string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("send message: %w", classify(err))
	}
	return resp.Text(), nil
}

// classify marks connectivity failures and gateway statuses with
// domain.ErrTransient. Everything else, including key rejections and quota
// errors, passes through unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return transientStatus(apiErrPtr.Code)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	// *url.Error satisfies net.Error too, so only dial/read failures and
	// timeouts count; TLS and URL errors stay permanent.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
