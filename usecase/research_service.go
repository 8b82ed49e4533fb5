package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

type ResearchServiceDeps struct {
	Papers    domain.PaperSource
	Extractor domain.TextExtractor
	Users     domain.UserStore
	Templates domain.TemplateStore
	Generator Generator
	// Cache is optional.
	Cache domain.SearchCache
}

type ResearchService struct {
	ResearchServiceDeps
	resolver     providerResolver
	extractLimit int
}

func NewResearchService(deps ResearchServiceDeps, extractLimit int, fallbackKey string) *ResearchService {
	return &ResearchService{
		ResearchServiceDeps: deps,
		resolver: providerResolver{
			users:       deps.Users,
			templates:   deps.Templates,
			fallbackKey: fallbackKey,
		},
		extractLimit: extractLimit,
	}
}

// Search queries the feed, consulting the cache first when one is set.
func (s *ResearchService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Paper, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, domain.InvalidError("query is required")
	}
	if q.Start < 0 || q.MaxResults < 0 {
		return nil, domain.InvalidError("start and max_results must not be negative")
	}

	if s.Cache != nil {
		papers, ok, err := s.Cache.Get(ctx, q)
		if err != nil {
			log.WithCtx(ctx).Warn("search cache read", zap.Error(err))
		} else if ok {
			return papers, nil
		}
	}

	papers, err := s.Papers.Search(ctx, q)
	if err != nil {
		log.WithCtx(ctx).Error("search failed", zap.String("query", q.Query), zap.Error(err))
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, q, papers); err != nil {
			log.WithCtx(ctx).Warn("search cache write", zap.Error(err))
		}
	}
	return papers, nil
}

func (s *ResearchService) RandomPaper(ctx context.Context) (*domain.Paper, error) {
	paper, err := s.Papers.RandomPaper(ctx)
	if err != nil {
		return nil, err
	}
	if paper == nil {
		return nil, &domain.Error{Kind: domain.KindNotFound, Message: "No paper found"}
	}
	return paper, nil
}

// ExtractText returns at most extractLimit runes of the document text and
// records the view when paperID is set.
func (s *ResearchService) ExtractText(ctx context.Context, userID int64, pdfURL, paperID string) (string, error) {
	if strings.TrimSpace(pdfURL) == "" {
		return "", domain.InvalidError("pdf_url is required")
	}
	text, err := s.Extractor.ExtractText(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	if paperID != "" && userID != 0 {
		if err := s.Users.RecordPaperView(ctx, userID, paperID); err != nil {
			log.WithCtx(ctx).Warn("recording paper view", zap.Error(err))
		}
	}
	return truncateRunes(text, s.extractLimit), nil
}

// Chat answers a one-off question over caller-supplied paper context.
func (s *ResearchService) Chat(ctx context.Context, userID int64, papersContext, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.InvalidError("user_query is required")
	}
	cfg, instruction, err := s.resolver.resolve(ctx, userID, domain.TemplateChat)
	if err != nil {
		return "", err
	}
	return s.Generator.Generate(ctx, NewPromptRequest(query, papersContext, instruction, nil), cfg)
}

func (s *ResearchService) ELI5(ctx context.Context, userID int64, text string) (string, error) {
	return s.transform(ctx, userID, domain.TemplateELI5, text, ELI5Prompt)
}

func (s *ResearchService) Summarize(ctx context.Context, userID int64, text string) (string, error) {
	return s.transform(ctx, userID, domain.TemplateSummarize, text, SummaryPrompt)
}

// transform sends text under the user's active template of type t, or wraps
// it in the fallback prompt when none is active.
func (s *ResearchService) transform(ctx context.Context, userID int64, t domain.TemplateType, text string, fallback func(string) string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.InvalidError("text is required")
	}
	cfg, instruction, err := s.resolver.resolve(ctx, userID, t)
	if err != nil {
		return "", err
	}
	message := text
	if instruction == "" {
		message = fallback(text)
	}
	return s.Generator.Generate(ctx, NewPromptRequest(message, "", instruction, nil), cfg)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
