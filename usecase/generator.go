package usecase

import (
	"context"
	"strings"

	"github.com/satriahrh/synapse/domain"
)

// Generator is the provider-call port the services depend on; *Orchestrator
// implements it.
type Generator interface {
	Generate(ctx context.Context, req domain.PromptRequest, cfg domain.ProviderConfig) (string, error)
}

var _ Generator = (*Orchestrator)(nil)

// providerResolver turns a user's profile and active template into the
// per-call provider settings.
type providerResolver struct {
	users       domain.UserStore
	templates   domain.TemplateStore
	fallbackKey string
}

// resolve returns the provider config and the system instruction override
// (empty when no template of type t is active).
func (r providerResolver) resolve(ctx context.Context, userID int64, t domain.TemplateType) (domain.ProviderConfig, string, error) {
	var cfg domain.ProviderConfig
	profile, err := r.users.GetProfile(ctx, userID)
	if err != nil {
		return cfg, "", err
	}
	if profile != nil {
		cfg.APIKey = profile.GeminiAPIKey
		cfg.ModelName = profile.PreferredModel
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = r.fallbackKey
	}

	tmpl, err := r.templates.ActiveTemplate(ctx, userID, t)
	if err != nil {
		return cfg, "", err
	}
	if tmpl == nil {
		return cfg, "", nil
	}
	if tmpl.Model != "" {
		cfg.ModelName = tmpl.Model
	}
	return cfg, tmpl.Content, nil
}
