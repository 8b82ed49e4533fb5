package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

type OrchestratorConfig struct {
	Timeout        time.Duration
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	DefaultModel   string
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		BackoffInitial: 2 * time.Second,
		BackoffMax:     10 * time.Second,
		DefaultModel:   domain.DefaultModel,
	}
}

// Orchestrator owns the provider call: one session per request, each send
// bounded by Timeout, transient failures retried with capped exponential
// backoff.
type Orchestrator struct {
	provider domain.Provider
	cfg      OrchestratorConfig
	// timer drives the backoff waits; nil means real time.
	timer backoff.Timer
}

func NewOrchestrator(provider domain.Provider, cfg OrchestratorConfig) *Orchestrator {
	def := DefaultOrchestratorConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = def.BackoffMax
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = def.DefaultModel
	}
	return &Orchestrator{provider: provider, cfg: cfg}
}

// NormalizeModelName strips a path-style prefix such as "models/" and falls
// back to def when nothing is left.
func NormalizeModelName(name, def string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return def
	}
	return name
}

// NewBackOff returns the retry schedule: InitialInterval doubling up to
// BackoffMax, no jitter, at most MaxAttempts-1 waits.
func (o *Orchestrator) NewBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.BackoffInitial
	b.MaxInterval = o.cfg.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.cfg.MaxAttempts-1)), ctx)
}

// Generate sends req to the provider and returns the reply text unchanged.
// Failures are *domain.Error values of kind configuration, timeout,
// transient_provider or unexpected.
func (o *Orchestrator) Generate(ctx context.Context, req domain.PromptRequest, cfg domain.ProviderConfig) (string, error) {
	start := time.Now()
	logger := log.WithCtx(ctx).With(zap.String("conversation_id", req.ConversationID))

	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Error("no provider key configured")
		return "", domain.ConfigurationError("Gemini API key not configured. Please add it in Settings.")
	}

	cfg.ModelName = NormalizeModelName(cfg.ModelName, o.cfg.DefaultModel)
	logger = logger.With(zap.String("model", cfg.ModelName))
	logger.Info("generating response", zap.Int("history_len", len(req.History)))

	session, err := o.provider.OpenSession(ctx, cfg, req.History)
	if err != nil {
		logger.Error("opening provider session", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", asDomainError(err)
	}

	message := AssemblePrompt(req)
	attempts := 0
	var text string
	op := func() error {
		attempts++
		out, err := o.sendOnce(ctx, session, message)
		if err == nil {
			text = out
			return nil
		}
		if domain.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("transient provider failure, retrying",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait))
	}

	err = backoff.RetryNotifyWithTimer(op, o.NewBackOff(ctx), notify, o.timer)
	elapsed := time.Since(start)
	if err != nil {
		switch {
		case domain.KindOf(err) == domain.KindTimeout:
			logger.Error("provider request timed out", zap.Duration("bound", o.cfg.Timeout), zap.Duration("elapsed", elapsed))
		case domain.IsTransient(err):
			err = domain.TransientProviderError(attempts, err)
			logger.Error("provider retries exhausted", zap.Error(err), zap.Int("attempts", attempts), zap.Duration("elapsed", elapsed))
		default:
			err = asDomainError(err)
			logger.Error("provider request failed", zap.Error(err), zap.Int("attempts", attempts), zap.Duration("elapsed", elapsed), zap.Stack("stack"))
		}
		return "", err
	}

	logger.Info("generated response", zap.Int("attempts", attempts), zap.Duration("elapsed", elapsed))
	return text, nil
}

// sendOnce runs one provider send on its own goroutine so a blocking binding
// can never hold the caller past the timeout.
func (o *Orchestrator) sendOnce(ctx context.Context, session domain.ChatSession, message string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		var pc panics.Catcher
		pc.Try(func() {
			r.text, r.err = session.SendMessage(callCtx, message)
		})
		if rec := pc.Recovered(); rec != nil {
			r.err = domain.UnexpectedError(rec.AsError())
		}
		done <- r
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", domain.TimeoutError(o.cfg.Timeout)
		}
		return r.text, r.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", domain.TimeoutError(o.cfg.Timeout)
	}
}

func asDomainError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.UnexpectedError(err)
}
