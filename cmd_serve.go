package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/synapse/adapters/arxiv"
	"github.com/satriahrh/synapse/adapters/cache"
	"github.com/satriahrh/synapse/adapters/hasher"
	httpapi "github.com/satriahrh/synapse/adapters/http"
	"github.com/satriahrh/synapse/adapters/llm"
	"github.com/satriahrh/synapse/adapters/message_broker"
	"github.com/satriahrh/synapse/adapters/pdf"
	"github.com/satriahrh/synapse/adapters/sqlite"
	"github.com/satriahrh/synapse/adapters/websocket"
	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/usecase"
	"github.com/satriahrh/synapse/utils/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and live turn feed",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()

	var searchCache domain.SearchCache
	if cfg.Research.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Research.RedisAddr,
			Password: cfg.Research.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithCtx(ctx).Warn("redis unreachable, search cache disabled", zap.Error(err))
		} else {
			searchCache = cache.NewSearchCache(rdb, hasher.New(16), cfg.Research.SearchCacheTTL)
		}
	}

	gemini := llm.NewGeminiProvider(llm.WithBaseURL(cfg.LLM.BaseURL))
	orchestrator := usecase.NewOrchestrator(gemini, usecase.OrchestratorConfig{
		Timeout:        cfg.LLM.Timeout,
		MaxAttempts:    cfg.LLM.MaxAttempts,
		BackoffInitial: cfg.LLM.BackoffInitial,
		BackoffMax:     cfg.LLM.BackoffMax,
		DefaultModel:   cfg.LLM.DefaultModel,
	})

	fetchClient := &http.Client{Timeout: cfg.Research.FetchTimeout}
	tokens := httpapi.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Accounts: usecase.NewAccountService(store, store, gemini, cfg.LLM.DefaultModel),
		Research: usecase.NewResearchService(usecase.ResearchServiceDeps{
			Papers:    arxiv.NewClient(cfg.Research.FetchTimeout, arxiv.WithBaseURL(cfg.Research.ArxivURL), arxiv.WithHTTPClient(fetchClient)),
			Extractor: pdf.NewExtractor(cfg.Research.FetchTimeout),
			Users:     store,
			Templates: store,
			Generator: orchestrator,
			Cache:     searchCache,
		}, cfg.Research.ExtractLimit, cfg.LLM.APIKey),
		Library: usecase.NewLibraryService(store),
		Chat: usecase.NewChatService(usecase.ChatServiceDeps{
			Messages:    store,
			Users:       store,
			Templates:   store,
			Collections: store,
			Generator:   orchestrator,
			Broker:      broker,
		}, cfg.LLM.HistoryCutoff, cfg.LLM.APIKey),
		Tokens: tokens,
	})

	feed := websocket.NewServer(broker, cfg.HTTP.CORSOrigins)
	defer feed.Hub().CloseAll()

	e := httpapi.NewEcho(cfg.HTTP)
	handler.Register(e)
	e.GET("/ws", feed.Handler, tokens.Middleware)

	errCh := make(chan error, 1)
	go func() {
		log.With(zap.String("addr", cfg.HTTP.Addr)).Info("🚀 Starting server")
		errCh <- e.Start(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.WithCtx(context.Background()).Info("🔒 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	feed.Hub().CloseAll()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithCtx(shutdownCtx).Error("shutdown", zap.Error(err))
		return err
	}
	return nil
}

