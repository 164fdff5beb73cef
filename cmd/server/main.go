package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-feedback/internal/api"
	"github.com/p-n-ai/pai-feedback/internal/platform/cache"
	"github.com/p-n-ai/pai-feedback/internal/platform/config"
	"github.com/p-n-ai/pai-feedback/internal/platform/database"
	"github.com/p-n-ai/pai-feedback/internal/platform/mongodb"
	"github.com/p-n-ai/pai-feedback/internal/reference"
	"github.com/p-n-ai/pai-feedback/internal/report"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
	"github.com/p-n-ai/pai-feedback/internal/sentiment"
	"github.com/p-n-ai/pai-feedback/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger. Format "text" selects the text handler;
// anything else logs JSON.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app holds the wired service graph and everything that must be closed.
type app struct {
	mux     *http.ServeMux
	service *report.Service
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	var checks []api.Check
	runLogger := report.RunLogger(report.NopRunLogger{})

	var st store.ResponseStore
	switch cfg.Store.Driver {
	case config.DriverMemory:
		st = store.NewMemoryStore()
		slog.Warn("using in-memory response store; data is not persisted")

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks = append(checks, api.Check{Name: "database", Probe: db.HealthCheck})

		if err := db.Migrate(ctx, store.Schema, report.RunSchema); err != nil {
			a.close()
			return nil, err
		}
		pg, err := store.NewPostgresStore(db.Pool, store.WithPageSize(cfg.Store.PageSize))
		if err != nil {
			a.close()
			return nil, err
		}
		st = pg
		runLogger = report.NewPostgresRunLogger(db.Pool)

	case config.DriverMongo:
		client, err := mongodb.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				slog.Warn("mongo disconnect failed", "error", err)
			}
		})
		checks = append(checks, api.Check{Name: "mongo", Probe: client.HealthCheck})
		st = store.NewMongoStore(client.Database, cfg.Mongo.Collection, cfg.Store.PageSize)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks = append(checks, api.Check{Name: "cache", Probe: c.HealthCheck})
		st = store.NewCachedStore(st, c.Client, cfg.Cache.TTL)
	}

	ref, err := reference.NewLoader(cfg.ReferencePath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("loading reference data: %w", err)
	}

	opts := []report.Option{
		report.WithConcurrency(cfg.Scoring.Concurrency),
		report.WithRunLogger(runLogger),
	}
	if len(cfg.Scoring.ExcludedSections) > 0 {
		opts = append(opts, report.WithModel(scoring.NewModel(scoring.WithExcludedSections(cfg.Scoring.ExcludedSections...))))
	}

	router := newRouter(cfg.AI)
	if router.HasProvider() {
		classifier, err := sentiment.NewClassifier(router, sentiment.WithModel(cfg.AI.Model))
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, report.WithClassifier(classifier))
		slog.Info("sentiment enabled", "providers", router.Names())
	} else {
		slog.Info("no sentiment provider configured; sentiment endpoint disabled")
	}

	a.service = report.NewService(st, ref, opts...)
	a.mux = api.NewMux(a.service, checks...)
	return a, nil
}

// newRouter registers every configured provider in fallback order.
func newRouter(cfg config.AIConfig) *sentiment.Router {
	router := sentiment.NewRouter()

	if cfg.OpenAI.APIKey != "" {
		var opts []sentiment.OpenAIOption
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, sentiment.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		router.Register("openai", sentiment.NewOpenAIProvider(cfg.OpenAI.APIKey, opts...))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := sentiment.NewAnthropicProvider(cfg.Anthropic.APIKey)
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			router.Register("anthropic", p)
		}
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", sentiment.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", sentiment.NewOpenRouterProvider(cfg.OpenRouter.APIKey))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", sentiment.NewOllamaProvider(cfg.Ollama.URL, sentiment.WithOllamaModel(cfg.Ollama.Model)))
	}

	return router
}
