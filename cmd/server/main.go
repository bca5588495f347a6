package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/clipmarket/api"
	dbfs "github.com/garnizeh/clipmarket/db"
	"github.com/garnizeh/clipmarket/internal/analytics"
	"github.com/garnizeh/clipmarket/internal/campaigns"
	"github.com/garnizeh/clipmarket/internal/config"
	"github.com/garnizeh/clipmarket/internal/contracts"
	"github.com/garnizeh/clipmarket/internal/db"
	"github.com/garnizeh/clipmarket/internal/jobs"
	"github.com/garnizeh/clipmarket/internal/repository/sqlite"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/social"
	"github.com/garnizeh/clipmarket/internal/submissions"
	"github.com/garnizeh/clipmarket/internal/twofactor"
	"github.com/garnizeh/clipmarket/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting clipmarket", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	repo := sqlite.New(database, logger)

	scorer, closeScorer, err := newScorer(ctx, cfg, repo, logger)
	if err != nil {
		log.Fatalf("Failed to set up fraud scoring: %v", err)
	}
	defer closeScorer()

	fetcher := social.StandInFetcher{}
	svc := api.Services{
		Users: repo,
		TwoFactor: twofactor.NewManager(repo, twofactor.Options{
			Issuer: cfg.TwoFactor.Issuer,
			Period: cfg.TwoFactor.Period,
			Skew:   cfg.TwoFactor.Skew,
		}, logger),
		Campaigns:   campaigns.NewService(repo, logger),
		Contracts:   contracts.NewService(repo, logger),
		Submissions: submissions.NewService(repo, fetcher, scorer, logger),
		Analytics:   analytics.NewService(repo),
		Social:      social.NewService(repo, repo, repo, logger),
		DB:          database.GetConn(),
	}

	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		social.RefreshJobType: jobs.RefreshHandler(repo, fetcher, scorer, logger),
	}, logger, cfg.Jobs.Workers)
	pool.Start(ctx)

	handler := api.SetupRoutes(cfg, version, buildTime, svc)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		logger.Error("server failed", slog.Any("err", err))
	}

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}
	pool.Stop()

	// Close database connection
	if err := database.Close(); err != nil {
		logger.Error("closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}

// newScorer picks the fraud scorer from config. In llm mode the heuristic
// scorer answers whenever the model cannot.
func newScorer(ctx context.Context, cfg *config.Config, repo *sqlite.SQLiteRepo, logger *slog.Logger) (scoring.FraudScorer, func(), error) {
	if cfg.Scoring.Mode != config.ScoringLLM {
		return scoring.HeuristicScorer{}, func() {}, nil
	}

	client, err := ollama.NewDefaultClient(cfg.Ollama)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Health(ctx); err != nil {
		logger.Warn("ollama not reachable at startup; heuristic fallback will answer until it is", slog.Any("err", err))
	}

	scorer, err := scoring.NewLLMScorer(ctx, client, scoring.LLMConfig{
		Model:           cfg.Scoring.Model,
		TemplateVersion: cfg.Scoring.TemplateVersion,
		Timeout:         cfg.Scoring.Timeout,
	}, repo, repo, scoring.HeuristicScorer{}, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return scorer, func() { _ = client.Close() }, nil
}
