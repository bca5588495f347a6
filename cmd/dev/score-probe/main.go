// score-probe sends one set of engagement figures through the LLM fraud
// scorer and prints the model's verdict next to the heuristic one.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	dbfs "github.com/garnizeh/clipmarket/db"
	"github.com/garnizeh/clipmarket/internal/config"
	"github.com/garnizeh/clipmarket/internal/db"
	"github.com/garnizeh/clipmarket/internal/repository/sqlite"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/social"
	"github.com/garnizeh/clipmarket/pkg/ollama"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		model      = flag.String("model", "", "Model name; defaults to scoring.model from config")
		platform   = flag.String("platform", "tiktok", "Platform of the sample post")
		postURL    = flag.String("url", "", "Post URL; when set, metrics come from the stand-in fetcher")
		views      = flag.Int64("views", 120000, "Raw views")
		likes      = flag.Int64("likes", 150, "Likes")
		comments   = flag.Int64("comments", 4, "Comments")
		shares     = flag.Int64("shares", 2, "Shares")
		watch      = flag.Float64("watch", 90000, "Total watch time in seconds")
		clickOff   = flag.Float64("clickoff", 0.8, "Click-off rate 0..1")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *model != "" {
		cfg.Scoring.Model = *model
	}
	if cfg.Scoring.Model == "" {
		log.Fatal("no model: pass -model or set CLIP_SCORING_MODEL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer database.Close()
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}
	repo := sqlite.New(database, nil)

	client, err := ollama.NewDefaultClient(cfg.Ollama)
	if err != nil {
		log.Fatalf("Failed to create ollama client: %v", err)
	}
	defer client.Close()

	models, err := client.ListModels(ctx)
	if err != nil {
		log.Fatalf("Ollama unreachable at %s: %v", cfg.Ollama.BaseURL, err)
	}
	log.Printf("available models: %v", models)

	m := scoring.Metrics{Views: *views, Likes: *likes, Comments: *comments, Shares: *shares, WatchTime: *watch, ClickOffRate: *clickOff}
	if *postURL != "" {
		fetched, err := social.StandInFetcher{}.Fetch(ctx, *platform, *postURL, "")
		if err != nil {
			log.Fatalf("Failed to fetch %s: %v", *postURL, err)
		}
		m = fetched.Metrics
	}

	scorer, err := scoring.NewLLMScorer(ctx, client, scoring.LLMConfig{
		Model:           cfg.Scoring.Model,
		TemplateVersion: cfg.Scoring.TemplateVersion,
		Timeout:         cfg.Scoring.Timeout,
	}, repo, repo, scoring.HeuristicScorer{}, nil)
	if err != nil {
		log.Fatalf("Failed to build scorer: %v", err)
	}

	llm, err := scorer.Score(ctx, *platform, m)
	if err != nil {
		log.Fatalf("Score failed: %v", err)
	}
	heuristic, _ := scoring.HeuristicScorer{}.Score(ctx, *platform, m)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"platform":  *platform,
		"metrics":   m,
		"llm":       llm,
		"heuristic": heuristic,
	})
}
