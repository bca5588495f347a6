package main

import (
	"context"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/clipmarket/db"
	"github.com/garnizeh/clipmarket/internal/config"
	"github.com/garnizeh/clipmarket/internal/db"
	"github.com/garnizeh/clipmarket/internal/repository/sqlite"
)

// Creates the marketplace schema, seeds the fraud-scoring prompt and reports
// what the LLM scorer will find.
func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	repo := sqlite.New(database, nil)
	schemas, err := repo.ListSchemas(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Schema listing error: %v\n", err)
		os.Exit(1)
	}
	for _, s := range schemas {
		fmt.Printf("schema %s: %s\n", s.Version, s.Description)
	}

	version := cfg.Scoring.TemplateVersion
	if version == "" {
		version = "v1"
	}
	tpl, err := repo.GetTemplate(ctx, "fraud", version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Template lookup error: %v\n", err)
		os.Exit(1)
	}
	if tpl == nil {
		fmt.Fprintf(os.Stderr, "fraud template %s was not seeded; llm scoring will not start\n", version)
		os.Exit(1)
	}
	schemaVer := "none"
	if tpl.SchemaVer != nil {
		schemaVer = *tpl.SchemaVer
	}
	fmt.Printf("template fraud:%s validates against schema %s\n", tpl.Version, schemaVer)

	fmt.Println("Database initialized successfully.")
}
