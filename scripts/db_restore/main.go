package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/clipmarket/internal/config"
	"github.com/garnizeh/clipmarket/internal/db"
)

// Restore replaces the configured database with a backup. Stop the server
// first; the backup is integrity-checked before anything is overwritten.
func main() {
	src := flag.String("from", "", "Backup file produced by db_backup")
	flag.Parse()
	if *src == "" {
		fmt.Fprintln(os.Stderr, "Restore error: -from is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := checkBackup(*src); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	if err := copyFile(*src, cfg.DatabasePath); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	// stale journal files would be replayed over the restored data
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(cfg.DatabasePath + suffix)
	}

	fmt.Printf("Database restored from %s.\n", *src)
}

func checkBackup(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.New(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer database.Close()

	var result string
	if err := database.QueryRow(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup failed integrity check: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmp := dst + ".restore"
	dstFile, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
