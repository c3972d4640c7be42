package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"obra/internal/config"
	"obra/internal/extract"
	"obra/internal/listener"
	"obra/internal/sheets"
	"obra/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	must(os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))
	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The mail index always lives in sqlite; log entries follow STORE_BACKEND.
	var store storage.TableStore = db
	if cfg.StoreBackend == "sheets" {
		store, err = sheets.NewStore(ctx, sheets.FromAppConfig(cfg), logger)
		must(err)
	}
	repo := storage.NewRepository(store, cfg.Project)
	svc := listener.NewService(db, repo, cfg, extract.NewRuleExtractor(), logger)

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
