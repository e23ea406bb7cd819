package main

import (
	"context"
	"os"

	"screentime/internal/config"
	"screentime/internal/docstore"
	"screentime/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWithLevel(logging.LevelFromString(cfg.LogLevel))

	open := func(ctx context.Context) (docstore.Store, func() error, error) {
		return docstore.Open(ctx, cfg)
	}

	if err := newRootCmd(cfg, open).Execute(); err != nil {
		os.Exit(1)
	}
}
