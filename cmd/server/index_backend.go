package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"redstonemusic.ai/internal/persistence/indexdb"
	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/tuning"
	"redstonemusic.ai/internal/transport/ws"
)

type runtimeIndex interface {
	engine.Recorder
	ws.Locator
	Close() error
	Recent(ctx context.Context, limit int) ([]engine.Result, error)
	UpsertCatalogs(palette []string, paletteDigest string, tune tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(dbPath string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported RM_INDEX_BACKEND: %s", backend)
	}
}
