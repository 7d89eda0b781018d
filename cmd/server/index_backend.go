package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"gridtactics.dev/internal/persistence/indexdb"
)

// openRuntimeIndex opens the command index for one game run. It returns nil when
// indexing is disabled.
func openRuntimeIndex(gameDir, runID string, c serverConfig) (*indexdb.Index, error) {
	if c.DisableDB {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(c.IndexBackend))
	if backend == "" {
		backend = "sqlite"
	}
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(gameDir, "index", "game.sqlite"), runID)
	case "postgres", "postgresql":
		if strings.TrimSpace(c.IndexDSN) == "" {
			return nil, fmt.Errorf("GT_INDEX_DSN is required for the postgres backend")
		}
		return indexdb.OpenPostgres(c.IndexDSN, runID)
	default:
		return nil, fmt.Errorf("unsupported GT_INDEX_BACKEND: %s", backend)
	}
}
