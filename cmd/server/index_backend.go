package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"starroom.ai/internal/persistence/indexdb"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	room.EventLogger
	Close() error
	UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error
	SolveStats(ctx context.Context) ([]indexdb.PuzzleStat, error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SR_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "sessions.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "d1":
		endpoint := strings.TrimSpace(os.Getenv("SR_INDEX_D1_INGEST_URL"))
		if endpoint == "" {
			return nil, fmt.Errorf("SR_INDEX_BACKEND=d1 but SR_INDEX_D1_INGEST_URL is empty")
		}
		idx, err := indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			StatsEndpoint: strings.TrimSpace(os.Getenv("SR_INDEX_D1_STATS_URL")),
			Token:         strings.TrimSpace(os.Getenv("SR_INDEX_D1_TOKEN")),
			BatchSize:     envInt("SR_INDEX_D1_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("SR_INDEX_D1_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported SR_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
