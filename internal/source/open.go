package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/ingest"
)

// ErrUnknownSource is returned by Open for an unrecognized source kind.
var ErrUnknownSource = errors.New("unknown catalog source")

// Open builds the source selected by cfg.Catalog.Source. It returns a nil
// Source for config.SourceNone. The returned close function releases any
// connection pool and is never nil.
func Open(ctx context.Context, cfg *config.Config, pl *ingest.Pipeline) (Source, func(), error) {
	noop := func() {}

	switch cfg.Catalog.Source {
	case config.SourceNone, "":
		return nil, noop, nil

	case config.SourceFile:
		return NewCSVFile(cfg.Catalog.CSVPath, pl), noop, nil

	case config.SourceHTTP:
		headers := map[string]string{}
		if cfg.Catalog.FetchToken != "" {
			headers["Authorization"] = "Bearer " + cfg.Catalog.FetchToken
		}
		return NewHTTPCSV(HTTPConfig{
			URL:          cfg.Catalog.URL,
			Timeout:      cfg.Catalog.FetchTimeout,
			Retries:      cfg.Catalog.FetchRetries,
			RetryWait:    cfg.Catalog.RetryWait,
			RetryMaxWait: cfg.Catalog.RetryMaxWait,
			Headers:      headers,
		}, pl), noop, nil

	case config.SourcePostgres:
		pool, err := OpenPool(ctx, PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, noop, err
		}
		return NewPostgres(pool, pl), pool.Close, nil

	case config.SourceSQLite:
		return NewSQLiteSnapshot(cfg.Catalog.SnapshotPath, pl), noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Catalog.Source)
	}
}

// Fallback returns the snapshot source used when the primary source fails
// on startup, or nil when no snapshot is kept or the primary already reads
// the snapshot.
func Fallback(cfg *config.Config, pl *ingest.Pipeline) Source {
	if cfg.Catalog.SnapshotPath == "" || cfg.Catalog.Source == config.SourceSQLite {
		return nil
	}
	return NewSQLiteSnapshot(cfg.Catalog.SnapshotPath, pl)
}
