// Package service holds the catalog the HTTP layer serves.
//
// A Catalog owns one immutable Snapshot at a time. Reloads and uploads build
// a complete new snapshot off to the side and swap it in with a single atomic
// store, so readers never lock and never observe a half-built catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/source"
)

var (
	// ErrNoSource is returned by Reload when no source is configured.
	ErrNoSource = errors.New("no catalog source configured")

	// ErrNoHeader rejects an upload whose first line lacks product_id.
	ErrNoHeader = errors.New("no header row with a product_id column")

	// ErrEmptyUpload rejects an upload without a single data row.
	ErrEmptyUpload = errors.New("empty file: no product rows")
)

// Snapshot is one loaded catalog. Snapshots are never modified after they
// are published.
type Snapshot struct {
	ID       string         `json:"id"`
	Store    *catalog.Store `json:"-"`
	Report   ingest.Report  `json:"report"`
	Source   string         `json:"source"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// Options configure a Catalog. Source, Fallback and SnapshotPath are optional.
type Options struct {
	Source   source.Source
	Fallback source.Source // tried when Source fails and nothing is loaded yet
	Pipeline *ingest.Pipeline
	Limiter  *IngestLimiter
	Taxonomy catalog.Taxonomy

	// SnapshotPath, when set, receives a SQLite snapshot after every
	// successful swap.
	SnapshotPath string

	Logger *slog.Logger
}

// Catalog serves the current snapshot and replaces it on reload or upload.
type Catalog struct {
	current atomic.Pointer[Snapshot]

	source       source.Source
	fallback     source.Source
	pipeline     *ingest.Pipeline
	limiter      *IngestLimiter
	taxonomy     catalog.Taxonomy
	snapshotPath string
	snapshotMu   sync.Mutex // serializes snapshot file writes
	logger       *slog.Logger
}

// New returns a Catalog holding an empty snapshot.
func New(opts Options) *Catalog {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pl := opts.Pipeline
	if pl == nil {
		pl = ingest.NewPipeline(ingest.Options{Mappings: ingest.DefaultMappings(), Logger: logger})
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewIngestLimiter(DefaultMaxConcurrentIngests, DefaultMaxWaitTime)
	}
	taxonomy := opts.Taxonomy
	if len(taxonomy.Roots) == 0 {
		taxonomy = catalog.DefaultTaxonomy()
	}

	c := &Catalog{
		source:       opts.Source,
		fallback:     opts.Fallback,
		pipeline:     pl,
		limiter:      limiter,
		taxonomy:     taxonomy,
		snapshotPath: opts.SnapshotPath,
		logger:       logger,
	}
	c.current.Store(&Snapshot{
		ID:       "empty",
		Store:    catalog.NewStore(nil),
		Report:   ingest.Report{Warnings: []ingest.Warning{}, MissingColumns: []string{}},
		LoadedAt: time.Now().UTC(),
	})
	return c
}

// Snapshot returns the snapshot currently served.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Query runs q against the current snapshot.
func (c *Catalog) Query(q catalog.Query) (catalog.Result, error) {
	return c.Snapshot().Store.Query(q)
}

// Product looks up one product in the current snapshot.
func (c *Catalog) Product(id string) (catalog.Product, error) {
	return c.Snapshot().Store.Get(id)
}

// Categories returns the category tree with counts from the current snapshot.
func (c *Catalog) Categories() []catalog.Category {
	return c.Snapshot().Store.Categories(c.taxonomy)
}

// LimiterStatus reports the ingestion limiter's state.
func (c *Catalog) LimiterStatus() LimiterStatus {
	return c.limiter.Status()
}

// WaitForIngests blocks until running ingestions finish or ctx is done.
func (c *Catalog) WaitForIngests(ctx context.Context) error {
	return c.limiter.WaitForDrain(ctx)
}

// Reload loads the configured source and swaps the result in. On error the
// current snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) (*Snapshot, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	src := c.source
	res, err := src.Load(ctx)
	if err != nil && c.fallback != nil && c.Snapshot().Store.Len() == 0 {
		c.logger.Warn("catalog source failed, trying fallback",
			"source", src.Name(),
			"fallback", c.fallback.Name(),
			"error", err,
		)
		src = c.fallback
		res, err = src.Load(ctx)
	}
	if err != nil {
		c.logger.Error("catalog reload failed", "source", src.Name(), "error", err)
		return nil, fmt.Errorf("reload catalog from %s: %w", src.Name(), err)
	}
	if !res.Report.HasColumn(ingest.ColProductID) {
		return nil, fmt.Errorf("reload catalog from %s: %w", src.Name(), ErrNoHeader)
	}

	return c.publish(ctx, src.Name(), res), nil
}

// Ingest replaces the catalog with the CSV read from r. name labels the
// snapshot's source; size may be 0 when unknown. An upload that has no
// product_id column or no data rows is rejected and leaves the current
// snapshot in place.
func (c *Catalog) Ingest(ctx context.Context, name string, r io.Reader, size int64) (*Snapshot, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	res, err := c.pipeline.RunSized(ctx, r, size)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", name, err)
	}
	if !res.Report.HasColumn(ingest.ColProductID) {
		return nil, fmt.Errorf("ingest %s: %w", name, ErrNoHeader)
	}
	if res.Report.TotalRows == 0 {
		return nil, fmt.Errorf("ingest %s: %w", name, ErrEmptyUpload)
	}

	res.Report.Source = "upload:" + name
	return c.publish(ctx, res.Report.Source, res), nil
}

func (c *Catalog) publish(ctx context.Context, from string, res ingest.Result) *Snapshot {
	snap := &Snapshot{
		ID:       res.Report.ID,
		Store:    res.Store(),
		Report:   res.Report,
		Source:   from,
		LoadedAt: time.Now().UTC(),
	}
	prev := c.current.Swap(snap)

	c.logger.Info("catalog snapshot published",
		"snapshot_id", snap.ID,
		"source", from,
		"products", snap.Store.Len(),
		"previous_products", prev.Store.Len(),
		"rejected", snap.Report.Rejected(),
	)

	if c.writesSnapshot(from) {
		c.persist(ctx, snap, res.Products)
	}
	return snap
}

// persist writes snap to the snapshot file unless a newer snapshot was
// published in the meantime, so the file always ends up holding the
// catalog being served.
func (c *Catalog) persist(ctx context.Context, snap *Snapshot, products []catalog.Product) {
	c.snapshotMu.Lock()
	defer c.snapshotMu.Unlock()

	if c.current.Load() != snap {
		c.logger.Debug("catalog snapshot superseded, not written", "snapshot_id", snap.ID)
		return
	}
	if err := source.WriteSnapshot(ctx, c.snapshotPath, products); err != nil {
		c.logger.Warn("catalog snapshot not written", "path", c.snapshotPath, "error", err)
	}
}

// writesSnapshot reports whether a snapshot loaded from src should be
// persisted. A catalog restored from the fallback is already on disk.
func (c *Catalog) writesSnapshot(src string) bool {
	if c.snapshotPath == "" {
		return false
	}
	return c.fallback == nil || src != c.fallback.Name()
}
