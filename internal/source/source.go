// Package source loads a catalog from where it lives: a CSV file on disk, a
// CSV export behind an HTTP endpoint, the Postgres catalog datastore or a
// SQLite snapshot written by an earlier run.
//
// Every source hands its products through the same ingest.Pipeline, so the
// query engine sees identical Product values whichever source produced them.
package source

import (
	"context"
	"os"

	"github.com/JonMunkholm/catalog/internal/ingest"
)

// Source produces a complete catalog.
type Source interface {
	// Name identifies the source in logs and ingestion reports.
	Name() string
	// Load reads the whole catalog. Data problems are reported in the
	// result; an error means the source could not be read at all.
	Load(ctx context.Context) (ingest.Result, error)
}

// CSVFile reads a catalog export from the local filesystem.
type CSVFile struct {
	Path     string
	Pipeline *ingest.Pipeline
}

// NewCSVFile returns a source reading path.
func NewCSVFile(path string, pl *ingest.Pipeline) *CSVFile {
	return &CSVFile{Path: path, Pipeline: pl}
}

func (s *CSVFile) Name() string {
	return "file:" + s.Path
}

func (s *CSVFile) Load(ctx context.Context) (ingest.Result, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return ingest.Result{}, err
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	res, err := s.Pipeline.RunSized(ctx, f, size)
	if err != nil {
		return ingest.Result{}, err
	}
	res.Report.Source = s.Name()
	return res, nil
}
