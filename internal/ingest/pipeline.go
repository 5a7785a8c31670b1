package ingest

// pipeline.go runs a whole CSV text through the ingestion stages:
//
//	text reader -> line scanner -> SplitLine -> Mapper -> Normalizer
//	            -> Validator -> duplicate check -> Result
//
// Data problems never fail a run. Malformed, invalid and duplicate rows are
// counted in the Report and left out of the Result; the only errors Run
// returns come from the reader or the context.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/google/uuid"
)

// ContextCheckInterval is how many rows are processed between checks for
// cancellation and progress callbacks.
var ContextCheckInterval = 100

// Progress is reported to Options.OnProgress while a run is in flight.
type Progress struct {
	Rows      int
	BytesRead int64
	Percent   int // 0 when the input size is unknown
}

// Options configure a Pipeline.
type Options struct {
	Mappings      Mappings
	ListSeparator string
	MaxWarnings   int // 0 uses DefaultMaxWarnings
	Logger        *slog.Logger
	OnProgress    func(Progress)
}

// Pipeline turns CSV text into validated products. A Pipeline holds no
// per-run state and may be shared.
type Pipeline struct {
	mapper      *Mapper
	normalizer  *Normalizer
	validator   *Validator
	maxWarnings int
	logger      *slog.Logger
	onProgress  func(Progress)
}

// NewPipeline builds a Pipeline from opts.
func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxWarnings := opts.MaxWarnings
	if maxWarnings <= 0 {
		maxWarnings = DefaultMaxWarnings
	}

	return &Pipeline{
		mapper:      &Mapper{ListSeparator: opts.ListSeparator, Logger: logger},
		normalizer:  NewNormalizer(opts.Mappings),
		validator:   NewValidator(),
		maxWarnings: maxWarnings,
		logger:      logger,
		onProgress:  opts.OnProgress,
	}
}

// Normalizer returns the pipeline's normalizer. Sources that bypass the CSV
// stages use it to classify products the same way.
func (pl *Pipeline) Normalizer() *Normalizer {
	return pl.normalizer
}

// Validator returns the pipeline's validator.
func (pl *Pipeline) Validator() *Validator {
	return pl.validator
}

// run is the mutable state of one ingestion.
type run struct {
	pl     *Pipeline
	report Report
	seen   map[string]int // product id -> line
	out    []catalog.Product
}

func (r *run) warn(w Warning) {
	if len(r.report.Warnings) >= r.pl.maxWarnings {
		r.report.DroppedWarnings++
		return
	}
	r.report.Warnings = append(r.report.Warnings, w)
}

// admit runs a mapped product through invariant repair, normalization,
// validation and the duplicate check.
func (r *run) admit(line int, p catalog.Product) {
	p, fixes := repair(p)
	r.report.DefaultedFields += len(fixes)
	for _, w := range fixes {
		w.Line = line
		r.pl.logger.Debug("catalog field repaired", "line", line, "field", w.Field, "message", w.Message)
		r.warn(w)
	}

	p = r.pl.normalizer.Normalize(p)

	if err := r.pl.validator.Validate(p); err != nil {
		r.report.Invalid++
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				r.warn(Warning{Line: line, Field: ve.Field, Message: "rejected: " + ve.Message})
			}
		} else {
			r.warn(Warning{Line: line, Message: "rejected: " + err.Error()})
		}
		return
	}

	if first, dup := r.seen[p.ID]; dup {
		r.report.Duplicates++
		r.warn(Warning{
			Line:    line,
			Field:   "id",
			Message: fmt.Sprintf("duplicate product_id %q, first seen on line %d", p.ID, first),
		})
		return
	}
	r.seen[p.ID] = line

	r.report.Accepted++
	r.out = append(r.out, p)
}

// Run reads CSV text from r. The first non-blank line is the header.
func (pl *Pipeline) Run(ctx context.Context, r io.Reader) (Result, error) {
	return pl.RunSized(ctx, r, 0)
}

// RunSized is Run with the input size known up front, for progress
// reporting.
func (pl *Pipeline) RunSized(ctx context.Context, r io.Reader, size int64) (Result, error) {
	st := &run{
		pl:   pl,
		seen: make(map[string]int),
		report: Report{
			ID:        uuid.NewString(),
			StartedAt: time.Now().UTC(),
			Warnings:  []Warning{},
		},
	}

	text, counter := WrapForStreaming(r, size)
	lines := bufio.NewReader(text)

	var (
		headers []string
		lineNum int
	)

	for {
		raw, readErr := lines.ReadString('\n')
		if raw == "" && readErr != nil {
			if readErr == io.EOF {
				break
			}
			return Result{}, fmt.Errorf("read catalog line %d: %w", lineNum+1, readErr)
		}
		lineNum++

		line := strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(line) != "" {
			if headers == nil {
				headers = parseHeader(line)
				st.report.MissingColumns = missingColumns(headers)
			} else {
				st.report.TotalRows++
				if err := pl.row(ctx, st, lineNum, line, headers, counter); err != nil {
					return Result{}, err
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("read catalog line %d: %w", lineNum, readErr)
		}
	}

	if headers == nil {
		st.report.MissingColumns = ExpectedColumns()
	}

	st.report.BytesRead = counter.BytesRead()
	st.report.Duration = time.Since(st.report.StartedAt)

	pl.logger.Info("catalog ingested",
		"report_id", st.report.ID,
		"rows", st.report.TotalRows,
		"accepted", st.report.Accepted,
		"malformed", st.report.Malformed,
		"invalid", st.report.Invalid,
		"duplicates", st.report.Duplicates,
		"defaulted_fields", st.report.DefaultedFields,
		"duration", st.report.Duration,
	)
	if len(st.report.MissingColumns) > 0 {
		pl.logger.Warn("catalog header is missing columns", "columns", st.report.MissingColumns)
	}

	if st.out == nil {
		st.out = []catalog.Product{}
	}
	return Result{Products: st.out, Report: st.report}, nil
}

func (pl *Pipeline) row(ctx context.Context, st *run, lineNum int, line string, headers []string, counter *CountingReader) error {
	if (st.report.TotalRows-1)%ContextCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingest cancelled at line %d: %w", lineNum, err)
		}
		if pl.onProgress != nil {
			pl.onProgress(Progress{
				Rows:      st.report.TotalRows,
				BytesRead: counter.BytesRead(),
				Percent:   counter.Progress(),
			})
		}
	}

	values := SplitLine(line)
	p, warnings, ok := pl.mapper.MapRow(headers, values)
	if !ok {
		st.report.Malformed++
		st.warn(Warning{
			Line:    lineNum,
			Message: fmt.Sprintf("row has %d fields, header has %d", len(values), len(headers)),
		})
		return nil
	}

	st.report.DefaultedFields += len(warnings)
	for _, w := range warnings {
		w.Line = lineNum
		pl.logger.Debug("catalog cell defaulted", "line", lineNum, "field", w.Field, "message", w.Message)
		st.warn(w)
	}

	st.admit(lineNum, p)
	return nil
}

// Admit runs already-mapped products (from a non-CSV source) through the
// same invariant repair, normalization, validation and duplicate check as
// CSV rows. Line numbers in the
// report are positions in products, starting at 1.
func (pl *Pipeline) Admit(products []catalog.Product) Result {
	st := &run{
		pl:   pl,
		seen: make(map[string]int),
		report: Report{
			ID:             uuid.NewString(),
			StartedAt:      time.Now().UTC(),
			Warnings:       []Warning{},
			MissingColumns: []string{},
		},
	}
	for i, p := range products {
		st.report.TotalRows++
		st.admit(i+1, p)
	}
	st.report.Duration = time.Since(st.report.StartedAt)
	if st.out == nil {
		st.out = []catalog.Product{}
	}
	return Result{Products: st.out, Report: st.report}
}

func parseHeader(line string) []string {
	headers := SplitLine(line)
	for i, h := range headers {
		headers[i] = strings.ToLower(h)
	}
	return headers
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	missing := []string{}
	for _, col := range ExpectedColumns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
