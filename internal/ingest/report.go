package ingest

import (
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// DefaultMaxWarnings bounds Report.Warnings.
const DefaultMaxWarnings = 500

// Warning is a data problem found on one line. Line is 1-based and counts
// the header; it is 0 for warnings not tied to a line.
type Warning struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Report describes one ingestion run. Every row read ends up in exactly one
// of Accepted, Malformed, Invalid or Duplicates.
type Report struct {
	ID        string        `json:"id"`
	Source    string        `json:"source,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"` // nanoseconds
	BytesRead int64         `json:"bytes_read"`

	TotalRows  int `json:"total_rows"`
	Accepted   int `json:"accepted"`
	Malformed  int `json:"malformed"`  // field count differs from the header
	Invalid    int `json:"invalid"`    // rejected by the Validator
	Duplicates int `json:"duplicates"` // product_id seen earlier in the file

	DefaultedFields int       `json:"defaulted_fields"`
	Warnings        []Warning `json:"warnings"`
	DroppedWarnings int       `json:"dropped_warnings,omitempty"` // beyond the bound

	MissingColumns []string `json:"missing_columns"`
}

// Rejected returns the number of rows that did not make it into the catalog.
func (r Report) Rejected() int {
	return r.Malformed + r.Invalid + r.Duplicates
}

// HasColumn reports whether the header carried col.
func (r Report) HasColumn(col string) bool {
	for _, m := range r.MissingColumns {
		if m == col {
			return false
		}
	}
	return true
}

// Result is the outcome of an ingestion run.
type Result struct {
	Products []catalog.Product
	Report   Report
}

// Store builds a catalog store from the accepted products.
func (r Result) Store() *catalog.Store {
	return catalog.NewStore(r.Products)
}
