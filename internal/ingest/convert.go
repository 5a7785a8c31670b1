package ingest

// convert.go holds the lenient cell parsers used by the Mapper.
//
// Numbers are read the way a browser's parseFloat reads them: the longest
// numeric prefix counts and trailing text ("12 kg", "49.99EUR") is ignored.
// A cell with no numeric prefix parses as zero and the caller records a
// warning. Empty cells are zero without a warning.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	integerPrefix = regexp.MustCompile(`^[+-]?\d+`)
)

// timeLayouts are tried in order for the created_at column.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// parseDecimal returns the numeric prefix of s. ok is false when s is
// non-empty and has no numeric prefix.
func parseDecimal(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}
	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseFloat is parseDecimal for measurements.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseInt reads the leading integer of s, so "12.5" is 12.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	prefix := integerPrefix.FindString(s)
	if prefix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// splitList splits a list cell on sep, or on whitespace runs when sep is
// empty. Empty tokens are dropped.
func splitList(s, sep string) []string {
	var parts []string
	if sep == "" {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, sep)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
