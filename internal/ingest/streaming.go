package ingest

// streaming.go prepares raw catalog bytes for the line scanner without
// buffering the whole file:
//
//   - a UTF-8 BOM written by spreadsheet exports is dropped
//   - invalid UTF-8 sequences become U+FFFD
//   - bytes are counted for the ingestion report and progress logging

import (
	"io"
	"sync/atomic"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader strips a leading BOM from r and replaces invalid UTF-8.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// CountingReader tracks the bytes read from the wrapped reader. BytesRead
// may be called from another goroutine while reading is in progress.
type CountingReader struct {
	reader    io.Reader
	bytesRead atomic.Int64
	Total     int64 // 0 when unknown
}

// NewCountingReader wraps r. total is the expected size, or 0.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead.Add(int64(n))
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *CountingReader) BytesRead() int64 {
	return r.bytesRead.Load()
}

// Progress returns the read progress as a percentage (0-100), or 0 when
// the total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(min(r.BytesRead()*100/r.Total, 100))
}

// WrapForStreaming applies NewTextReader and counts the raw bytes consumed
// from r.
func WrapForStreaming(r io.Reader, total int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, total)
	return NewTextReader(counter), counter
}
