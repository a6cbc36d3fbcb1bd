package ingest

import (
	"fmt"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// Batch accumulates valid records until it is flushed to storage
type Batch struct {
	Records   []accesslog.LogRecord
	FirstLine int // physical line number of the first record, 0 for Load
	LastLine  int
}

func newBatch(size int) *Batch {
	return &Batch{Records: make([]accesslog.LogRecord, 0, size)}
}

func (b *Batch) add(rec accesslog.LogRecord, line int) {
	if len(b.Records) == 0 {
		b.FirstLine = line
	}
	b.Records = append(b.Records, rec)
	b.LastLine = line
}

func (b *Batch) reset() {
	b.Records = b.Records[:0]
	b.FirstLine = 0
	b.LastLine = 0
}

// String returns a string representation for logging
func (b *Batch) String() string {
	return fmt.Sprintf("Batch{Records: %d, Lines: [%d, %d]}", len(b.Records), b.FirstLine, b.LastLine)
}
