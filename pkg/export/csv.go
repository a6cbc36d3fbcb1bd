// Package export renders access log records as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// Columns is the header of every export, in column order
var Columns = []string{
	"timestamp",
	"request_method",
	"request_url",
	"elb_status_code",
	"target_status_code",
	"received_bytes",
	"sent_bytes",
	"user_agent",
}

// Writer streams records as CSV rows. The header is written by NewWriter so
// an export without records is still a valid file.
type Writer struct {
	csv  *csv.Writer
	row  []string
	rows int
}

// NewWriter writes the header to w and returns a writer for the rows
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return &Writer{csv: cw, row: make([]string, len(Columns))}, nil
}

// Write appends one record. Null numbers are written as empty cells.
func (w *Writer) Write(rec *accesslog.LogRecord) error {
	w.row[0] = formatTime(rec.Timestamp)
	w.row[1] = rec.RequestMethod
	w.row[2] = rec.RequestURL
	w.row[3] = formatInt(rec.ELBStatusCode)
	w.row[4] = formatInt(rec.TargetStatusCode)
	w.row[5] = formatInt(rec.ReceivedBytes)
	w.row[6] = formatInt(rec.SentBytes)
	w.row[7] = rec.UserAgent
	if err := w.csv.Write(w.row); err != nil {
		return fmt.Errorf("failed to write csv row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of records written
func (w *Writer) Rows() int {
	return w.rows
}

// Flush writes buffered rows to the underlying writer
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
