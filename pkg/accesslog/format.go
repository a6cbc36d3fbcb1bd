package accesslog

import (
	"bytes"
	"strconv"
	"time"
)

// timestampLayout is the layout the load balancer uses for the time field
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// requestProtocol is written in the request line, which LogRecord does not keep
const requestProtocol = "HTTP/1.1"

// FormatFullLine renders a record as a full-format access log line (without
// newline). Nil numbers and empty strings are written as "-".
func FormatFullLine(rec *LogRecord) string {
	var buf bytes.Buffer
	writeLogRecord(&buf, rec)
	return buf.String()
}

// FormatLines renders records as newline-terminated full-format lines
func FormatLines(records []LogRecord) []byte {
	var buf bytes.Buffer

	for i := range records {
		writeLogRecord(&buf, &records[i])
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

// writeLogRecord writes a single record in load balancer field order
func writeLogRecord(w *bytes.Buffer, rec *LogRecord) {
	writeString(w, rec.Type) // 1. type
	w.WriteByte(' ')
	writeTimestamp(w, rec.Timestamp) // 2. time
	w.WriteByte(' ')
	writeString(w, rec.ELB) // 3. elb
	w.WriteByte(' ')
	writeString(w, rec.Client) // 4. client:port
	w.WriteByte(' ')
	writeString(w, rec.Target) // 5. target:port
	w.WriteByte(' ')
	writeFloatPtr(w, rec.RequestProcessingTime) // 6.
	w.WriteByte(' ')
	writeFloatPtr(w, rec.TargetProcessingTime) // 7.
	w.WriteByte(' ')
	writeFloatPtr(w, rec.ResponseProcessingTime) // 8.
	w.WriteByte(' ')
	writeIntPtr(w, rec.ELBStatusCode) // 9.
	w.WriteByte(' ')
	writeIntPtr(w, rec.TargetStatusCode) // 10.
	w.WriteByte(' ')
	writeIntPtr(w, rec.ReceivedBytes) // 11.
	w.WriteByte(' ')
	writeIntPtr(w, rec.SentBytes) // 12.
	w.WriteByte(' ')
	writeRequestLine(w, rec) // 13. "METHOD URL PROTOCOL"
	w.WriteByte(' ')
	writeQuoted(w, rec.UserAgent) // 14.
	w.WriteByte(' ')
	writeString(w, rec.SSLCipher)
	w.WriteByte(' ')
	writeString(w, rec.SSLProtocol)
	w.WriteByte(' ')
	writeString(w, rec.TargetGroupARN)
	w.WriteByte(' ')
	writeQuoted(w, rec.TraceID)
	w.WriteByte(' ')
	writeQuoted(w, rec.DomainName)
	w.WriteByte(' ')
	writeQuoted(w, rec.ChosenCertARN)
	w.WriteByte(' ')
	writeString(w, rec.MatchedRulePriority)
	w.WriteByte(' ')
	writeString(w, rec.RequestCreationTime)
	w.WriteByte(' ')
	writeQuoted(w, rec.ActionsExecuted)
	w.WriteByte(' ')
	writeQuoted(w, rec.RedirectURL)
	w.WriteByte(' ')
	writeQuoted(w, rec.LambdaErrorReason)
	w.WriteByte(' ')
	writeQuoted(w, rec.TargetPortList)
	w.WriteByte(' ')
	writeQuoted(w, rec.TargetStatusCodeList)
	w.WriteByte(' ')
	writeQuoted(w, rec.NewField)
	w.WriteString(` "-"`) // reserved, never mapped
}

func writeString(w *bytes.Buffer, s string) {
	if s == "" {
		w.WriteByte('-')
		return
	}
	w.WriteString(s)
}

// writeQuoted writes a quoted field; empty is written as "-" inside quotes
func writeQuoted(w *bytes.Buffer, s string) {
	w.WriteByte('"')
	writeString(w, s)
	w.WriteByte('"')
}

func writeRequestLine(w *bytes.Buffer, rec *LogRecord) {
	w.WriteByte('"')
	writeString(w, rec.RequestMethod)
	w.WriteByte(' ')
	writeString(w, rec.RequestURL)
	w.WriteByte(' ')
	w.WriteString(requestProtocol)
	w.WriteByte('"')
}

func writeTimestamp(w *bytes.Buffer, t time.Time) {
	if t.IsZero() {
		w.WriteByte('-')
		return
	}
	w.WriteString(t.UTC().Format(timestampLayout))
}

func writeFloatPtr(w *bytes.Buffer, f *float64) {
	if f == nil {
		w.WriteByte('-')
		return
	}
	w.WriteString(strconv.FormatFloat(*f, 'f', -1, 64))
}

func writeIntPtr(w *bytes.Buffer, n *int64) {
	if n == nil {
		w.WriteByte('-')
		return
	}
	w.WriteString(strconv.FormatInt(*n, 10))
}
