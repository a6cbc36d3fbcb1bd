package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// BaseTime is the timestamp of the first record built by RecordAt
var BaseTime = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// StrPtr returns a pointer to s
func StrPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 {
	return &f
}

// Int64Ptr returns a pointer to n
func Int64Ptr(n int64) *int64 {
	return &n
}

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time {
	return &t
}

// NewRecord builds a valid record with the given request attributes.
// All other required fields are filled with fixed values.
func NewRecord(ts time.Time, method, url string, status int64) accesslog.LogRecord {
	return accesslog.LogRecord{
		Type:                   "https",
		Timestamp:              ts.UTC(),
		ELB:                    "app/my-loadbalancer/50dc6c495c0c9188",
		Client:                 "192.168.131.39:2817",
		Target:                 "10.0.0.1:80",
		RequestProcessingTime:  Float64Ptr(0.001),
		TargetProcessingTime:   Float64Ptr(0.048),
		ResponseProcessingTime: Float64Ptr(0.0),
		ELBStatusCode:          Int64Ptr(status),
		TargetStatusCode:       Int64Ptr(status),
		ReceivedBytes:          Int64Ptr(257),
		SentBytes:              Int64Ptr(1024),
		RequestMethod:          method,
		RequestURL:             url,
		UserAgent:              "curl/7.46.0",
		SSLCipher:              "ECDHE-RSA-AES128-GCM-SHA256",
		SSLProtocol:            "TLSv1.2",
		TargetGroupARN:         "arn:aws:elasticloadbalancing:us-east-2:123456789012:targetgroup/my-targets/73e2d6bc24d8a067",
		TraceID:                "Root=1-58337262-36d228ad5d99923122bbe354",
		DomainName:             "www.example.com",
		ChosenCertARN:          "arn:aws:acm:us-east-2:123456789012:certificate/12345678-1234-1234-1234-123456789012",
		MatchedRulePriority:    "1",
		RequestCreationTime:    "2024-03-15T09:59:59.999000Z",
		ActionsExecuted:        "forward",
		RedirectURL:            "-",
		LambdaErrorReason:      "-",
		TargetPortList:         "10.0.0.1:80",
		TargetStatusCodeList:   fmt.Sprintf("%d", status),
		NewField:               "-",
	}
}

// RecordAt builds the i-th record of a deterministic fixture set: one second
// apart starting at BaseTime, GET requests on /item/<i mod 10>, status 200
func RecordAt(i int) accesslog.LogRecord {
	return NewRecord(BaseTime.Add(time.Duration(i)*time.Second), "GET",
		fmt.Sprintf("https://www.example.com:443/item/%d", i%10), 200)
}

// Records builds n fixture records with RecordAt
func Records(n int) []accesslog.LogRecord {
	records := make([]accesslog.LogRecord, n)
	for i := range records {
		records[i] = RecordAt(i)
	}
	return records
}

// LogLine renders a record as a full-format access log line
func LogLine(rec accesslog.LogRecord) string {
	return accesslog.FormatFullLine(&rec)
}

// LogText renders records as newline-separated full-format lines
func LogText(records []accesslog.LogRecord) string {
	return string(accesslog.FormatLines(records))
}

// JoinLines joins lines with newlines, terminating the last one
func JoinLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}
