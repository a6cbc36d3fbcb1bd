// Package stats computes the aggregate dashboard statistics of a time window.
package stats

// StatusCodeCount is one bucket of the status code distribution. StatusCode
// is nil for records logged without one.
type StatusCodeCount struct {
	StatusCode *int64 `json:"elb_status_code"`
	Count      int64  `json:"count"`
}

// MethodCount is one bucket of the request method distribution
type MethodCount struct {
	Method string `json:"request_method"`
	Count  int64  `json:"count"`
}

// URLCount is a request URL with its number of requests
type URLCount struct {
	URL   string `json:"request_url"`
	Count int64  `json:"count"`
}

// URLBytes is a request URL with the bytes it transferred
type URLBytes struct {
	URL          string `json:"request_url"`
	TotalBytes   int64  `json:"total_bytes"`
	RequestCount int64  `json:"request_count"`
}

// URLLatency is a request URL with its average request processing time
type URLLatency struct {
	URL          string  `json:"request_url"`
	AvgTime      float64 `json:"avg_time"`
	RequestCount int64   `json:"request_count"`
}

// UserAgentCount is a user agent with its number of requests
type UserAgentCount struct {
	UserAgent string `json:"user_agent"`
	Count     int64  `json:"count"`
}

// Percentiles summarizes a latency distribution in seconds. Quantiles are
// zero when Count is zero.
type Percentiles struct {
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
	Count int64   `json:"count"`
}

// Statistics is the aggregate view of one time window. Lists are never nil.
type Statistics struct {
	TotalRequests             int64             `json:"totalRequests"`
	StatusCodeDistribution    []StatusCodeCount `json:"statusCodeDistribution"`
	RequestMethodDistribution []MethodCount     `json:"requestMethodDistribution"`
	TopURLs                   []URLCount        `json:"topUrls"`
	TopURLsByInBytes          []URLBytes        `json:"topUrlsByInBytes"`
	TopURLsByOutBytes         []URLBytes        `json:"topUrlsByOutBytes"`
	TopURLs4xx                []URLCount        `json:"topUrls4xx"`
	TopURLs5xx                []URLCount        `json:"topUrls5xx"`
	TopUserAgents             []UserAgentCount  `json:"topUserAgents"`
	TopURLsByResponseTime     []URLLatency      `json:"topUrlsByResponseTime"`
	TargetProcessingTime      Percentiles       `json:"targetProcessingTime"`
}
