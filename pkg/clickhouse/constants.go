package clickhouse

// DatabaseName is the default ClickHouse database used for log storage
const DatabaseName = "logs"

// Skip index names of the access log table
const (
	IndexStatusCode = "idx_elb_status_code"
	IndexRequestURL = "idx_request_url"
	IndexUserAgent  = "idx_user_agent"
)
