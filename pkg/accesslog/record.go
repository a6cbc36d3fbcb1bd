package accesslog

import "time"

// LogRecord represents a single parsed load balancer access log entry.
// Maps to the ALB/ELB access log fields, in log order.
//
// Numeric fields are pointers: a nil value means the log carried the "-"
// sentinel (or an unparseable token), which is never the same as zero.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"` // field 2: time (UTC)

	Type   string `json:"type"`   // field 1: http, https, h2, grpcs, ws, wss
	ELB    string `json:"elb"`    // field 3: load balancer resource ID
	Client string `json:"client"` // field 4: client:port
	Target string `json:"target"` // field 5: target:port

	RequestMethod string `json:"request_method"` // field 13: request line method
	RequestURL    string `json:"request_url"`    // field 13: request line URL
	UserAgent     string `json:"user_agent"`     // field 14: may contain spaces

	SSLCipher            string `json:"ssl_cipher"`              // field 15
	SSLProtocol          string `json:"ssl_protocol"`            // field 16
	TargetGroupARN       string `json:"target_group_arn"`        // field 17
	TraceID              string `json:"trace_id"`                // field 18
	DomainName           string `json:"domain_name"`             // field 19
	ChosenCertARN        string `json:"chosen_cert_arn"`         // field 20
	MatchedRulePriority  string `json:"matched_rule_priority"`   // field 21
	RequestCreationTime  string `json:"request_creation_time"`   // field 22
	ActionsExecuted      string `json:"actions_executed"`        // field 23
	RedirectURL          string `json:"redirect_url"`            // field 24
	LambdaErrorReason    string `json:"lambda_error_reason"`     // field 25
	TargetPortList       string `json:"target_port_list"`        // field 26
	TargetStatusCodeList string `json:"target_status_code_list"` // field 27
	NewField             string `json:"new_field"`               // reserved extension field

	RequestProcessingTime  *float64 `json:"request_processing_time"`  // field 6: seconds
	TargetProcessingTime   *float64 `json:"target_processing_time"`   // field 7: seconds
	ResponseProcessingTime *float64 `json:"response_processing_time"` // field 8: seconds

	ELBStatusCode    *int64 `json:"elb_status_code"`    // field 9
	TargetStatusCode *int64 `json:"target_status_code"` // field 10
	ReceivedBytes    *int64 `json:"received_bytes"`     // field 11
	SentBytes        *int64 `json:"sent_bytes"`         // field 12

	// ID is the surrogate key assigned by storage; zero until persisted.
	ID int64 `json:"id"`
}
