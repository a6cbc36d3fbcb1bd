package accesslog

// Validate reports whether every required field of the record is present:
// numbers non-nil, strings non-empty, timestamp non-zero.
// It never mutates the record.
func Validate(rec *LogRecord) bool {
	return len(MissingFields(rec)) == 0
}

// MissingFields returns the column names of the required fields that are
// absent from the record, in log order
func MissingFields(rec *LogRecord) []string {
	var missing []string
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}

	check(rec.Type != "", "type")
	check(!rec.Timestamp.IsZero(), "timestamp")
	check(rec.ELB != "", "elb")
	check(rec.Client != "", "client")
	check(rec.Target != "", "target")
	check(rec.RequestProcessingTime != nil, "request_processing_time")
	check(rec.TargetProcessingTime != nil, "target_processing_time")
	check(rec.ResponseProcessingTime != nil, "response_processing_time")
	check(rec.ELBStatusCode != nil, "elb_status_code")
	check(rec.TargetStatusCode != nil, "target_status_code")
	check(rec.ReceivedBytes != nil, "received_bytes")
	check(rec.SentBytes != nil, "sent_bytes")
	check(rec.RequestMethod != "", "request_method")
	check(rec.RequestURL != "", "request_url")

	return missing
}
