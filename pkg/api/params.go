package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// badRequestError reports an invalid request parameter
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// parseDate parses an RFC 3339 instant or a YYYY-MM-DD date in UTC. A date
// used as an end bound covers its whole day.
func parseDate(name, value string, endBound bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	day, err := time.ParseInLocation(dateOnlyLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, badRequest("invalid %s %q: expected RFC 3339 or YYYY-MM-DD", name, value)
	}
	if endBound {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}

// optionalDate returns nil when the parameter is absent
func optionalDate(q url.Values, name string, endBound bool) (*time.Time, error) {
	value := q.Get(name)
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(name, value, endBound)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// requiredWindow parses the startDate and endDate parameters
func requiredWindow(q url.Values) (time.Time, time.Time, error) {
	startValue, endValue := q.Get("startDate"), q.Get("endDate")
	if startValue == "" || endValue == "" {
		return time.Time{}, time.Time{}, badRequest("Start date and end date are required")
	}
	start, err := parseDate("startDate", startValue, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("endDate", endValue, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, badRequest("endDate must not be before startDate")
	}
	return start, end, nil
}

func optionalInt(q url.Values, name string) (int, error) {
	value := q.Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, badRequest("invalid %s %q: expected an integer", name, value)
	}
	return n, nil
}

func optionalInt64(q url.Values, name string) (*int64, error) {
	value := q.Get(name)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, badRequest("invalid %s %q: expected an integer", name, value)
	}
	return &n, nil
}
