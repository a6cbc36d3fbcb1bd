package util

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseCommaSeparatedHosts parses a comma-separated string into a slice of trimmed host strings
func ParseCommaSeparatedHosts(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	hosts := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			hosts = append(hosts, trimmed)
		}
	}

	return hosts
}

// ParseLogLevel maps a configured level name (error|warn|info|debug) to a
// slog level. Unknown names fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseHostList is a ConfigVarSpec ParseFunc accepting either a YAML list or
// a comma-separated string of hosts
func ParseHostList(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return ParseCommaSeparatedHosts(v), nil
	case []string:
		return v, nil
	case []any:
		hosts := make([]string, 0, len(v))
		for _, h := range v {
			if s, ok := h.(string); ok && strings.TrimSpace(s) != "" {
				hosts = append(hosts, strings.TrimSpace(s))
			}
		}
		return hosts, nil
	case nil:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("expected a host list, got %T", raw)
	}
}
