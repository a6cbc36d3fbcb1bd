package accesslog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// FullLineMinTokens is the minimum number of whitespace-separated tokens
	// of a line accepted by ParseFullLine
	FullLineMinTokens = 30

	// QuotedMinTokens is the minimum number of quote-aware tokens of a line
	// accepted by ParseQuoted: 12 leading fields, the request line, one user
	// agent token and the mapped trailing fields
	QuotedMinTokens = requestLineIndex + 2 + trailingFields - 1

	// trailingFields is the number of fields counted from the end of the line,
	// starting with ssl_cipher
	trailingFields = 15

	requestLineIndex = 12

	// sentinel marks a field that is not applicable for the request
	sentinel = "-"
)

// ErrMalformedLine is returned when a line does not carry enough tokens to be
// mapped onto a LogRecord
var ErrMalformedLine = errors.New("malformed log line")

// Format selects the tokenizer variant used to parse a line
type Format string

const (
	// FormatFull splits on whitespace only and requires FullLineMinTokens tokens
	FormatFull Format = "full"
	// FormatQuoted keeps quoted runs together as single tokens
	FormatQuoted Format = "quoted"
)

// ParseFunc parses one line (without its newline) into a LogRecord
type ParseFunc func(line string) (LogRecord, error)

// ParseFormat returns the Format named by s
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatFull:
		return FormatFull, nil
	case FormatQuoted:
		return FormatQuoted, nil
	default:
		return "", fmt.Errorf("unknown line format %q (must be full|quoted)", s)
	}
}

// Parser returns the parse function implementing the format
func (f Format) Parser() ParseFunc {
	if f == FormatQuoted {
		return ParseQuoted
	}
	return ParseFullLine
}

// Tokenize splits a line on unquoted whitespace. A run enclosed in double
// quotes belongs to the token it appears in, embedded spaces included, and
// the enclosing quotes of each token are removed. An unterminated quote runs
// to the end of the line.
func Tokenize(line string) []string {
	var tokens []string
	pos := 0
	for {
		for pos < len(line) && isSpace(line[pos]) {
			pos++
		}
		if pos >= len(line) {
			return tokens
		}

		start := pos
		for pos < len(line) && !isSpace(line[pos]) {
			if line[pos] != '"' {
				pos++
				continue
			}
			end := strings.IndexByte(line[pos+1:], '"')
			if end < 0 {
				pos = len(line)
				break
			}
			pos += end + 2
		}
		tokens = append(tokens, stripEnclosingQuotes(line[start:pos]))
	}
}

// ParseQuoted parses a line tokenized with Tokenize. The request line is a
// single token, the trailing fields are counted from the end of the line and
// the user agent is made of every token in between. A line of exactly
// QuotedMinTokens tokens has no reserved last token: the user agent is token
// 13 and new_field is the last token.
func ParseQuoted(line string) (LogRecord, error) {
	tokens := Tokenize(line)
	if len(tokens) < QuotedMinTokens {
		return LogRecord{}, fmt.Errorf("%w: got %d tokens, need at least %d",
			ErrMalformedLine, len(tokens), QuotedMinTokens)
	}

	rec := parseLeadingFields(tokens)
	rec.RequestMethod, rec.RequestURL = splitRequestLine(tokens[requestLineIndex])

	trailingStart := len(tokens) - trailingFields
	if len(tokens) == QuotedMinTokens {
		trailingStart = requestLineIndex + 2
	}
	rec.UserAgent = strings.Join(tokens[requestLineIndex+1:trailingStart], " ")
	mapTrailingFields(&rec, tokens[trailingStart:])

	return rec, nil
}

// ParseFullLine parses a line split on whitespace, as written by the load
// balancer. The quoted request line spans several tokens: the method and the
// URL are taken from tokens 12 and 13 and the protocol token closing the
// request line is skipped. The user agent is rebuilt from the tokens that
// precede the trailing fields; only its enclosing quotes are removed.
func ParseFullLine(line string) (LogRecord, error) {
	parts := strings.Fields(line)
	if len(parts) < FullLineMinTokens {
		return LogRecord{}, fmt.Errorf("%w: got %d tokens, need at least %d",
			ErrMalformedLine, len(parts), FullLineMinTokens)
	}

	rec := parseLeadingFields(parts)
	rec.RequestMethod = stripEnclosingQuotes(parts[requestLineIndex])
	rec.RequestURL = stripEnclosingQuotes(parts[requestLineIndex+1])

	trailingStart := len(parts) - trailingFields
	uaStart := requestLineIndex + 2
	if !strings.HasSuffix(parts[requestLineIndex+1], `"`) && isRequestLineTail(parts[uaStart]) &&
		uaStart < trailingStart {
		uaStart++
	}
	rec.UserAgent = stripEnclosingQuotes(strings.Join(parts[uaStart:trailingStart], " "))
	mapTrailingFields(&rec, parts[trailingStart:])

	return rec, nil
}

// ParseFloat converts a numeric token. The sentinel and unparseable tokens
// yield nil.
func ParseFloat(token string) *float64 {
	if token == sentinel || token == "" {
		return nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseInt converts an integer token. The sentinel and unparseable tokens
// yield nil.
func ParseInt(token string) *int64 {
	if token == sentinel || token == "" {
		return nil
	}
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseTimestamp parses an RFC 3339 timestamp (fractional seconds optional)
// and normalizes it to UTC. Failure yields the zero time.
func ParseTimestamp(token string) time.Time {
	t, err := time.Parse(time.RFC3339, token)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseLeadingFields(tokens []string) LogRecord {
	return LogRecord{
		Type:                   tokens[0],
		Timestamp:              ParseTimestamp(tokens[1]),
		ELB:                    tokens[2],
		Client:                 tokens[3],
		Target:                 tokens[4],
		RequestProcessingTime:  ParseFloat(tokens[5]),
		TargetProcessingTime:   ParseFloat(tokens[6]),
		ResponseProcessingTime: ParseFloat(tokens[7]),
		ELBStatusCode:          ParseInt(tokens[8]),
		TargetStatusCode:       ParseInt(tokens[9]),
		ReceivedBytes:          ParseInt(tokens[10]),
		SentBytes:              ParseInt(tokens[11]),
	}
}

// mapTrailingFields assigns the fields starting at ssl_cipher. A 15th token,
// when present, is not mapped.
func mapTrailingFields(rec *LogRecord, trailing []string) {
	field := func(i int) string {
		return stripEnclosingQuotes(trailing[i])
	}
	rec.SSLCipher = field(0)
	rec.SSLProtocol = field(1)
	rec.TargetGroupARN = field(2)
	rec.TraceID = field(3)
	rec.DomainName = field(4)
	rec.ChosenCertARN = field(5)
	rec.MatchedRulePriority = field(6)
	rec.RequestCreationTime = field(7)
	rec.ActionsExecuted = field(8)
	rec.RedirectURL = field(9)
	rec.LambdaErrorReason = field(10)
	rec.TargetPortList = field(11)
	rec.TargetStatusCodeList = field(12)
	rec.NewField = field(13)
}

// splitRequestLine splits "GET http://host/path HTTP/1.1" into method and URL
func splitRequestLine(requestLine string) (method, url string) {
	fields := strings.Fields(requestLine)
	if len(fields) > 0 {
		method = fields[0]
	}
	if len(fields) > 1 {
		url = fields[1]
	}
	return method, url
}

// isRequestLineTail reports whether a token closes a quoted request line,
// like `HTTP/1.1"`
func isRequestLineTail(token string) bool {
	return len(token) > 1 && strings.HasSuffix(token, `"`) && !strings.HasPrefix(token, `"`)
}

// stripEnclosingQuotes removes one leading and one trailing double quote.
// Quotes inside the value are kept.
func stripEnclosingQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
