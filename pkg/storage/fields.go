package storage

import (
	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// Field is a column of the access log table. Only the constants below are
// accepted in predicates and group queries.
type Field string

// Columns of the access log table
const (
	FieldID                     Field = "id"
	FieldType                   Field = "type"
	FieldTimestamp              Field = "timestamp"
	FieldELB                    Field = "elb"
	FieldClient                 Field = "client"
	FieldTarget                 Field = "target"
	FieldRequestProcessingTime  Field = "request_processing_time"
	FieldTargetProcessingTime   Field = "target_processing_time"
	FieldResponseProcessingTime Field = "response_processing_time"
	FieldELBStatusCode          Field = "elb_status_code"
	FieldTargetStatusCode       Field = "target_status_code"
	FieldReceivedBytes          Field = "received_bytes"
	FieldSentBytes              Field = "sent_bytes"
	FieldRequestMethod          Field = "request_method"
	FieldRequestURL             Field = "request_url"
	FieldUserAgent              Field = "user_agent"
	FieldSSLCipher              Field = "ssl_cipher"
	FieldSSLProtocol            Field = "ssl_protocol"
	FieldTargetGroupARN         Field = "target_group_arn"
	FieldTraceID                Field = "trace_id"
	FieldDomainName             Field = "domain_name"
	FieldChosenCertARN          Field = "chosen_cert_arn"
	FieldMatchedRulePriority    Field = "matched_rule_priority"
	FieldRequestCreationTime    Field = "request_creation_time"
	FieldActionsExecuted        Field = "actions_executed"
	FieldRedirectURL            Field = "redirect_url"
	FieldLambdaErrorReason      Field = "lambda_error_reason"
	FieldTargetPortList         Field = "target_port_list"
	FieldTargetStatusCodeList   Field = "target_status_code_list"
	FieldNewField               Field = "new_field"
)

// TableName is the unqualified name of the access log table
const TableName = "lb_logs"

// Columns lists the record columns in insert order. The id column is
// assigned by the backend and not part of it.
var Columns = []Field{
	FieldType,
	FieldTimestamp,
	FieldELB,
	FieldClient,
	FieldTarget,
	FieldRequestProcessingTime,
	FieldTargetProcessingTime,
	FieldResponseProcessingTime,
	FieldELBStatusCode,
	FieldTargetStatusCode,
	FieldReceivedBytes,
	FieldSentBytes,
	FieldRequestMethod,
	FieldRequestURL,
	FieldUserAgent,
	FieldSSLCipher,
	FieldSSLProtocol,
	FieldTargetGroupARN,
	FieldTraceID,
	FieldDomainName,
	FieldChosenCertARN,
	FieldMatchedRulePriority,
	FieldRequestCreationTime,
	FieldActionsExecuted,
	FieldRedirectURL,
	FieldLambdaErrorReason,
	FieldTargetPortList,
	FieldTargetStatusCodeList,
	FieldNewField,
}

var (
	knownFields = func() map[Field]bool {
		m := map[Field]bool{FieldID: true}
		for _, f := range Columns {
			m[f] = true
		}
		return m
	}()

	floatFields = map[Field]bool{
		FieldRequestProcessingTime:  true,
		FieldTargetProcessingTime:   true,
		FieldResponseProcessingTime: true,
	}

	intFields = map[Field]bool{
		FieldID:               true,
		FieldELBStatusCode:    true,
		FieldTargetStatusCode: true,
		FieldReceivedBytes:    true,
		FieldSentBytes:        true,
	}
)

// Valid reports whether f names a column of the access log table
func (f Field) Valid() bool {
	return knownFields[f]
}

// IsFloat reports whether f is a nullable floating point column
func (f Field) IsFloat() bool {
	return floatFields[f]
}

// IsInt reports whether f is an integer column
func (f Field) IsInt() bool {
	return intFields[f]
}

// Quoted returns the column as a quoted SQL identifier
func (f Field) Quoted() string {
	return `"` + string(f) + `"`
}

// ColumnNames returns the quoted identifiers of Columns
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, f := range Columns {
		names[i] = f.Quoted()
	}
	return names
}

// recordValues returns the values of rec in Columns order. Null numbers are
// passed as untyped nil.
func recordValues(rec *accesslog.LogRecord) []any {
	return []any{
		rec.Type,
		rec.Timestamp.UTC(),
		rec.ELB,
		rec.Client,
		rec.Target,
		nullable(rec.RequestProcessingTime),
		nullable(rec.TargetProcessingTime),
		nullable(rec.ResponseProcessingTime),
		nullable(rec.ELBStatusCode),
		nullable(rec.TargetStatusCode),
		nullable(rec.ReceivedBytes),
		nullable(rec.SentBytes),
		rec.RequestMethod,
		rec.RequestURL,
		rec.UserAgent,
		rec.SSLCipher,
		rec.SSLProtocol,
		rec.TargetGroupARN,
		rec.TraceID,
		rec.DomainName,
		rec.ChosenCertARN,
		rec.MatchedRulePriority,
		rec.RequestCreationTime,
		rec.ActionsExecuted,
		rec.RedirectURL,
		rec.LambdaErrorReason,
		rec.TargetPortList,
		rec.TargetStatusCodeList,
		rec.NewField,
	}
}

// recordDest returns scan destinations for the id followed by Columns
func recordDest(rec *accesslog.LogRecord) []any {
	return []any{
		&rec.ID,
		&rec.Type,
		&rec.Timestamp,
		&rec.ELB,
		&rec.Client,
		&rec.Target,
		&rec.RequestProcessingTime,
		&rec.TargetProcessingTime,
		&rec.ResponseProcessingTime,
		&rec.ELBStatusCode,
		&rec.TargetStatusCode,
		&rec.ReceivedBytes,
		&rec.SentBytes,
		&rec.RequestMethod,
		&rec.RequestURL,
		&rec.UserAgent,
		&rec.SSLCipher,
		&rec.SSLProtocol,
		&rec.TargetGroupARN,
		&rec.TraceID,
		&rec.DomainName,
		&rec.ChosenCertARN,
		&rec.MatchedRulePriority,
		&rec.RequestCreationTime,
		&rec.ActionsExecuted,
		&rec.RedirectURL,
		&rec.LambdaErrorReason,
		&rec.TargetPortList,
		&rec.TargetStatusCodeList,
		&rec.NewField,
	}
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
