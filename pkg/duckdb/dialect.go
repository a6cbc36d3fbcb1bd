package duckdb

import (
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const sequenceName = storage.TableName + "_id_seq"

// Dialect renders DuckDB SQL for storage.SQLStore
type Dialect struct{}

// Table returns the access log table name
func (Dialect) Table() string {
	return storage.TableName
}

// Schema returns the sequence, table and index statements
func (Dialect) Schema() []string {
	return []string{
		"CREATE SEQUENCE IF NOT EXISTS " + sequenceName + " START 1",
		`CREATE TABLE IF NOT EXISTS ` + storage.TableName + ` (
			"id"                       BIGINT NOT NULL DEFAULT nextval('` + sequenceName + `'),
			"type"                     VARCHAR NOT NULL,
			"timestamp"                TIMESTAMP NOT NULL,
			"elb"                      VARCHAR NOT NULL,
			"client"                   VARCHAR NOT NULL,
			"target"                   VARCHAR NOT NULL,
			"request_processing_time"  DOUBLE,
			"target_processing_time"   DOUBLE,
			"response_processing_time" DOUBLE,
			"elb_status_code"          BIGINT,
			"target_status_code"       BIGINT,
			"received_bytes"           BIGINT,
			"sent_bytes"               BIGINT,
			"request_method"           VARCHAR NOT NULL,
			"request_url"              VARCHAR NOT NULL,
			"user_agent"               VARCHAR NOT NULL,
			"ssl_cipher"               VARCHAR NOT NULL,
			"ssl_protocol"             VARCHAR NOT NULL,
			"target_group_arn"         VARCHAR NOT NULL,
			"trace_id"                 VARCHAR NOT NULL,
			"domain_name"              VARCHAR NOT NULL,
			"chosen_cert_arn"          VARCHAR NOT NULL,
			"matched_rule_priority"    VARCHAR NOT NULL,
			"request_creation_time"    VARCHAR NOT NULL,
			"actions_executed"         VARCHAR NOT NULL,
			"redirect_url"             VARCHAR NOT NULL,
			"lambda_error_reason"      VARCHAR NOT NULL,
			"target_port_list"         VARCHAR NOT NULL,
			"target_status_code_list"  VARCHAR NOT NULL,
			"new_field"                VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_timestamp ON ` + storage.TableName + ` ("timestamp")`,
		`CREATE INDEX IF NOT EXISTS idx_elb_status_code ON ` + storage.TableName + ` ("elb_status_code")`,
		`CREATE INDEX IF NOT EXISTS idx_request_url ON ` + storage.TableName + ` ("request_url")`,
		`CREATE INDEX IF NOT EXISTS idx_user_agent ON ` + storage.TableName + ` ("user_agent")`,
	}
}

// ClearStatement deletes every row; the id sequence keeps increasing
func (Dialect) ClearStatement() string {
	return "DELETE FROM " + storage.TableName
}

// Contains renders a case-sensitive substring test
func (Dialect) Contains(column string) string {
	return "contains(" + column + ", ?)"
}

// Count renders the row count
func (Dialect) Count() string {
	return "COUNT(*)"
}

// Sum renders the sum of column as BIGINT (DuckDB sums to HUGEINT)
func (Dialect) Sum(column string) string {
	return "CAST(COALESCE(SUM(" + column + "), 0) AS BIGINT)"
}

// Avg renders the average of column
func (Dialect) Avg(column string) string {
	return "CAST(COALESCE(AVG(" + column + "), 0) AS DOUBLE)"
}

// Key renders column as text
func (Dialect) Key(column string) string {
	return "COALESCE(CAST(" + column + " AS VARCHAR), '')"
}
