package clickhouse

import (
	"context"
	"fmt"

	"github.com/scality/lb-log-analyzer/pkg/storage"
)

// Dialect renders ClickHouse SQL for storage.SQLStore
type Dialect struct {
	Database string
}

func (d Dialect) database() string {
	if d.Database == "" {
		return DatabaseName
	}
	return d.Database
}

// Table returns the qualified access log table name
func (d Dialect) Table() string {
	return d.database() + "." + storage.TableName
}

// Schema returns the database and table statements
func (d Dialect) Schema() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", d.database()),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s
		(
			id                       Int64,
			type                     LowCardinality(String),
			timestamp                DateTime64(6, 'UTC'),
			elb                      LowCardinality(String),
			client                   String,
			target                   String,

			request_processing_time  Nullable(Float64),
			target_processing_time   Nullable(Float64),
			response_processing_time Nullable(Float64),

			elb_status_code          Nullable(Int64),
			target_status_code       Nullable(Int64),
			received_bytes           Nullable(Int64),
			sent_bytes               Nullable(Int64),

			request_method           LowCardinality(String),
			request_url              String,
			user_agent               String,

			ssl_cipher               LowCardinality(String),
			ssl_protocol             LowCardinality(String),
			target_group_arn         String,
			trace_id                 String,
			domain_name              String,
			chosen_cert_arn          String,
			matched_rule_priority    String,
			request_creation_time    String,
			actions_executed         String,
			redirect_url             String,
			lambda_error_reason      String,
			target_port_list         String,
			target_status_code_list  String,
			new_field                String,

			INDEX %s elb_status_code TYPE minmax GRANULARITY 4,
			INDEX %s request_url TYPE ngrambf_v1(3, 8192, 3, 0) GRANULARITY 4,
			INDEX %s user_agent TYPE ngrambf_v1(3, 8192, 3, 0) GRANULARITY 4
		)
		ENGINE = MergeTree()
		ORDER BY (timestamp, id)
		`, d.Table(), IndexStatusCode, IndexRequestURL, IndexUserAgent),
	}
}

// ClearStatement truncates the table
func (d Dialect) ClearStatement() string {
	return "TRUNCATE TABLE IF EXISTS " + d.Table()
}

// Contains renders a case-sensitive substring test
func (Dialect) Contains(column string) string {
	return "position(" + column + ", ?) > 0"
}

// Count renders the row count as Int64
func (Dialect) Count() string {
	return "toInt64(count())"
}

// Sum renders the sum of column as Int64
func (Dialect) Sum(column string) string {
	return "toInt64(ifNull(sum(" + column + "), 0))"
}

// Avg renders the average of column as Float64
func (Dialect) Avg(column string) string {
	return "toFloat64(ifNull(avg(" + column + "), 0))"
}

// Key renders column as text
func (Dialect) Key(column string) string {
	return "ifNull(toString(" + column + "), '')"
}

// Open connects to ClickHouse and returns a store with its schema ensured
func Open(ctx context.Context, cfg Config) (*storage.SQLStore, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := storage.NewSQLStore(client, Dialect{Database: cfg.Database})
	if err := store.EnsureSchema(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}
