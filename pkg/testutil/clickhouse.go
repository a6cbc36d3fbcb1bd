package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/scality/lb-log-analyzer/pkg/clickhouse"
	"github.com/scality/lb-log-analyzer/pkg/storage"
	"github.com/scality/lb-log-analyzer/pkg/util"
)

const (
	// ClickHouseURLEnv enables ClickHouse tests when set to a host:port list
	ClickHouseURLEnv = "LB_LOG_ANALYZER_CLICKHOUSE_URL"

	// ClickHouseTestDatabase is the database created and dropped by the helper
	ClickHouseTestDatabase = "lb_logs_test"
)

// ClickHouseTestHelper provides utilities for testing with ClickHouse
type ClickHouseTestHelper struct {
	Client  *clickhouse.Client
	Dialect clickhouse.Dialect
	Store   *storage.SQLStore
}

// ClickHouseConfigured reports whether a test ClickHouse server is configured
func ClickHouseConfigured() bool {
	return os.Getenv(ClickHouseURLEnv) != ""
}

// NewClickHouseTestHelper creates a new test helper
func NewClickHouseTestHelper(ctx context.Context) (*ClickHouseTestHelper, error) {
	url := os.Getenv(ClickHouseURLEnv)
	if url == "" {
		url = "localhost:9000"
	}

	cfg := clickhouse.Config{
		Hosts:    util.ParseCommaSeparatedHosts(url),
		Username: "default",
		Password: "",
		Database: ClickHouseTestDatabase,
		Timeout:  10 * time.Second,
		Logger:   DiscardLogger(),
	}

	client, err := clickhouse.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test ClickHouse: %w", err)
	}

	dialect := clickhouse.Dialect{Database: ClickHouseTestDatabase}
	return &ClickHouseTestHelper{
		Client:  client,
		Dialect: dialect,
		Store:   storage.NewSQLStore(client, dialect),
	}, nil
}

// SetupSchema creates the test database and table
func (h *ClickHouseTestHelper) SetupSchema(ctx context.Context) error {
	return h.Store.EnsureSchema(ctx)
}

// TeardownSchema drops the test database
func (h *ClickHouseTestHelper) TeardownSchema(ctx context.Context) error {
	if err := h.Client.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", ClickHouseTestDatabase)); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}

// Close closes the test helper
func (h *ClickHouseTestHelper) Close() error {
	if h.Client != nil {
		return h.Client.Close()
	}
	return nil
}
