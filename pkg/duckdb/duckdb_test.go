package duckdb_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/duckdb"
	"github.com/scality/lb-log-analyzer/pkg/storage"
	"github.com/scality/lb-log-analyzer/pkg/testutil"
)

var _ = Describe("DuckDB store", func() {
	var (
		ctx   context.Context
		store *storage.SQLStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = testutil.NewMemoryStore(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	withoutID := func(records []accesslog.LogRecord) []accesslog.LogRecord {
		out := make([]accesslog.LogRecord, len(records))
		for i, rec := range records {
			rec.ID = 0
			out[i] = rec
		}
		return out
	}

	It("should be able to ensure the schema twice", func() {
		Expect(store.EnsureSchema(ctx)).To(Succeed())
	})

	It("should answer ping", func() {
		Expect(store.Ping(ctx)).To(Succeed())
	})

	It("should return inserted records newest first with ids assigned", func() {
		records := testutil.Records(3)
		Expect(store.InsertBatch(ctx, records)).To(Succeed())

		found, err := store.Find(ctx, nil, storage.Page{})
		Expect(err).NotTo(HaveOccurred())
		Expect(withoutID(found)).To(Equal([]accesslog.LogRecord{records[2], records[1], records[0]}))
		Expect(found[0].ID).To(BeNumerically(">", found[1].ID))
		Expect(found[2].ID).To(BeNumerically(">", 0))
	})

	It("should keep null numbers distinct from zero", func() {
		rec := testutil.RecordAt(0)
		rec.TargetProcessingTime = nil
		rec.ReceivedBytes = testutil.Int64Ptr(0)
		Expect(store.InsertBatch(ctx, []accesslog.LogRecord{rec})).To(Succeed())

		found, err := store.Find(ctx, nil, storage.Page{Limit: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(found[0].TargetProcessingTime).To(BeNil())
		Expect(found[0].ReceivedBytes).To(Equal(testutil.Int64Ptr(0)))
	})

	It("should paginate", func() {
		Expect(testutil.SeedStore(ctx, store, testutil.Records(25), 10)).To(Succeed())

		page, err := store.Find(ctx, nil, storage.Page{Limit: 10, Offset: 20})
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(5))
		Expect(page[0].Timestamp).To(Equal(testutil.BaseTime.Add(4 * time.Second)))
	})

	It("should filter with inclusive time bounds", func() {
		Expect(store.InsertBatch(ctx, testutil.Records(10))).To(Succeed())

		n, err := store.Count(ctx, storage.Where{
			storage.Gte(storage.FieldTimestamp, testutil.BaseTime.Add(2*time.Second)),
			storage.Lte(storage.FieldTimestamp, testutil.BaseTime.Add(5*time.Second)),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(4)))
	})

	It("should match substrings case-sensitively", func() {
		records := testutil.Records(2)
		records[0].UserAgent = "Mozilla/5.0 (X11; Linux x86_64)"
		Expect(store.InsertBatch(ctx, records)).To(Succeed())

		where := func(term string) storage.Where {
			return storage.Where{storage.AnyOf(
				storage.Contains(storage.FieldRequestURL, term),
				storage.Contains(storage.FieldUserAgent, term),
			)}
		}

		n, err := store.Count(ctx, where("Linux"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		n, err = store.Count(ctx, where("linux"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())

		n, err = store.Count(ctx, where("/item/"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))
	})

	Describe("GroupBy", func() {
		BeforeEach(func() {
			records := []accesslog.LogRecord{
				testutil.NewRecord(testutil.BaseTime, "GET", "/b", 200),
				testutil.NewRecord(testutil.BaseTime, "GET", "/a", 200),
				testutil.NewRecord(testutil.BaseTime, "POST", "/a", 404),
				testutil.NewRecord(testutil.BaseTime, "GET", "/b", 500),
				testutil.NewRecord(testutil.BaseTime, "GET", "/c", 500),
			}
			records[4].SentBytes = testutil.Int64Ptr(10000)
			records[4].RequestProcessingTime = testutil.Float64Ptr(2.5)
			Expect(store.InsertBatch(ctx, records)).To(Succeed())
		})

		It("should count per key with ascending key as tie-break", func() {
			rows, err := store.GroupBy(ctx, storage.GroupQuery{
				Key:    storage.FieldRequestURL,
				Metric: storage.MetricCount,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]storage.GroupRow{
				{Key: "/a", Count: 2},
				{Key: "/b", Count: 2},
				{Key: "/c", Count: 1},
			}))
		})

		It("should render integer keys as text", func() {
			rows, err := store.GroupBy(ctx, storage.GroupQuery{
				Key:    storage.FieldELBStatusCode,
				Metric: storage.MetricCount,
				Limit:  1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]storage.GroupRow{{Key: "200", Count: 2}}))
		})

		It("should sum an integer column", func() {
			rows, err := store.GroupBy(ctx, storage.GroupQuery{
				Key:    storage.FieldRequestURL,
				Metric: storage.MetricSum,
				Field:  storage.FieldSentBytes,
				Limit:  2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]storage.GroupRow{
				{Key: "/c", Count: 1, Total: 10000},
				{Key: "/a", Count: 2, Total: 2048},
			}))
		})

		It("should average a float column", func() {
			rows, err := store.GroupBy(ctx, storage.GroupQuery{
				Key:    storage.FieldRequestURL,
				Metric: storage.MetricAvg,
				Field:  storage.FieldRequestProcessingTime,
				Limit:  1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Key).To(Equal("/c"))
			Expect(rows[0].Average).To(BeNumerically("~", 2.5, 1e-9))
		})

		It("should apply the where clause", func() {
			rows, err := store.GroupBy(ctx, storage.GroupQuery{
				Key:    storage.FieldRequestURL,
				Metric: storage.MetricCount,
				Where:  storage.Where{storage.Gte(storage.FieldELBStatusCode, int64(500))},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]storage.GroupRow{{Key: "/b", Count: 1}, {Key: "/c", Count: 1}}))
		})

		It("should return an empty slice when nothing matches", func() {
			rows, err := store.GroupBy(ctx, storage.GroupQuery{
				Key:    storage.FieldRequestURL,
				Metric: storage.MetricCount,
				Where:  storage.Where{storage.Eq(storage.FieldRequestMethod, "DELETE")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).NotTo(BeNil())
			Expect(rows).To(BeEmpty())
		})
	})

	It("should stream non-null float values", func() {
		records := testutil.Records(3)
		records[1].TargetProcessingTime = nil
		Expect(store.InsertBatch(ctx, records)).To(Succeed())

		var values []float64
		Expect(store.Values(ctx, storage.FieldTargetProcessingTime, nil, func(v float64) error {
			values = append(values, v)
			return nil
		})).To(Succeed())
		Expect(values).To(ConsistOf(0.048, 0.048))
	})

	It("should clear every record and report how many were removed", func() {
		Expect(store.InsertBatch(ctx, testutil.Records(4))).To(Succeed())

		n, err := store.Clear(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(4)))

		n, err = store.Count(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})

var _ = Describe("Executor", func() {
	It("should roll back the whole batch when a row fails", func() {
		ctx := context.Background()
		exec, err := duckdb.NewExecutor(ctx, duckdb.Config{Logger: testutil.DiscardLogger()})
		Expect(err).NotTo(HaveOccurred())
		store := storage.NewSQLStore(exec, duckdb.Dialect{})
		DeferCleanup(store.Close)
		Expect(store.EnsureSchema(ctx)).To(Succeed())

		good := []any{"https", testutil.BaseTime, "elb", "c", "t", 0.1, 0.1, 0.1,
			int64(200), int64(200), int64(1), int64(1), "GET", "/", "ua",
			"-", "-", "-", "-", "-", "-", "-", "-", "-", "-", "-", "-", "-", "-"}
		bad := append([]any{nil}, good[1:]...)

		err = exec.InsertBatch(ctx, duckdb.Dialect{}.Table(), storage.ColumnNames(), [][]any{good, bad})
		Expect(err).To(HaveOccurred())

		n, err := store.Count(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("should persist records in a database file", func() {
		ctx := context.Background()
		cfg := duckdb.Config{
			Path:        filepath.Join(GinkgoT().TempDir(), "logs.duckdb"),
			MemoryLimit: "256MB",
			Logger:      testutil.DiscardLogger(),
		}

		store, err := duckdb.Open(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.InsertBatch(ctx, testutil.Records(3))).To(Succeed())
		Expect(store.Close()).To(Succeed())

		store, err = duckdb.Open(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		n, err := store.Count(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(3)))
	})
})
