package stats_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/stats"
	"github.com/scality/lb-log-analyzer/pkg/storage"
	"github.com/scality/lb-log-analyzer/pkg/testutil"
)

const (
	urlA = "https://example.com/a"
	urlB = "https://example.com/b"
	urlC = "https://example.com/c"
	urlD = "https://example.com/d"

	browser = "Mozilla/5.0 (X11; Linux x86_64)"
)

// windowRecords builds 10 records inside the hour after BaseTime and one
// record before it
func windowRecords() []accesslog.LogRecord {
	var records []accesslog.LogRecord
	at := func(i int) time.Time { return testutil.BaseTime.Add(time.Duration(i) * time.Minute) }

	for i := range 5 {
		records = append(records, testutil.NewRecord(at(i), "GET", urlA, 200))
	}
	for i := range 3 {
		rec := testutil.NewRecord(at(10+i), "POST", urlB, 404)
		rec.UserAgent = browser
		rec.RequestProcessingTime = testutil.Float64Ptr(0.002)
		if i == 0 {
			rec.TargetProcessingTime = testutil.Float64Ptr(-1)
		}
		records = append(records, rec)
	}
	for i := range 2 {
		rec := testutil.NewRecord(at(20+i), "GET", urlC, 503)
		rec.ReceivedBytes = testutil.Int64Ptr(10000)
		rec.RequestProcessingTime = testutil.Float64Ptr(0.5)
		records = append(records, rec)
	}
	records = append(records, testutil.NewRecord(testutil.BaseTime.Add(-time.Hour), "GET", urlD, 200))
	return records
}

var _ = Describe("Aggregator", func() {
	var (
		ctx        context.Context
		store      *storage.SQLStore
		aggregator *stats.Aggregator
		start, end time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = testutil.BaseTime
		end = testutil.BaseTime.Add(time.Hour)

		var err error
		store, err = testutil.NewMemoryStore(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		aggregator, err = stats.NewAggregator(stats.Config{Store: store, Logger: testutil.DiscardLogger()})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject an inverted window", func() {
		_, err := aggregator.Compute(ctx, end, start)
		Expect(errors.Is(err, stats.ErrInvalidWindow)).To(BeTrue())
	})

	It("should reject an out of range accuracy", func() {
		_, err := stats.NewAggregator(stats.Config{Store: store, RelativeAccuracy: 2})
		Expect(err).To(HaveOccurred())
	})

	Context("on an empty window", func() {
		It("should return zero totals and empty lists", func() {
			s, err := aggregator.Compute(ctx, start, end)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.TotalRequests).To(BeZero())
			Expect(s.TargetProcessingTime).To(Equal(stats.Percentiles{}))

			body, err := json.Marshal(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`"statusCodeDistribution":[]`))
			Expect(string(body)).To(ContainSubstring(`"topUrls":[]`))
			Expect(string(body)).To(ContainSubstring(`"topUrls5xx":[]`))
			Expect(string(body)).To(ContainSubstring(`"topUserAgents":[]`))
			Expect(string(body)).NotTo(ContainSubstring("null"))
		})
	})

	Context("with records", func() {
		var s *stats.Statistics

		BeforeEach(func() {
			Expect(testutil.SeedStore(ctx, store, windowRecords(), 100)).To(Succeed())

			var err error
			s, err = aggregator.Compute(ctx, start, end)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should count requests inside the window only", func() {
			Expect(s.TotalRequests).To(Equal(int64(10)))
		})

		It("should order distributions by count", func() {
			Expect(s.StatusCodeDistribution).To(Equal([]stats.StatusCodeCount{
				{StatusCode: testutil.Int64Ptr(200), Count: 5},
				{StatusCode: testutil.Int64Ptr(404), Count: 3},
				{StatusCode: testutil.Int64Ptr(503), Count: 2},
			}))
			Expect(s.RequestMethodDistribution).To(Equal([]stats.MethodCount{
				{Method: "GET", Count: 7},
				{Method: "POST", Count: 3},
			}))
		})

		It("should rank urls by request count", func() {
			Expect(s.TopURLs).To(Equal([]stats.URLCount{
				{URL: urlA, Count: 5},
				{URL: urlB, Count: 3},
				{URL: urlC, Count: 2},
			}))
		})

		It("should split client and server errors", func() {
			Expect(s.TopURLs4xx).To(Equal([]stats.URLCount{{URL: urlB, Count: 3}}))
			Expect(s.TopURLs5xx).To(Equal([]stats.URLCount{{URL: urlC, Count: 2}}))
		})

		It("should rank urls by transferred bytes", func() {
			Expect(s.TopURLsByInBytes).To(Equal([]stats.URLBytes{
				{URL: urlC, TotalBytes: 20000, RequestCount: 2},
				{URL: urlA, TotalBytes: 5 * 257, RequestCount: 5},
				{URL: urlB, TotalBytes: 3 * 257, RequestCount: 3},
			}))
			Expect(s.TopURLsByOutBytes).To(Equal([]stats.URLBytes{
				{URL: urlA, TotalBytes: 5 * 1024, RequestCount: 5},
				{URL: urlB, TotalBytes: 3 * 1024, RequestCount: 3},
				{URL: urlC, TotalBytes: 2 * 1024, RequestCount: 2},
			}))
		})

		It("should rank user agents", func() {
			Expect(s.TopUserAgents).To(Equal([]stats.UserAgentCount{
				{UserAgent: "curl/7.46.0", Count: 7},
				{UserAgent: browser, Count: 3},
			}))
		})

		It("should rank urls by average response time", func() {
			Expect(s.TopURLsByResponseTime).To(HaveLen(3))
			Expect(s.TopURLsByResponseTime[0].URL).To(Equal(urlC))
			Expect(s.TopURLsByResponseTime[0].AvgTime).To(BeNumerically("~", 0.5, 1e-9))
			Expect(s.TopURLsByResponseTime[0].RequestCount).To(Equal(int64(2)))
			Expect(s.TopURLsByResponseTime[1].URL).To(Equal(urlB))
			Expect(s.TopURLsByResponseTime[1].AvgTime).To(BeNumerically("~", 0.002, 1e-9))
			Expect(s.TopURLsByResponseTime[2].URL).To(Equal(urlA))
		})

		It("should compute target processing time percentiles", func() {
			p := s.TargetProcessingTime
			Expect(p.Count).To(Equal(int64(9)))
			Expect(p.P50).To(BeNumerically("~", 0.048, 0.048*2*stats.DefaultRelativeAccuracy))
			Expect(p.P99).To(BeNumerically("~", 0.048, 0.048*2*stats.DefaultRelativeAccuracy))
		})
	})
})
