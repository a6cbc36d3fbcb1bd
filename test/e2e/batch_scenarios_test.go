package e2e_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/klauspost/compress/gzip"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scality/lb-log-analyzer/pkg/analyzer"
	"github.com/scality/lb-log-analyzer/pkg/testutil"
)

// counterValue returns the value of the counter name{label=value} in the
// test registry, 0 when absent
func (ctx *E2ETestContext) counterValue(name, label, value string) float64 {
	families, err := ctx.Registry.Gather()
	Expect(err).NotTo(HaveOccurred())
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

var _ = Describe("Batch scenarios", func() {
	var testCtx *E2ETestContext

	AfterEach(func() {
		cleanupE2ETest(testCtx)
	})

	Context("with the default configuration", func() {
		BeforeEach(func() {
			testCtx = setupE2ETest(nil)
		})

		It("processes large uploads across batches", func() {
			const numRecords = 2500

			result := testCtx.MustUpload("large.log", []byte(testutil.LogText(testutil.Records(numRecords))), nil)
			Expect(result.ValidEntries).To(Equal(numRecords))
			Expect(result.Batches).To(Equal(25))

			page := testCtx.Logs(url.Values{"limit": {"1000"}, "page": {"3"}})
			Expect(page.Pagination.Total).To(Equal(int64(numRecords)))
			Expect(page.Pagination.TotalPages).To(Equal(int64(3)))
			Expect(page.Logs).To(HaveLen(500))

			Expect(testCtx.counterValue("lb_log_analyzer_ingest_lines_total", "result", "valid")).
				To(Equal(float64(numRecords)))
		})

		It("appends successive uploads", func() {
			content := []byte(testutil.LogText(testutil.Records(20)))

			testCtx.MustUpload("day1.log", content, nil)
			testCtx.MustUpload("day1.log", content, url.Values{"mode": {"append"}})

			// the same lines uploaded twice are stored twice
			Expect(testCtx.Logs(nil).Pagination.Total).To(Equal(int64(40)))
		})

		It("replaces previous records on request", func() {
			testCtx.MustUpload("old.log", []byte(testutil.LogText(testutil.Records(30))), nil)

			result := testCtx.MustUpload("new.log", []byte(testutil.LogText(testutil.Records(12))),
				url.Values{"mode": {"replace"}})
			Expect(result.Cleared).To(Equal(int64(30)))
			Expect(result.ValidEntries).To(Equal(12))

			Expect(testCtx.Logs(nil).Pagination.Total).To(Equal(int64(12)))
		})

		It("ingests gzip uploads", func() {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, err := zw.Write([]byte(testutil.LogText(testutil.Records(64))))
			Expect(err).NotTo(HaveOccurred())
			Expect(zw.Close()).To(Succeed())

			result := testCtx.MustUpload("access.log.gz", buf.Bytes(), nil)
			Expect(result.ValidEntries).To(Equal(64))
			Expect(testCtx.Logs(nil).Pagination.Total).To(Equal(int64(64)))
		})

		It("reports invalid lines with their line numbers", func() {
			content := testutil.JoinLines(
				testutil.LogLine(testutil.RecordAt(0)),
				"",
				"h2 2024-03-15T10:00:00Z truncated",
				testutil.LogLine(testutil.RecordAt(1)),
				"h2 2024-03-15T10:00:00Z truncated",
				testutil.LogLine(testutil.RecordAt(2)),
			)

			result := testCtx.MustUpload("mixed.log", []byte(content), nil)
			Expect(result.TotalLines).To(Equal(5))
			Expect(result.ValidEntries).To(Equal(3))
			Expect(result.InvalidEntries).To(Equal(2))
			Expect(result.InvalidLines).To(HaveLen(1))
			Expect(result.InvalidLines[0].Line).To(Equal(3))
			Expect(result.InvalidLines[0].Content).To(Equal("h2 2024-03-15T10:00:00Z truncated"))

			Expect(testCtx.Logs(nil).Pagination.Total).To(Equal(int64(3)))
		})

		It("serializes concurrent uploads", func() {
			const uploads = 4

			var wg sync.WaitGroup
			bodies := make([]string, uploads)
			statuses := make([]int, uploads)
			for i := range uploads {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					status, body := testCtx.Upload(fmt.Sprintf("part-%d.log", i),
						[]byte(testutil.LogText(testutil.Records(150))), nil)
					statuses[i] = status
					bodies[i] = string(body)
				}()
			}
			wg.Wait()

			for i := range uploads {
				Expect(statuses[i]).To(Equal(http.StatusOK), bodies[i])
			}
			Expect(testCtx.Logs(nil).Pagination.Total).To(Equal(int64(uploads * 150)))
			Expect(testCtx.counterValue("lb_log_analyzer_ingest_runs_total", "status", "success")).
				To(Equal(float64(uploads)))
		})
	})

	Context("with a small batch size and the quoted format", func() {
		BeforeEach(func() {
			testCtx = setupE2ETest(func(cfg *analyzer.Config) {
				cfg.BatchSize = 7
				cfg.LineFormat = "quoted"
			})
		})

		It("uses the configured ingestion settings", func() {
			result := testCtx.MustUpload("access.log", []byte(testutil.LogText(testutil.Records(50))), nil)

			Expect(result.ValidEntries).To(Equal(50))
			Expect(result.Batches).To(Equal(8))
		})
	})
})
