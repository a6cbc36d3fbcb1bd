package accesslog_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/testutil"
)

var _ = Describe("Validate", func() {
	var rec accesslog.LogRecord

	BeforeEach(func() {
		rec = testutil.RecordAt(0)
	})

	It("should accept a complete record", func() {
		Expect(accesslog.Validate(&rec)).To(BeTrue())
		Expect(accesslog.MissingFields(&rec)).To(BeEmpty())
	})

	It("should accept zero values for numeric fields", func() {
		rec.ReceivedBytes = testutil.Int64Ptr(0)
		rec.ResponseProcessingTime = testutil.Float64Ptr(0)
		Expect(accesslog.Validate(&rec)).To(BeTrue())
	})

	It("should reject a null numeric field", func() {
		rec.TargetProcessingTime = nil
		Expect(accesslog.Validate(&rec)).To(BeFalse())
		Expect(accesslog.MissingFields(&rec)).To(Equal([]string{"target_processing_time"}))
	})

	It("should reject an empty required string", func() {
		rec.RequestURL = ""
		Expect(accesslog.Validate(&rec)).To(BeFalse())
		Expect(accesslog.MissingFields(&rec)).To(ConsistOf("request_url"))
	})

	It("should reject a zero timestamp", func() {
		rec.Timestamp = time.Time{}
		Expect(accesslog.MissingFields(&rec)).To(ConsistOf("timestamp"))
	})

	It("should not require optional fields", func() {
		rec.UserAgent = ""
		rec.SSLCipher = ""
		rec.NewField = ""
		Expect(accesslog.Validate(&rec)).To(BeTrue())
	})

	It("should list every missing field of an empty record in log order", func() {
		Expect(accesslog.MissingFields(&accesslog.LogRecord{})).To(Equal([]string{
			"type", "timestamp", "elb", "client", "target",
			"request_processing_time", "target_processing_time", "response_processing_time",
			"elb_status_code", "target_status_code", "received_bytes", "sent_bytes",
			"request_method", "request_url",
		}))
	})

	It("should not mutate the record", func() {
		before := rec
		accesslog.Validate(&rec)
		Expect(rec).To(Equal(before))
	})
})

var _ = Describe("FormatFullLine", func() {
	It("should write nulls as the sentinel", func() {
		rec := testutil.RecordAt(0)
		rec.TargetProcessingTime = nil
		rec.ELBStatusCode = nil

		line := accesslog.FormatFullLine(&rec)
		Expect(line).To(ContainSubstring(" 0.001 - 0 - 200 257 1024 "))
		Expect(line).To(HavePrefix("https 2024-03-15T10:00:00.000000Z "))
	})

	It("should quote the request line and user agent", func() {
		rec := testutil.RecordAt(1)
		Expect(accesslog.FormatFullLine(&rec)).To(ContainSubstring(
			`"GET https://www.example.com:443/item/1 HTTP/1.1" "curl/7.46.0" `))
	})

	It("should terminate each line in FormatLines", func() {
		out := string(accesslog.FormatLines(testutil.Records(2)))
		Expect(out).To(HaveSuffix("\n"))
		Expect(out).To(ContainSubstring("\nhttps "))
	})
})
