package e2e_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/analyzer"
	"github.com/scality/lb-log-analyzer/pkg/ingest"
	"github.com/scality/lb-log-analyzer/pkg/logquery"
	"github.com/scality/lb-log-analyzer/pkg/stats"
	"github.com/scality/lb-log-analyzer/pkg/testutil"
)

const (
	// serverStartTimeout is the maximum time to wait for the API to listen
	serverStartTimeout = 5 * time.Second
	// requestTimeout bounds every HTTP request of a test
	requestTimeout = 30 * time.Second
)

// E2ETestContext holds a running analyzer and an HTTP client for one test
type E2ETestContext struct {
	TestName   string
	BaseURL    string
	App        *analyzer.App
	Registry   *prometheus.Registry
	HTTPClient *http.Client

	cancel context.CancelFunc
	done   chan error
}

// UploadResponse is the body of a successful upload
type UploadResponse struct {
	Message string `json:"message"`
	ingest.Result
}

// setupE2ETest starts an analyzer on an in-memory store, built from the
// loaded configuration with mutate applied
func setupE2ETest(mutate func(*analyzer.Config)) *E2ETestContext {
	cfg := analyzer.BuildConfig(testutil.DiscardLogger())
	cfg.Backend = analyzer.BackendDuckDB
	cfg.DuckDB.Path = ""
	cfg.ListenAddr = "127.0.0.1:0"

	registry := prometheus.NewRegistry()
	cfg.Registerer = registry
	if mutate != nil {
		mutate(&cfg)
	}

	app, err := analyzer.NewApp(context.Background(), cfg)
	Expect(err).NotTo(HaveOccurred(), "analyzer should start")

	runCtx, cancel := context.WithCancel(context.Background())
	testCtx := &E2ETestContext{
		TestName:   CurrentSpecReport().LeafNodeText,
		App:        app,
		Registry:   registry,
		HTTPClient: &http.Client{Timeout: requestTimeout},
		cancel:     cancel,
		done:       make(chan error, 1),
	}
	go func() {
		testCtx.done <- app.Server.Run(runCtx)
	}()

	Eventually(app.Server.Addr, serverStartTimeout).ShouldNot(BeNil(), "server should listen")
	testCtx.BaseURL = fmt.Sprintf("http://%s%s", app.Server.Addr(), cfg.BasePath)
	return testCtx
}

// cleanupE2ETest stops the server and releases the store
func cleanupE2ETest(testCtx *E2ETestContext) {
	if testCtx == nil {
		return
	}
	testCtx.cancel()
	Eventually(testCtx.done, serverStartTimeout).Should(Receive(BeNil()), "server should stop cleanly")
	Expect(testCtx.App.Close()).To(Succeed())
}

// Get issues a GET request on path with query parameters
func (ctx *E2ETestContext) Get(path string, query url.Values) *http.Response {
	target := ctx.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	resp, err := ctx.HTTPClient.Get(target)
	Expect(err).NotTo(HaveOccurred(), "GET %s should succeed", path)
	return resp
}

// GetJSON issues a GET request and decodes the JSON body into v. It returns
// the status code.
func (ctx *E2ETestContext) GetJSON(path string, query url.Values, v any) int {
	resp := ctx.Get(path, query)
	decodeJSON(resp, v)
	return resp.StatusCode
}

// Upload posts content as the multipart "file" field
func (ctx *E2ETestContext) Upload(filename string, content []byte, query url.Values) (int, []byte) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = fw.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(mw.Close()).To(Succeed())

	target := ctx.BaseURL + "/upload"
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	resp, err := ctx.HTTPClient.Post(target, mw.FormDataContentType(), body)
	Expect(err).NotTo(HaveOccurred(), "upload should be sent")
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

// MustUpload uploads content and expects it to be processed
func (ctx *E2ETestContext) MustUpload(filename string, content []byte, query url.Values) UploadResponse {
	status, body := ctx.Upload(filename, content, query)
	Expect(status).To(Equal(http.StatusOK), "upload should succeed: %s", body)

	var result UploadResponse
	Expect(json.Unmarshal(body, &result)).To(Succeed())
	Expect(result.Message).To(Equal("File processed successfully"))
	return result
}

// Logs queries /logs and expects success
func (ctx *E2ETestContext) Logs(query url.Values) logquery.Result {
	var result logquery.Result
	status := ctx.GetJSON("/logs", query, &result)
	Expect(status).To(Equal(http.StatusOK))
	return result
}

// Statistics queries /statistics over [start, end] and expects success
func (ctx *E2ETestContext) Statistics(start, end string) stats.Statistics {
	var result stats.Statistics
	status := ctx.GetJSON("/statistics", url.Values{"startDate": {start}, "endDate": {end}}, &result)
	Expect(status).To(Equal(http.StatusOK))
	return result
}

// Download fetches /download-logs over [start, end] and parses the CSV
func (ctx *E2ETestContext) Download(start, end string) [][]string {
	resp := ctx.Get("/download-logs", url.Values{"startDate": {start}, "endDate": {end}})
	defer func() { _ = resp.Body.Close() }()
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
	Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv"))
	Expect(resp.Header.Get("Content-Disposition")).To(Equal("attachment; filename=logs.csv"))

	rows, err := csv.NewReader(resp.Body).ReadAll()
	Expect(err).NotTo(HaveOccurred())
	return rows
}

// ErrorResponse issues a GET request expecting status and returns the error message
func (ctx *E2ETestContext) ErrorResponse(path string, query url.Values, status int) string {
	var body struct {
		Error string `json:"error"`
	}
	Expect(ctx.GetJSON(path, query, &body)).To(Equal(status))
	return body.Error
}

func decodeJSON(resp *http.Response, v any) {
	defer func() { _ = resp.Body.Close() }()
	Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

// trafficRecord describes one request of a generated traffic log
type trafficRecord struct {
	Offset    time.Duration
	Method    string
	URL       string
	Status    int64
	UserAgent string
}

// buildTraffic renders records relative to testutil.BaseTime as log text
func buildTraffic(records ...trafficRecord) []byte {
	logs := make([]accesslog.LogRecord, 0, len(records))
	for _, r := range records {
		rec := testutil.NewRecord(testutil.BaseTime.Add(r.Offset), r.Method, r.URL, r.Status)
		if r.UserAgent != "" {
			rec.UserAgent = r.UserAgent
		}
		logs = append(logs, rec)
	}
	return []byte(testutil.LogText(logs))
}

// repeatTraffic builds n records of the same request, one second apart from start
func repeatTraffic(n int, start time.Duration, method, target string, status int64) []trafficRecord {
	records := make([]trafficRecord, n)
	for i := range records {
		records[i] = trafficRecord{
			Offset: start + time.Duration(i)*time.Second,
			Method: method,
			URL:    target,
			Status: status,
		}
	}
	return records
}
