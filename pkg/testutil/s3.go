package testutil

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/scality/lb-log-analyzer/pkg/s3"
)

const (
	fakeAccessKey = "LSOVSCTL01CME9OETI5A"
	//nolint:gosec // Test credentials
	fakeSecretKey = "6xHQtgUX46WwfsxyhhdatdWqlZj0omlgVSLx4qNV"
)

// FakeS3 is an in-process S3 endpoint serving path-style ListObjectsV2 and
// GetObject requests from an in-memory object map
type FakeS3 struct {
	server *httptest.Server

	mu      sync.Mutex
	objects map[string]map[string][]byte // bucket -> key -> content

	// PageSize caps the keys returned per list page, 0 = no cap
	PageSize int

	// FailRequests makes the next n requests answer 503
	FailRequests atomic.Int32

	listCount atomic.Int64
	getCount  atomic.Int64
}

// NewFakeS3 starts a fake S3 server. Close it when done.
func NewFakeS3() *FakeS3 {
	f := &FakeS3{objects: make(map[string]map[string][]byte)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// URL returns the endpoint of the server
func (f *FakeS3) URL() string {
	return f.server.URL
}

// Config returns a client configuration targeting the server
func (f *FakeS3) Config() s3.Config {
	return s3.Config{
		Endpoint:         f.server.URL,
		AccessKeyID:      fakeAccessKey,
		SecretAccessKey:  fakeSecretKey,
		MaxRetryAttempts: 3,
	}
}

// Close stops the server
func (f *FakeS3) Close() {
	f.server.Close()
}

// PutObject stores an object, creating the bucket if needed
func (f *FakeS3) PutObject(bucket, key string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string][]byte)
	}
	f.objects[bucket][key] = content
}

// ListCount returns the number of list requests served
func (f *FakeS3) ListCount() int64 {
	return f.listCount.Load()
}

// GetCount returns the number of get requests served
func (f *FakeS3) GetCount() int64 {
	return f.getCount.Load()
}

type listBucketResult struct {
	XMLName               xml.Name     `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name                  string       `xml:"Name"`
	Prefix                string       `xml:"Prefix"`
	KeyCount              int          `xml:"KeyCount"`
	MaxKeys               int          `xml:"MaxKeys"`
	IsTruncated           bool         `xml:"IsTruncated"`
	Contents              []listObject `xml:"Contents"`
	NextContinuationToken string       `xml:"NextContinuationToken,omitempty"`
}

type listObject struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

func (f *FakeS3) serve(w http.ResponseWriter, r *http.Request) {
	if n := f.FailRequests.Load(); n > 0 && f.FailRequests.CompareAndSwap(n, n-1) {
		writeS3Error(w, http.StatusServiceUnavailable, "ServiceUnavailable", "Service is temporarily unavailable")
		return
	}
	if r.Method != http.MethodGet {
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	f.mu.Lock()
	objects, ok := f.objects[bucket]
	f.mu.Unlock()
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}

	if key == "" {
		f.listCount.Add(1)
		f.list(w, r, bucket, objects)
		return
	}

	f.getCount.Add(1)
	f.mu.Lock()
	content, ok := objects[key]
	f.mu.Unlock()
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist")
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (f *FakeS3) list(w http.ResponseWriter, r *http.Request, bucket string, objects map[string][]byte) {
	prefix := r.URL.Query().Get("prefix")
	after := r.URL.Query().Get("continuation-token")

	f.mu.Lock()
	var keys []string
	for key := range objects {
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	f.mu.Unlock()
	slices.Sort(keys)

	result := listBucketResult{Name: bucket, Prefix: prefix, MaxKeys: 1000}
	if f.PageSize > 0 && len(keys) > f.PageSize {
		keys = keys[:f.PageSize]
		result.IsTruncated = true
		result.NextContinuationToken = keys[len(keys)-1]
	}
	for _, key := range keys {
		result.Contents = append(result.Contents, listObject{Key: key, Size: len(objects[key])})
	}
	result.KeyCount = len(result.Contents)

	body, err := xml.Marshal(result)
	if err != nil {
		writeS3Error(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>%s</Code>
  <Message>%s</Message>
</Error>`, code, message)
}
