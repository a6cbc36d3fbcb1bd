package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/export"
	"github.com/scality/lb-log-analyzer/pkg/ingest"
	"github.com/scality/lb-log-analyzer/pkg/logquery"
	"github.com/scality/lb-log-analyzer/pkg/source"
	"github.com/scality/lb-log-analyzer/pkg/stats"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const uploadFormField = "file"

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	Message string `json:"message"`
	*ingest.Result
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleUpload ingests the multipart "file" field. The body is streamed into
// the pipeline; gzip files are decompressed on the fly.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	opts, err := s.uploadOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	part, err := uploadedFile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = part.Close() }()

	counter := &countingReader{r: part}
	content, err := source.Decompress(io.NopCloser(counter))
	if err != nil {
		s.writeError(w, r, badRequest("invalid upload %q: %v", part.FileName(), err))
		return
	}
	defer func() { _ = content.Close() }()

	result, err := s.cfg.Pipeline.Run(r.Context(), content, opts)
	s.metrics.UploadedBytes.Add(float64(counter.n))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to process %q: %w", part.FileName(), err))
		return
	}

	s.logger.Info("upload processed",
		"file", part.FileName(),
		"runId", result.RunID,
		"validEntries", result.ValidEntries,
		"invalidEntries", result.InvalidEntries)
	writeJSON(w, http.StatusOK, uploadResponse{Message: "File processed successfully", Result: result})
}

func (s *Server) uploadOptions(r *http.Request) (ingest.RunOptions, error) {
	q := r.URL.Query()
	opts := ingest.RunOptions{Mode: ingest.ModeAppend, Format: s.cfg.DefaultFormat}
	if v := q.Get("mode"); v != "" {
		mode, err := ingest.ParseMode(v)
		if err != nil {
			return opts, badRequest("%v", err)
		}
		opts.Mode = mode
	}
	if v := q.Get("format"); v != "" {
		format, err := accesslog.ParseFormat(v)
		if err != nil {
			return opts, badRequest("%v", err)
		}
		opts.Format = format
	}
	return opts, nil
}

// uploadedFile returns the multipart part holding the uploaded file
func uploadedFile(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("No file uploaded: %v", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, badRequest("No file uploaded")
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, badRequest("invalid multipart body: %v", err)
		}
		if part.FormName() == uploadFormField {
			return part, nil
		}
		_ = part.Close()
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	req, err := logsRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.cfg.Engine.Execute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func logsRequest(r *http.Request) (logquery.Request, error) {
	q := r.URL.Query()
	var req logquery.Request
	var err error

	if req.Page, err = optionalInt(q, "page"); err != nil {
		return req, err
	}
	if req.Limit, err = optionalInt(q, "limit"); err != nil {
		return req, err
	}
	if req.Filter.Start, err = optionalDate(q, "startDate", false); err != nil {
		return req, err
	}
	if req.Filter.End, err = optionalDate(q, "endDate", true); err != nil {
		return req, err
	}
	if req.Filter.StatusCode, err = optionalInt64(q, "statusCode"); err != nil {
		return req, err
	}
	req.Filter.Method = q.Get("requestMethod")
	req.Filter.SearchTerm = q.Get("searchTerm")
	return req, nil
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	start, end, err := requiredWindow(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	statistics, err := s.cfg.Aggregator.Compute(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statistics)
}

// handleDownload streams the records of a window as CSV, newest first.
// Failures after the first bytes were sent can only be logged.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	start, end, err := requiredWindow(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=logs.csv")

	out := &statusRecorder{ResponseWriter: w}
	csvWriter, err := export.NewWriter(out)
	if err == nil {
		err = s.cfg.Store.Stream(r.Context(), logquery.Window(start, end).Where(), csvWriter.Write)
	}
	if err == nil {
		err = csvWriter.Flush()
	}
	if csvWriter != nil {
		s.metrics.ExportedRows.Add(float64(csvWriter.Rows()))
	}
	if err == nil {
		return
	}

	if out.bytes == 0 {
		w.Header().Del("Content-Disposition")
		s.writeError(w, r, fmt.Errorf("failed to export logs: %w", err))
		return
	}
	s.logger.Error("csv export aborted", "error", err, "rows", csvWriter.Rows())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.cfg.Store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// writeError maps err to a status code and writes it as {"error": ...}
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var badReq *badRequestError
	var tooLarge *http.MaxBytesError
	var storageErr *storage.Error
	switch {
	case errors.As(err, &badReq),
		errors.Is(err, logquery.ErrInvalidRequest),
		errors.Is(err, stats.ErrInvalidWindow):
		status = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"storageError", errors.As(err, &storageErr),
			"error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
