package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/country"
	"github.com/JonMunkholm/addcountry/internal/history"
)

// enrichFunc is the signature shared by Service.EnrichCSV and Service.EnrichJSON.
type enrichFunc func(ctx context.Context, r io.Reader, w io.Writer) (*core.Result, error)

// handleEnrichCSV enriches an uploaded CSV and returns it as an attachment.
func (s *Server) handleEnrichCSV(w http.ResponseWriter, r *http.Request) {
	s.handleEnrich(w, r, s.service.EnrichCSV, "text/csv; charset=utf-8", filepath.Base(s.paths.CSVOutput))
}

// handleEnrichJSON enriches an uploaded JSON document and returns it as an attachment.
func (s *Server) handleEnrichJSON(w http.ResponseWriter, r *http.Request) {
	s.handleEnrich(w, r, s.service.EnrichJSON, "application/json; charset=utf-8", filepath.Base(s.paths.JSONOutput))
}

// handleEnrich accepts either a raw request body or a multipart form with a
// "file" field. The response is buffered so a failed transform never sends
// a partial file.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request, enrich enrichFunc, contentType, filename string) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	body, closeBody, err := uploadedFile(r, maxSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer closeBody()

	ctx := history.WithSource(r.Context(), history.SourceHTTP)

	var out bytes.Buffer
	var res *core.Result
	err = s.service.Limiter().Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = enrich(ctx, body, &out)
		return err
	})
	if err != nil {
		respondError(w, r, wrapBodyError(err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("X-Records-Processed", strconv.Itoa(res.Records))
	w.Header().Set("X-Run-ID", res.RunID)
	w.WriteHeader(http.StatusOK)
	out.WriteTo(w)
}

// uploadedFile returns the upload from a multipart "file" field, or the raw
// body for any other content type.
func uploadedFile(r *http.Request, maxSize int64) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, nil, wrapBodyError(fmt.Errorf("%w: invalid form: %w", errBadRequest, err))
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errNoFile, err)
	}
	return file, func() { file.Close() }, nil
}

// wrapBodyError marks errors caused by http.MaxBytesReader.
func wrapBodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %w", errFileTooLarge, err)
	}
	return err
}

type extractRequest struct {
	Address   *string  `json:"address,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

type extractResult struct {
	Address string `json:"address"`
	Country string `json:"country"`
}

type extractResponse struct {
	Results []extractResult `json:"results"`
}

// handleExtract returns the country for one address or a list of them.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var req extractRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, wrapBodyError(fmt.Errorf("%w: %w", core.ErrInvalidJSON, err)))
		return
	}

	addresses := req.Addresses
	if req.Address != nil {
		addresses = append([]string{*req.Address}, addresses...)
	}
	if len(addresses) == 0 {
		respondError(w, r, fmt.Errorf("%w: address or addresses is required", errBadRequest))
		return
	}

	resp := extractResponse{Results: make([]extractResult, 0, len(addresses))}
	for _, a := range addresses {
		resp.Results = append(resp.Results, extractResult{Address: a, Country: country.Extract(a)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListRuns returns recent runs, newest first. ?limit=N caps the count.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := history.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, v))
			return
		}
		limit = n
	}

	runs, err := s.service.RecentRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type batchResult struct {
	RunID   string    `json:"runId"`
	Kind    core.Kind `json:"kind"`
	Input   string    `json:"input"`
	Output  string    `json:"output"`
	Records int       `json:"records"`
}

type batchFailure struct {
	Kind    core.Kind `json:"kind"`
	Input   string    `json:"input"`
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Code    string    `json:"code"`
}

type batchResponse struct {
	Results  []batchResult  `json:"results"`
	Failures []batchFailure `json:"failures"`
}

// handleRunBatch runs the configured file batch now.
func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	ctx := history.WithSource(r.Context(), history.SourceHTTP)

	var report *core.BatchReport
	err := s.service.Limiter().Do(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.service.RunBatch(ctx, s.paths)
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := batchResponse{
		Results:  make([]batchResult, 0, len(report.Results)),
		Failures: make([]batchFailure, 0, len(report.Failures)),
	}
	for _, res := range report.Results {
		resp.Results = append(resp.Results, batchResult{
			RunID:   res.RunID,
			Kind:    res.Kind,
			Input:   res.Input,
			Output:  res.Output,
			Records: res.Records,
		})
	}
	for _, f := range report.Failures {
		msg := core.MapError(f.Err)
		resp.Failures = append(resp.Failures, batchFailure{
			Kind:    f.Kind,
			Input:   f.Input,
			Error:   f.Err.Error(),
			Message: msg.Message,
			Code:    msg.Code,
		})
	}

	status := http.StatusOK
	if report.Failed() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

// handleHealth reports liveness and run slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   s.service.Limiter().Status(),
	})
}
