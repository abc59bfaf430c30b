// CLAUDE:SUMMARY HTTP surface: POST /upload multipart handler with taxonomy→status mapping, GET /health.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hazyhaar/moulinette/moulin"
)

// Handler returns the service's HTTP routes. Middleware (rate limiting,
// body caps, request IDs) is the caller's concern; see shield.APIStack.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/upload", s.handleUpload)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})
	return r
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		// A malformed or missing part is the client's fault; an oversize
		// body surfaces here as *http.MaxBytesError.
		code := http.StatusBadRequest
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, 400, errors.New("uploaded file has no filename"))
		return
	}
	// Reject unsupported formats before spending a worker slot or disk.
	if _, err := s.pipe.Detect(header.Filename); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	record, err := s.Process(r.Context(), Upload{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, 200, record)
}

// statusFor maps the failure taxonomy to HTTP statuses: unsupported
// formats are client mistakes (400), extraction failures are documents
// the server understood but could not convert (422), oversize bodies
// surface as *http.MaxBytesError while the multipart part streams (413).
func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, moulin.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, moulin.ErrExtraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
