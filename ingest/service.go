// CLAUDE:SUMMARY Upload orchestration: bounded worker slots, per-call timeout, temp staging, pipeline invocation.
// Package ingest receives document uploads, stages them to disk, runs
// the moulin extraction pipeline on them under a bounded worker pool,
// and answers with FileRecord results over HTTP.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/moulinette/idgen"
	"github.com/hazyhaar/moulinette/moulin"
)

// Upload is one received file: the streamed content plus the metadata
// the client declared for it.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// FileRecord is the client-facing conversion result.
type FileRecord struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
	Markdown string `json:"extracted_content"`
}

// Service stages uploads and runs extractions. Safe for concurrent use;
// the slots channel bounds how many extractions run at once.
type Service struct {
	cfg    *Config
	pipe   *moulin.Pipeline
	logger *slog.Logger
	slots  chan struct{}
	newID  idgen.Generator
}

// New creates the ingest service and its upload staging directory.
func New(cfg *Config, pipe *moulin.Pipeline, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.UploadDir, err)
	}
	return &Service{
		cfg:    cfg,
		pipe:   pipe,
		logger: logger,
		slots:  make(chan struct{}, cfg.MaxConcurrent),
		newID:  idgen.Default,
	}, nil
}

// Process stages one upload and extracts it. Blocks until a worker slot
// frees or ctx is done; the extraction itself runs under the configured
// timeout. The staged file is removed on every path.
func (s *Service) Process(ctx context.Context, up Upload) (*FileRecord, error) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	id := s.newID()
	staged := filepath.Join(s.cfg.UploadDir, id+strings.ToLower(filepath.Ext(up.Filename)))

	size, err := stage(staged, up.Reader)
	if err != nil {
		os.Remove(staged)
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	defer os.Remove(staged)

	s.logger.Info("extraction started", "id", id, "filename", up.Filename, "size", size)
	start := time.Now()

	markdown, err := s.pipe.Extract(ctx, moulin.Document{
		Path:        staged,
		Filename:    up.Filename,
		ContentType: up.ContentType,
	})
	if err != nil {
		s.logger.Warn("extraction failed",
			"id", id, "filename", up.Filename, "duration", time.Since(start), "error", err)
		return nil, err
	}

	format, _ := s.pipe.Detect(up.Filename)
	s.logger.Info("extraction done",
		"id", id, "filename", up.Filename, "format", format,
		"size", size, "markdown_len", len(markdown), "duration", time.Since(start))

	return &FileRecord{
		ID:       id,
		FileName: up.Filename,
		FileSize: size,
		FileType: up.ContentType,
		Markdown: markdown,
	}, nil
}

// stage copies the upload to path with owner-only permissions and
// returns the byte count.
func stage(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
