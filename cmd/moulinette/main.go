// CLAUDE:SUMMARY Entry point for the moulinette HTTP service — config, logging, pipeline wiring, chi router, graceful shutdown.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/hazyhaar/moulinette/idgen"
	"github.com/hazyhaar/moulinette/ingest"
	"github.com/hazyhaar/moulinette/moulin"
	"github.com/hazyhaar/moulinette/observability"
	"github.com/hazyhaar/moulinette/ocr"
	"github.com/hazyhaar/moulinette/raster"
	"github.com/hazyhaar/moulinette/shield"
	"github.com/hazyhaar/moulinette/soffice"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config (or MOULINETTE_CONFIG)")
	flag.Parse()
	path := *configPath
	if path == "" {
		path = os.Getenv("MOULINETTE_CONFIG")
	}

	cfg, err := ingest.LoadConfig(path)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	// Deployment knobs override the file.
	if port := env("PORT", ""); port != "" {
		cfg.Listen = ":" + port
	}
	if lvl := env("LOG_LEVEL", ""); lvl != "" {
		cfg.LogLevel = lvl
	}

	// Logging.
	logger, closeLogs, err := observability.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		slog.Error("logging", "error", err)
		os.Exit(1)
	}
	defer closeLogs()
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Extraction pipeline with its external capabilities. A missing
	// tesseract/poppler/soffice install surfaces per-document, as
	// classified extraction failures on the code paths that need them.
	pipe := moulin.New(moulin.Config{
		OCRLang:     cfg.OCRLang,
		MaxFileSize: cfg.MaxFileBytes(),
		OCR:         ocr.NewTesseract(),
		Raster:      raster.NewPoppler(0),
		Doc:         soffice.NewConverter(""),
		Logger:      logger,
	})

	svc, err := ingest.New(cfg, pipe, logger)
	if err != nil {
		slog.Error("ingest", "error", err)
		os.Exit(1)
	}

	// Router. Body cap leaves headroom over the file cap for multipart
	// framing; oversize parts fail while streaming, before disk.
	rl := shield.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	done := make(chan struct{})
	defer close(done)
	rl.StartGC(done)

	r := chi.NewRouter()
	for _, mw := range shield.APIStack(cfg.MaxFileBytes()+1024*1024, rl, idgen.NanoID(8)) {
		r.Use(mw)
	}
	r.Mount("/", svc.Handler())

	// HTTP server. WriteTimeout must outlast the extraction budget or
	// long OCR runs would have their responses cut off.
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.ExtractTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "listen", cfg.Listen, "upload_dir", cfg.UploadDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	// In-flight extractions get the full budget to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ExtractTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
