// CLAUDE:SUMMARY Structured logging setup: JSON slog handler, timestamped log files with retention pruning.
// Package observability configures structured logging for moulinette:
// a JSON slog handler at a configured level, optionally teed into
// timestamped log files with old files pruned at startup.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MaxLogFiles is how many log files retention keeps, newest first.
const MaxLogFiles = 7

const logPattern = "moulinette_*.log"

// Setup builds the service logger. level is one of debug/info/warn/error
// (anything else means info). When dir is non-empty, output tees to a
// timestamped file in dir and files beyond MaxLogFiles are removed. The
// returned closer releases the log file; it is never nil. The caller
// decides whether to slog.SetDefault the result.
func Setup(level, dir string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	closer := func() {}

	if dir != "" {
		f, err := openLogFile(dir)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = func() { f.Close() }

		if err := pruneOldLogs(dir, MaxLogFiles); err != nil {
			// Retention failure must not block startup; logging still works.
			fmt.Fprintf(os.Stderr, "warning: prune old logs: %v\n", err)
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	return logger, closer, nil
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := filepath.Join(dir, "moulinette_"+time.Now().Format("20060102_150405")+".log")
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return f, nil
}

// pruneOldLogs removes the oldest log files once more than keep exist.
// The timestamp in the name makes lexical order chronological.
func pruneOldLogs(dir string, keep int) error {
	files, err := filepath.Glob(filepath.Join(dir, logPattern))
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}
	sort.Strings(files)
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}
