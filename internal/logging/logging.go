// Package logging builds the process-wide structured logger, writing to
// both stdout and a rotating-by-run log file under LOG_DIR, matching the
// dual-writer pattern the mape service uses.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Init creates a slog.Logger that writes JSON lines to both stdout and a
// file named <component>-<unixnano>.log under dir. It returns the logger
// and the opened file so the caller can close it on shutdown.
func Init(component, dir string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: create log dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("%s-%d.log", component, time.Now().UnixNano()))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}

	w := io.MultiWriter(os.Stdout, f)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	log := slog.New(handler).With("component", component)
	return log, f, nil
}
