package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments run with
// TRIPORA_LOG_FORMAT=json so log shippers get structured records; every
// other environment gets the readable text handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
