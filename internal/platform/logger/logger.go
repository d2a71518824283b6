package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON structured logger writing to stdout. Audit lines carry
// log_type=audit so log pipelines can route them separately.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
