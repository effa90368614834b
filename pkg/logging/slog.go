package logging

import (
	"log/slog"
	"os"
)

// New builds the JSON logger shared by every component. The service name is
// attached once here so relay, HTTP and orchestrator lines can be told apart
// in aggregation.
func New(service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With("service", service)
}
