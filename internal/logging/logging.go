// Package logging builds the slog.Logger handed to every ghdir component.
//
// There is no package-level state: the CLI constructs one logger per
// invocation from Options and threads it through constructors.
//
//	Format "json"  structured JSON lines
//	Format "text"  human-readable key=value pairs (default)
//
// Debug lowers the level to slog.LevelDebug; otherwise only warnings and
// errors are emitted so they do not drown the console output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Options controls handler selection.
type Options struct {
	Debug  bool
	Format string
	Output io.Writer // defaults to os.Stderr
}

// New returns a logger configured from opts.
func New(opts Options) *slog.Logger {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	default:
		handler = slog.NewTextHandler(w, hopts)
	}

	return slog.New(handler)
}

// WithRun tags every record with a fresh run id so lines emitted by
// concurrent downloads of one invocation can be grouped.
func WithRun(log *slog.Logger) *slog.Logger {
	return log.With(slog.String("run", uuid.NewString()))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
