package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

type config struct {
	debug  bool
	format string
	writer io.Writer
	quiet  bool
}

type Option func(*config)

// WithDebug lowers the level to debug and adds source locations.
func WithDebug() Option { return func(c *config) { c.debug = true } }

// WithFormat selects "text" or "json" output. JSON is the default.
func WithFormat(format string) Option { return func(c *config) { c.format = format } }

// WithWriter also writes logs to w, typically a log file.
func WithWriter(w io.Writer) Option { return func(c *config) { c.writer = w } }

// WithQuiet suppresses output to stderr.
func WithQuiet() Option { return func(c *config) { c.quiet = true } }

// New builds a logger fanning out to stderr and the optional writer.
func New(opts ...Option) *slog.Logger {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level, AddSource: cfg.debug}

	var handlers []slog.Handler
	if !cfg.quiet {
		handlers = append(handlers, newHandler(os.Stderr, cfg.format, hopts))
	}
	if cfg.writer != nil {
		handlers = append(handlers, &lockedHandler{handler: newHandler(cfg.writer, cfg.format, hopts), mu: &sync.Mutex{}})
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// lockedHandler serializes writes so lines from concurrent requests do not
// interleave in a shared file.
type lockedHandler struct {
	handler slog.Handler
	mu      *sync.Mutex
}

func (h *lockedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *lockedHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler.Handle(ctx, r)
}

func (h *lockedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lockedHandler{handler: h.handler.WithAttrs(attrs), mu: h.mu}
}

func (h *lockedHandler) WithGroup(name string) slog.Handler {
	return &lockedHandler{handler: h.handler.WithGroup(name), mu: h.mu}
}
