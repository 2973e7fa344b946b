package vaultflow

import (
	"io"
	"log/slog"
	"time"
)

// Option configures a Session, Orchestrator or Synchronizer.
type Option func(*config)

// config holds the options shared by the components.
type config struct {
	logger        *slog.Logger
	metrics       *Metrics
	confirmations uint64
	pollInterval  time.Duration
	notifier      func(Notice)
}

// defaultConfig returns the default configuration.
func defaultConfig() *config {
	return &config{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		confirmations: 1,
		pollInterval:  time.Second,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the structured logger. Diagnostic causes are logged here.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records step and read outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithConfirmations sets how many blocks deep a transaction must be before
// the next step runs. Default is 1 (included in a block).
func WithConfirmations(n uint64) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.confirmations = n
	}
}

// WithPollInterval sets how often the chain head is polled while waiting
// for confirmations beyond the first. Default is one second.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithNotifier registers a callback that receives every user-facing notice.
func WithNotifier(fn func(Notice)) Option {
	return func(c *config) {
		c.notifier = fn
	}
}
