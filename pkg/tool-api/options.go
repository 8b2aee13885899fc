package toolapi

import (
	"log/slog"
	"time"
)

// Options configure a Server instance.
type Options struct {
	// Addr controls the listen address used by ListenAndServe. Defaults to ":8710".
	Addr string
	// AllowedOrigins is the CORS allow-list applied to every route. Defaults to
	// allowing all origins.
	AllowedOrigins []string
	// ShutdownGrace bounds the connection drain when ListenAndServe stops
	// because its context was cancelled. Defaults to 10s.
	ShutdownGrace time.Duration
	// Logger receives structured diagnostics and request logs.
	Logger *slog.Logger
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.Addr == "" {
		opts.Addr = ":8710"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}
