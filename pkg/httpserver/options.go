package httpserver

import (
	"log/slog"
	"time"
)

type Option func(*config)

// WithAddr sets the listen address. Panics on an empty address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: WithAddr: addr cannot be empty")
	}
	return func(c *config) { c.addr = addr }
}

// WithShutdownTimeout bounds how long in-flight requests may drain.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: WithShutdownTimeout: duration must be > 0")
	}
	return func(c *config) { c.shutdownTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHealthCheck registers a readiness probe under name.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(c *config) {
		if check != nil {
			c.checks = append(c.checks, namedCheck{name: name, check: check})
		}
	}
}
