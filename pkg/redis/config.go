package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"` // e.g. "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"15s"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"meterkit:"`
}

// Enabled reports whether a connection URL was supplied.
func (c Config) Enabled() bool { return c.ConnectionURL != "" }
