package main

import (
	"github.com/dmitrymomot/meterkit/pkg/checkout"
	"github.com/dmitrymomot/meterkit/pkg/email"
	"github.com/dmitrymomot/meterkit/pkg/file"
	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/mongo"
	"github.com/dmitrymomot/meterkit/pkg/payment"
	"github.com/dmitrymomot/meterkit/pkg/pg"
	"github.com/dmitrymomot/meterkit/pkg/ratelimiter"
	"github.com/dmitrymomot/meterkit/pkg/redis"
)

const (
	backendPostgres = "postgres"
	backendMongo    = "mongo"
	backendRedis    = "redis"
	backendMemory   = "memory"
)

type appConfig struct {
	Log      logger.Config
	HTTP     httpserver.Config
	Postgres pg.Config
	Redis    redis.Config
	Mongo    mongo.Config
	Auth     identity.Config
	Payment  payment.Config
	Checkout checkout.Config
	Email    email.Config
	S3       file.S3Config

	ReconcileLimit ratelimiter.Config `envPrefix:"RECONCILE_RATE_LIMIT_"`

	// CatalogFile is a YAML product catalog. Without it products are read
	// from postgres.
	CatalogFile string `env:"CATALOG_FILE"`

	// Backends: postgres, redis (usage only), mongo (plans and ledger), memory.
	UsageStore  string `env:"USAGE_STORE" envDefault:"postgres"`
	PlanStore   string `env:"PLAN_STORE" envDefault:"postgres"`
	LedgerStore string `env:"LEDGER_STORE" envDefault:"postgres"`
}
