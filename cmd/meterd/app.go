package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/meterkit/modules/billing"
	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
	"github.com/dmitrymomot/meterkit/pkg/checkout"
	"github.com/dmitrymomot/meterkit/pkg/email"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/file"
	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/mongo"
	"github.com/dmitrymomot/meterkit/pkg/payment"
	"github.com/dmitrymomot/meterkit/pkg/pg"
	"github.com/dmitrymomot/meterkit/pkg/purchase"
	"github.com/dmitrymomot/meterkit/pkg/ratelimiter"
	"github.com/dmitrymomot/meterkit/pkg/reconcile"
	"github.com/dmitrymomot/meterkit/pkg/redis"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

var ErrBackendUnavailable = errors.New("meterd: configured backend is not connected")

// conns holds the connected backends. Nil fields are not configured.
type conns struct {
	pool  *pgxpool.Pool
	redis *goredis.Client
	mongo *mongodrv.Database

	checks []httpserver.Option
}

func connect(ctx context.Context, cfg appConfig, log *slog.Logger) (*conns, func(), error) {
	c := &conns{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.Enabled() {
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		c.pool = pool
		closers = append(closers, pool.Close)
		c.checks = append(c.checks, httpserver.WithHealthCheck("postgres", pg.Healthcheck(pool)))
	}
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		c.redis = client
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", logger.Error(err))
			}
		})
		c.checks = append(c.checks, httpserver.WithHealthCheck("redis", redis.Healthcheck(client)))
	}
	if cfg.Mongo.Enabled() {
		db, err := mongo.NewWithDatabase(ctx, cfg.Mongo)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		c.mongo = db
		closers = append(closers, func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Error("failed to disconnect mongo client", logger.Error(err))
			}
		})
		c.checks = append(c.checks, httpserver.WithHealthCheck("mongo", mongo.Healthcheck(db.Client())))
	}
	return c, cleanup, nil
}

func backendError(component, backend string) error {
	return errors.Join(apperr.ErrConfiguration, ErrBackendUnavailable, fmt.Errorf("%s store %q", component, backend))
}

func (c *conns) usageStore(cfg appConfig, log *slog.Logger) (usage.Store, error) {
	switch cfg.UsageStore {
	case backendRedis:
		if c.redis == nil {
			return nil, backendError("usage", cfg.UsageStore)
		}
		return usage.NewRedisStore(c.redis, usage.WithRedisPrefix(cfg.Redis.KeyPrefix)), nil
	case backendPostgres:
		if c.pool == nil {
			return nil, backendError("usage", cfg.UsageStore)
		}
		return usage.NewPostgresStore(c.pool), nil
	case backendMemory:
		log.Warn("usage counters are kept in memory and lost on restart")
		return usage.NewMemoryStore(), nil
	default:
		return nil, backendError("usage", cfg.UsageStore)
	}
}

func (c *conns) planStore(ctx context.Context, cfg appConfig) (entitlement.Store, error) {
	switch cfg.PlanStore {
	case backendMongo:
		if c.mongo == nil {
			return nil, backendError("plan", cfg.PlanStore)
		}
		s := entitlement.NewMongoStore(c.mongo)
		return s, s.EnsureIndexes(ctx)
	case backendPostgres:
		if c.pool == nil {
			return nil, backendError("plan", cfg.PlanStore)
		}
		return entitlement.NewPostgresStore(c.pool), nil
	case backendMemory:
		return entitlement.NewMemoryStore(), nil
	default:
		return nil, backendError("plan", cfg.PlanStore)
	}
}

func (c *conns) ledger(ctx context.Context, cfg appConfig) (purchase.Ledger, error) {
	switch cfg.LedgerStore {
	case backendMongo:
		if c.mongo == nil {
			return nil, backendError("ledger", cfg.LedgerStore)
		}
		l := purchase.NewMongoLedger(c.mongo)
		return l, l.EnsureIndexes(ctx)
	case backendPostgres:
		if c.pool == nil {
			return nil, backendError("ledger", cfg.LedgerStore)
		}
		return purchase.NewPostgresLedger(c.pool), nil
	case backendMemory:
		return purchase.NewMemoryLedger(), nil
	default:
		return nil, backendError("ledger", cfg.LedgerStore)
	}
}

func (c *conns) eventStore() reconcile.EventStore {
	if c.pool != nil {
		return reconcile.NewPostgresEventStore(c.pool)
	}
	return reconcile.NewMemoryEventStore()
}

func (c *conns) catalog(cfg appConfig) (catalog.Catalog, catalog.Templates, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadYAMLFile(cfg.CatalogFile)
	}
	if c.pool != nil {
		return catalog.NewPostgresCatalog(c.pool), catalog.DefaultTemplates(), nil
	}
	cat, err := catalog.NewMemory()
	return cat, catalog.DefaultTemplates(), err
}

func (c *conns) rateLimitStore(cfg appConfig) ratelimiter.Store {
	if c.redis != nil {
		return ratelimiter.NewRedisStore(c.redis, cfg.Redis.KeyPrefix)
	}
	return ratelimiter.NewMemoryStore()
}

func (c *conns) reconciler(ctx context.Context, cfg appConfig, log *slog.Logger) (*reconcile.Reconciler, entitlement.Store, error) {
	plans, err := c.planStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return reconcile.New(plans, c.eventStore(), reconcile.WithLogger(log)), plans, nil
}

// buildBilling assembles every component behind the HTTP surface.
func buildBilling(ctx context.Context, cfg appConfig, c *conns, log *slog.Logger) (*billing.Service, error) {
	auth, err := identity.NewAuthenticator(ctx, cfg.Auth)
	if err != nil {
		return nil, err
	}
	usageStore, err := c.usageStore(cfg, log)
	if err != nil {
		return nil, err
	}
	reconciler, plans, err := c.reconciler(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	ledger, err := c.ledger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cat, templates, err := c.catalog(cfg)
	if err != nil {
		return nil, err
	}
	processor, err := payment.NewFromConfig(cfg.Payment)
	if err != nil {
		return nil, err
	}
	if _, ok := processor.(payment.Unconfigured); ok {
		log.Warn("no payment processor credentials, checkout is disabled", logger.Provider(cfg.Payment.Provider))
	}

	verifierOpts := []purchase.Option{purchase.WithLogger(log)}
	if cfg.S3.Enabled() {
		presigner, err := file.NewS3Presigner(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		verifierOpts = append(verifierOpts, purchase.WithAccessResolver(purchase.NewSignedAccess(presigner)))
	}
	sender, err := email.NewSender(cfg.Email, log)
	if err != nil {
		return nil, err
	}
	verifierOpts = append(verifierOpts, purchase.WithReceipts(email.NewReceipts(sender, cfg.Email.ProductName)))

	limiter, err := ratelimiter.NewBucket(c.rateLimitStore(cfg), cfg.ReconcileLimit)
	if err != nil {
		return nil, err
	}

	var resolverOpts []identity.ResolverOption
	if cfg.Auth.GuestHeader != "" {
		resolverOpts = append(resolverOpts, identity.WithGuestHeader(cfg.Auth.GuestHeader))
	}

	return billing.NewService(billing.Deps{
		Resolver:     identity.NewResolver(auth, resolverOpts...),
		Counter:      usage.NewCounter(usageStore, usage.WithLogger(log)),
		Entitlements: entitlement.NewService(plans, entitlement.WithLogger(log)),
		Checkout: checkout.NewFactory(processor, cat, cfg.Checkout,
			checkout.WithTemplates(templates),
			checkout.WithPlanStore(plans),
			checkout.WithLogger(log),
		),
		Verifier:   purchase.NewVerifier(processor, cat, ledger, verifierOpts...),
		Reconciler: reconciler,
		Processor:  processor,
	},
		billing.WithLogger(log),
		billing.WithReconcileLimiter(limiter),
	), nil
}
