package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/kanbax/modules/billing"
	"github.com/dmitrymomot/kanbax/pkg/audit"
	payment "github.com/dmitrymomot/kanbax/pkg/billing"
	"github.com/dmitrymomot/kanbax/pkg/config"
	"github.com/dmitrymomot/kanbax/pkg/entitlement"
	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/httpserver"
	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/metrics"
	"github.com/dmitrymomot/kanbax/pkg/mongo"
	"github.com/dmitrymomot/kanbax/pkg/opensearch"
	"github.com/dmitrymomot/kanbax/pkg/permission"
	"github.com/dmitrymomot/kanbax/pkg/pg"
	"github.com/dmitrymomot/kanbax/pkg/plan"
	"github.com/dmitrymomot/kanbax/pkg/redis"
	"github.com/dmitrymomot/kanbax/pkg/requestid"
	"github.com/dmitrymomot/kanbax/svc/subscription"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"kanbax"`
	LogLevel string `env:"LOG_LEVEL"`

	// IdentityHeader carries the caller id set by the authenticating proxy.
	IdentityHeader string `env:"IDENTITY_HEADER" envDefault:"X-Kanbax-User-ID"`
	MountPath      string `env:"BILLING_MOUNT_PATH" envDefault:"/billing"`

	PlansFile      string        `env:"PLANS_FILE"`
	PlanCache      bool          `env:"PLAN_CACHE_ENABLED" envDefault:"false"`
	PlanCacheTTL   time.Duration `env:"PLAN_CACHE_TTL" envDefault:"5m"`
	AuditMongo     string        `env:"AUDIT_MONGO_COLLECTION" envDefault:"audit_log"`
	AuditQueueSize int           `env:"AUDIT_QUEUE_SIZE" envDefault:"1000"`
}

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithLevelName(app.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app, log); err != nil {
		log.Error("kanbax stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	var (
		pgCfg      pg.Config
		redisCfg   redis.Config
		mongoCfg   mongo.Config
		osCfg      opensearch.Config
		billingCfg payment.Config
		archiveCfg audit.ArchiveConfig
		httpCfg    httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&mongoCfg) },
		func() error { return config.Load(&osCfg) },
		func() error { return config.Load(&billingCfg) },
		func() error { return config.Load(&archiveCfg) },
		func() error { return config.Load(&httpCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	metrics.Register(nil)
	checks := map[string]httpserver.Check{}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	checks["postgres"] = pg.Healthcheck(pool)

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}
	db := pg.OpenDB(pool)
	defer db.Close()

	// Plans
	var catalogOpts []plan.CatalogOption
	catalogOpts = append(catalogOpts, plan.WithLogger(log))
	if app.PlanCache {
		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = redis.Healthcheck(rdb)
		catalogOpts = append(catalogOpts, plan.WithCache(plan.NewRedisCache(rdb, app.PlanCacheTTL)))
	}
	catalog := plan.NewCatalog(plan.NewPGStore(db), catalogOpts...)

	seed := plan.DefaultPlans()
	if app.PlansFile != "" {
		if seed, err = plan.LoadYAMLFile(app.PlansFile); err != nil {
			return err
		}
	}
	seeded, err := catalog.Seed(ctx, seed...)
	if err != nil {
		return err
	}
	log.Info("plan catalog ready", slog.Bool("seeded", seeded), slog.Int("plans", len(seed)))

	// Audit
	var mirrors []audit.Storage
	if mongoCfg.ConnectionURL != "" {
		mdb, err := mongo.ConnectDatabase(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
		checks["mongo"] = mongo.Healthcheck(mdb)

		store := audit.NewMongoStorage(mdb, app.AuditMongo)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Warn("audit mongo indexes not ensured", logger.Error(err))
		}
		mirrors = append(mirrors, store)
	}
	if len(osCfg.Addresses) > 0 {
		client, err := opensearch.Connect(ctx, osCfg)
		if err != nil {
			return err
		}
		checks["opensearch"] = opensearch.Healthcheck(client)

		store := audit.NewOpenSearchStorage(client, osCfg.AuditIndex)
		if err := store.EnsureIndex(ctx); err != nil {
			log.Warn("audit index not ensured", logger.Error(err))
		}
		mirrors = append(mirrors, store)
	}

	auditLog := log.With(logger.Component("audit"))
	writer, closeWriter := audit.NewAsyncWriter(
		audit.NewMultiStorage(auditLog, audit.NewPGStorage(db), mirrors...),
		audit.AsyncOptions{
			BufferSize: app.AuditQueueSize,
			OnError: func(err error, dropped int) {
				auditLog.Error("audit batch not stored", slog.Int("dropped", dropped), logger.Error(err))
			},
		},
	)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeWriter(flushCtx); err != nil {
			auditLog.Error("audit queue not drained", logger.Error(err))
		}
	}()
	trail := audit.NewTrail(writer, audit.WithLogger(log))

	var archiver billing.Archiver
	if archiveCfg.Enabled() {
		client, err := audit.NewS3Client(ctx, archiveCfg)
		if err != nil {
			return err
		}
		archiver = audit.NewS3Archiver(trail, client, archiveCfg)
	}

	// Billing and subscriptions
	guard, webhooks, err := payment.New(billingCfg, log)
	if err != nil {
		return err
	}

	repo := entity.NewAuditedStore(entity.NewPGStore(db), trail)
	manager := subscription.NewManager(
		subscription.NewPGStore(db),
		repo,
		catalog,
		guard,
		trail,
		subscription.WithLogger(log),
		subscription.WithCheckoutURLs(billingCfg.SuccessURL, billingCfg.CancelURL),
		subscription.WithCurrency(billingCfg.Currency),
	)

	engine := entitlement.NewEngine(repo, catalog,
		entitlement.WithLogger(log),
		entitlement.WithExpiryHook(expireWith(manager, log)),
	)

	opts := billing.Options{
		Identify:     headerIdentity(app.IdentityHeader),
		Users:        repo,
		Plans:        catalog,
		Lifecycle:    manager,
		Entitlements: engine,
		Activity:     permission.NewResolver(repo, permission.WithLogger(log)),
		Trail:        trail,
		Archiver:     archiver,
		Logger:       log,
	}
	if webhooks != nil {
		opts.Webhooks = webhooks
	}
	module := billing.NewService(opts)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, metrics.Instrument)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", httpserver.HealthCheckHandler(log, nil))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, checks))
	r.Mount(app.MountPath, module.Handle())

	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

// expireWith persists lazily detected expiries. The engine has already
// answered free for the request; a failed write is retried on the next read.
func expireWith(m *subscription.Manager, log *slog.Logger) entitlement.ExpiryHook {
	return func(ctx context.Context, scope entitlement.Scope, expired plan.Tier) {
		var err error
		switch scope.Kind {
		case entitlement.ScopeCompany:
			err = m.ExpireCompany(ctx, scope.ID)
		case entitlement.ScopePersonal:
			err = m.Expire(ctx, scope.ID)
		}
		if err != nil {
			log.WarnContext(ctx, "expiry not persisted",
				logger.Scope(scope.String()), logger.Tier(string(expired)), logger.Error(err))
		}
	}
}
