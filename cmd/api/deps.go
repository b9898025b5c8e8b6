package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"horizon/internal/domain/auth"
	"horizon/internal/domain/banklink"
	"horizon/internal/domain/events"
	"horizon/internal/domain/home"
	"horizon/internal/infrastructure/cache"
	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/documents"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/firebase"
	"horizon/internal/infrastructure/kafka"
	"horizon/internal/infrastructure/plaid"
	"horizon/internal/infrastructure/postgres"
	"horizon/internal/infrastructure/postgres/listener"
	"horizon/internal/infrastructure/ratelimit"
	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/interfaces/scheduler"
	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

const workerDrainTimeout = 10 * time.Second

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler     *httphandlers.AuthHandler
	BankLinkHandler *httphandlers.BankLinkHandler
	HomeHandler     *httphandlers.HomeHandler

	// Session lookup for protected routes
	AuthService *auth.Service

	// Nil when rate limiting is disabled.
	Limiter        ratelimit.Limiter
	TrustedProxies middleware.TrustedProxies

	// Nil unless the page cache is process-local.
	RevalidationListener *listener.RevalidationListener

	// Background work: async event delivery and the session sweep.
	Workers        *scheduler.WorkerPool
	SessionSweeper scheduler.SessionSweeper

	closers []func() error
	logger  *slog.Logger
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Dependencies, err error) {
	deps := &Dependencies{logger: logger}
	defer func() {
		if err != nil {
			deps.Close()
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database.ConnectionString(), postgres.PoolOptions{})
	if err != nil {
		return nil, err
	}
	deps.DB = db
	deps.closers = append(deps.closers, db.Close)
	logger.Info("connected to database")

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	store, err := deps.documentStore(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	userRepo := documents.NewUserRepository(store, cfg.Documents.DatabaseID, cfg.Documents.UserCollectionID)
	bankRepo := documents.NewBankRepository(store, encryptor, cfg.Documents.DatabaseID, cfg.Documents.BankCollectionID)

	var redisClient *redis.Client
	if cfg.Cache.Backend == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis") {
		redisClient = cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		deps.closers = append(deps.closers, redisClient.Close)
	}

	pageCache := deps.pageCache(cfg, db, redisClient)

	if cfg.RateLimit.Enabled {
		deps.TrustedProxies, err = middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
		if err != nil {
			return nil, err
		}
		if cfg.RateLimit.Backend == "redis" {
			deps.Limiter = ratelimit.NewRedis(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, "")
		} else {
			deps.Limiter = ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}

	deps.Workers = scheduler.NewWorkerPool(cfg.Worker.Count, cfg.Worker.QueueSize, logger)
	deps.Workers.Start()

	var publisher events.Publisher = events.Nop{}
	if producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger); producer != nil {
		publisher = scheduler.NewAsyncPublisher(deps.Workers, producer)
		deps.closers = append(deps.closers, producer.Close)
		logger.Info("publishing domain events", slog.String("topic", cfg.Kafka.Topic))
	}
	// Registered after the producer so queued events drain before it closes.
	deps.closers = append(deps.closers, func() error {
		deps.Workers.ShutdownWithTimeout(workerDrainTimeout)
		return nil
	})

	identityProvider := postgres.NewIdentityProvider(db, cfg.Session.TTL)
	deps.SessionSweeper = identityProvider
	aggregator := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Env)
	rail := dwolla.NewClient(cfg.Dwolla.Key, cfg.Dwolla.Secret, cfg.Dwolla.Env)

	authService := auth.NewService(identityProvider, rail, userRepo, publisher, logger)
	bankLinkService := banklink.NewService(aggregator, rail, bankRepo, encryptor, pageCache, publisher, logger)
	homeService := home.NewService(bankRepo, pageCache, logger)

	cookie := httphandlers.SessionCookie{Name: cfg.Session.CookieName}

	deps.AuthService = authService
	deps.AuthHandler = httphandlers.NewAuthHandler(authService, cookie, logger)
	deps.BankLinkHandler = httphandlers.NewBankLinkHandler(bankLinkService, logger)
	deps.HomeHandler = httphandlers.NewHomeHandler(homeService, logger)

	return deps, nil
}

func (d *Dependencies) documentStore(ctx context.Context, cfg *config.Config, db *postgres.DB) (documents.Store, error) {
	switch cfg.Documents.Backend {
	case "firestore":
		store, err := firebase.NewStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, store.Close)
		d.logger.Info("document store: firestore", slog.String("project", cfg.Firebase.ProjectID))
		return store, nil
	case "memory":
		d.logger.Warn("document store: memory, documents are lost on restart")
		return documents.NewMemoryStore(), nil
	case "postgres":
		d.logger.Info("document store: postgres")
		return postgres.NewDocumentStore(db), nil
	default:
		return nil, fmt.Errorf("unknown document store %q", cfg.Documents.Backend)
	}
}

// pageCache builds the root-page cache. A process-local cache broadcasts
// revalidations over Postgres NOTIFY and listens for the other instances'.
func (d *Dependencies) pageCache(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) *cache.PageCache {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewPageCache(cache.NewRedisBackend(redisClient), cfg.Cache.PageTTL, nil, d.logger)
	case "memcached":
		mc := cache.NewMemcached(cfg.Cache.MemcachedAddr)
		d.closers = append(d.closers, mc.Close)
		return cache.NewPageCache(cache.NewMemcachedBackend(mc), cfg.Cache.PageTTL, nil, d.logger)
	default:
		pc := cache.NewPageCache(cache.NewMemoryBackend(cfg.Cache.PageTTL), cfg.Cache.PageTTL, postgres.NewRevalidationNotifier(db), d.logger)
		d.RevalidationListener = listener.NewRevalidationListener(cfg.Database.ConnectionString(), pc, d.logger)
		return pc
	}
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	d.closers = nil
}
