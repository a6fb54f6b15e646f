package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/tradedesk/auth"
	"github.com/upb/tradedesk/config"
	"github.com/upb/tradedesk/internal/cache"
	"github.com/upb/tradedesk/internal/observability"
	"github.com/upb/tradedesk/internal/storage"
	"github.com/upb/tradedesk/middleware"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/repositories/postgres"
	"github.com/upb/tradedesk/services/analytics"
	"github.com/upb/tradedesk/services/assets"
	"github.com/upb/tradedesk/services/audit"
	"github.com/upb/tradedesk/services/profile"
	"github.com/upb/tradedesk/services/ratelimit"
	"github.com/upb/tradedesk/services/requests"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Optional infrastructure; nil when not configured
	Redis        *redis.Client
	UploadSigner *storage.UploadSigner

	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Services
	Profiles    *profile.Service
	Requests    *requests.Service
	Assets      *assets.Service
	Analytics   *analytics.Service
	RateLimiter *ratelimit.Service
	Audit       *audit.Service

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

// NewDependencies creates and wires up all application dependencies.
// PostgreSQL is required; Redis and object storage degrade with a warning.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initCache(ctx, cfg)
	deps.initStorage(ctx, cfg)

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the pool, checks it and creates the schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Info("repositories initialized")
}

// initCache connects to Redis when configured. Analytics falls back to the
// database on every read without it.
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) {
	if cfg.Cache.RedisAddr == "" {
		d.Logger.Warn("redis not configured, analytics cache disabled")
		return
	}

	client, err := cache.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		d.Logger.Warn("redis unavailable, analytics cache disabled",
			zap.String("addr", cfg.Cache.RedisAddr),
			zap.Error(err))
		return
	}

	d.Redis = client
	d.Logger.Info("redis connection established", zap.String("addr", cfg.Cache.RedisAddr))
}

// initStorage builds the S3 presigner when a bucket is configured
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) {
	if cfg.Storage.Bucket == "" {
		d.Logger.Warn("storage bucket not configured, upload URLs disabled")
		return
	}

	signer, err := storage.NewUploadSigner(ctx, cfg.Storage)
	if err != nil {
		d.Logger.Warn("storage unavailable, upload URLs disabled", zap.Error(err))
		return
	}

	d.UploadSigner = signer
	d.Logger.Info("upload signer initialized",
		zap.String("bucket", cfg.Storage.Bucket),
		zap.Duration("expiry", cfg.Storage.UploadURLExpiry))
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	if !cfg.Token.HasTokenSecret() {
		d.Logger.Warn("token secret not configured, all protected routes will return 401")
		d.AuthMiddleware = middleware.NewAuthMiddleware(RejectAllVerifier{}, d.Metrics, d.Logger)
		return nil
	}

	codec, err := auth.NewCodec([]byte(cfg.Token.Secret))
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(codec, auth.VerifierConfig{
		Issuer:   cfg.Token.Issuer,
		Audience: cfg.Token.Audience,
	})
	if err != nil {
		return err
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Metrics, d.Logger)
	d.Logger.Info("token verifier initialized",
		zap.String("issuer", cfg.Token.Issuer),
		zap.String("audience", cfg.Token.Audience))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	// A nil *AnalyticsCache must not reach the service as a non-nil interface
	var analyticsCache analytics.Cache
	if d.Redis != nil {
		analyticsCache = cache.NewAnalyticsCache(d.Redis, cfg.Cache.AnalyticsTTL)
	}

	d.Audit = audit.NewService(d.Repos.Audit, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.Workers,
	})
	if err := d.Audit.Start(); err != nil {
		d.Logger.Warn("audit service not started", zap.Error(err))
	}

	d.Profiles = profile.NewService(d.Repos.Users, d.Logger).WithAuditor(d.Audit)
	d.Requests = requests.NewService(d.Repos, d.TxManager, d.Logger).WithAuditor(d.Audit)
	d.Assets = assets.NewService(d.Repos.Assets, d.Logger)
	d.Analytics = analytics.NewService(d.Repos.Analytics, analyticsCache, d.Metrics, d.Logger)

	limits := ratelimit.Limits{
		PerMinute: cfg.RateLimit.PerMinute,
		PerHour:   cfg.RateLimit.PerHour,
		PerDay:    cfg.RateLimit.PerDay,
	}
	if limits.Enabled() {
		d.RateLimiter = ratelimit.NewService(d.DB.DB, limits, d.Logger)
		d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(d.RateLimiter, d.Logger)
	} else {
		d.Logger.Warn("submission rate limiting disabled")
	}

	d.Logger.Info("services initialized")
}

// Auth returns the auth middleware, falling back to one that rejects every
// token when auth was never initialized.
func (d *Dependencies) Auth() *middleware.AuthMiddleware {
	if d.AuthMiddleware == nil {
		d.AuthMiddleware = middleware.NewAuthMiddleware(RejectAllVerifier{}, nil, d.Logger)
	}
	return d.AuthMiddleware
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued audit events while the database is still open
	if d.Audit != nil {
		timeout := 5 * time.Second
		if d.Config != nil && d.Config.Audit.StopTimeout > 0 {
			timeout = d.Config.Audit.StopTimeout
		}
		if err := d.Audit.Stop(timeout); err != nil && !errors.Is(err, audit.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.Audit = nil
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		} else {
			d.Logger.Info("redis connection closed")
		}
		d.Redis = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

// RejectAllVerifier fails every token. It stands in when no signing secret is
// configured so protected routes answer 401 instead of panicking.
type RejectAllVerifier struct{}

// Verify always fails with auth.ErrUnauthorized
func (RejectAllVerifier) Verify(ctx context.Context, _ string) (*auth.Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("token verification not configured: %w", auth.ErrUnauthorized)
}
