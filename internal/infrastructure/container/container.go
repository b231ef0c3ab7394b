// Package container wires the application together with Uber FX.
package container

import (
	"context"
	"database/sql"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tymenu/tymenu/internal/application/plan"
	"github.com/tymenu/tymenu/internal/application/recipe"
	"github.com/tymenu/tymenu/internal/application/user"
	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/infrastructure/email"
	"github.com/tymenu/tymenu/internal/infrastructure/http/apiserver"
	"github.com/tymenu/tymenu/internal/infrastructure/http/webserver"
	"github.com/tymenu/tymenu/internal/infrastructure/imagehost"
	"github.com/tymenu/tymenu/internal/infrastructure/monitoring"
	persistence "github.com/tymenu/tymenu/internal/infrastructure/persistence/gorm"
	"github.com/tymenu/tymenu/internal/infrastructure/persistence/memory"
	"github.com/tymenu/tymenu/internal/infrastructure/persistence/redis"
	"github.com/tymenu/tymenu/internal/infrastructure/security"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/internal/ports/outbound"
	"github.com/tymenu/tymenu/pkg/healthcheck"
	"github.com/tymenu/tymenu/pkg/logger"
	"github.com/tymenu/tymenu/pkg/validation"
)

// New returns the full application graph for cfg.
func New(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		Core,
		ServiceModule,
		HTTPModule,
		fx.Invoke(RegisterLifecycleHooks),
	)
}

// Core holds what both the server and the admin commands need: logging,
// the database, the cache and the repositories.
var Core = fx.Options(
	LoggerModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	NewLogger,
)

// NewLogger builds the root logger from the app section.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
	})
}

// DatabaseModule provides the gorm handle and its pool.
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		db, err := persistence.Open(cfg, log.Named("database"))
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(func() error {
			return persistence.Close(db)
		}))
		return db, nil
	},
	func(db *gorm.DB) (*sql.DB, error) {
		return db.DB()
	},
)

// CacheModule provides Redis when enabled and the in-process cache
// otherwise. The Redis client is nil in the latter case.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.CacheRepository, goredis.UniversalClient, error) {
		if !cfg.Redis.Enabled {
			log.Info("Using in-memory cache")
			cache := memory.NewCacheRepository(time.Minute)
			lc.Append(fx.StopHook(cache.Close))
			return cache, nil, nil
		}

		client, err := redis.NewClient(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		lc.Append(fx.StopHook(client.Close))
		return redis.NewCacheRepository(client, "tymenu:", log.Named("cache")), client, nil
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	fx.Annotate(persistence.NewRecipeRepository, fx.As(new(outbound.RecipeRepository))),
	fx.Annotate(persistence.NewUserRepository, fx.As(new(outbound.UserRepository))),
	fx.Annotate(persistence.NewRoleRepository, fx.As(new(outbound.RoleRepository))),
	fx.Annotate(persistence.NewPlanRepository, fx.As(new(outbound.PlanRepository))),
	fx.Annotate(persistence.NewTransactor, fx.As(new(outbound.Transactor))),
)

// ServiceModule provides the collaborators and the application services.
var ServiceModule = fx.Provide(
	validation.New,
	func(cfg *config.Config, log *zap.Logger) (*monitoring.Metrics, error) {
		return monitoring.NewMetrics("tymenu", log.Named("metrics"))
	},
	func(cfg *config.Config, log *zap.Logger) (*monitoring.Tracing, error) {
		return monitoring.NewTracing(cfg, log.Named("tracing"))
	},
	func(cfg *config.Config) outbound.TokenService {
		return security.NewTokenService(cfg.App.SecretKey, cfg.Auth.TokenLeeway)
	},
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) (outbound.EmailService, error) {
		svc, err := email.New(cfg, log)
		if err != nil {
			return nil, err
		}
		return monitoring.NewInstrumentedEmailService(svc, metrics), nil
	},
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) (outbound.ImageHost, error) {
		host, err := imagehost.New(cfg, log)
		if err != nil {
			return nil, err
		}
		return monitoring.NewInstrumentedImageHost(host, metrics), nil
	},
	NewEventBus,
	func(bus *EventBus) outbound.EventPublisher { return bus },

	func(
		users outbound.UserRepository,
		roles outbound.RoleRepository,
		tx outbound.Transactor,
		tokens outbound.TokenService,
		mailer outbound.EmailService,
		events outbound.EventPublisher,
		validate *validation.Validator,
		cfg *config.Config,
		log *zap.Logger,
	) *user.UserService {
		return user.NewUserService(users, roles, tx, tokens, mailer, events, validate, user.Config{
			AdminEmail:    cfg.App.AdminEmail,
			BCryptCost:    cfg.Auth.BCryptCost,
			ResetTokenTTL: cfg.Auth.ResetTokenTTL,
			UsersPerPage:  cfg.App.UsersPerPage,
			EmailTimeout:  cfg.Email.SendTimeout,
		}, log)
	},
	func(s *user.UserService) inbound.UserService { return s },

	func(
		recipes outbound.RecipeRepository,
		users outbound.UserRepository,
		images outbound.ImageHost,
		cache outbound.CacheRepository,
		tx outbound.Transactor,
		events outbound.EventPublisher,
		validate *validation.Validator,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.RecipeService {
		return recipe.NewRecipeService(recipes, users, images, cache, tx, events, validate, cfg.App.RecipesPerPage, log)
	},
	fx.Annotate(plan.NewPlanService, fx.As(new(inbound.PlanService))),
)

// HTTPModule provides the health checks and both HTTP surfaces.
var HTTPModule = fx.Provide(
	NewHealthCheck,
	NewRateLimiter,
	func(cache outbound.CacheRepository, tokens outbound.TokenService, cfg *config.Config, log *zap.Logger) *webserver.SessionStore {
		return webserver.NewSessionStore(cache, tokens, cfg, log.Named("sessions"))
	},
	apiserver.NewAPIServer,
	NewWebServer,
)

// NewRateLimiter provides the request limiter. The in-process one gets a
// janitor that runs for the app's lifetime.
func NewRateLimiter(lc fx.Lifecycle, cfg *config.Config, cache outbound.CacheRepository, log *zap.Logger) security.RateLimiter {
	limiter := security.NewRateLimiter(cfg, cache, log.Named("ratelimit"))
	if local, ok := limiter.(*security.LocalRateLimiter); ok {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				local.Start(local.PruneInterval())
				return nil
			},
			OnStop: func(context.Context) error {
				local.Stop()
				return nil
			},
		})
	}
	return limiter
}

// NewHealthCheck registers the database and, when present, Redis.
func NewHealthCheck(cfg *config.Config, db *sql.DB, client goredis.UniversalClient, log *zap.Logger) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log.Named("health"))
	hc.Register("database", healthcheck.NewDatabaseChecker(db))
	if client != nil {
		hc.Register("redis", healthcheck.NewRedisChecker(client))
	}
	return hc
}

// WebParams gathers the web server dependencies.
type WebParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Users    inbound.UserService
	Recipes  inbound.RecipeService
	Plans    inbound.PlanService
	Sessions *webserver.SessionStore
	Limiter  security.RateLimiter
	Metrics  *monitoring.Metrics
	Tracing  *monitoring.Tracing
	Health   *healthcheck.HealthCheck
	API      *apiserver.APIServer
}

// NewWebServer leaves out the metrics and tracing middleware the config
// switches off.
func NewWebServer(p WebParams) (*webserver.WebServer, error) {
	metrics := p.Metrics
	if !p.Config.Monitoring.EnableMetrics {
		metrics = nil
	}
	tracing := p.Tracing
	if !p.Config.Monitoring.EnableTracing {
		tracing = nil
	}
	return webserver.NewWebServer(p.Config, p.Logger, p.Users, p.Recipes, p.Plans, p.Sessions,
		p.Limiter, metrics, tracing, p.Health, p.API.Handler())
}

// RegisterLifecycleHooks starts and stops the server.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	db *sql.DB,
	server *webserver.WebServer,
	users *user.UserService,
	metrics *monitoring.Metrics,
	tracing *monitoring.Tracing,
	bus *EventBus,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting TyMenu",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)
			if cfg.Monitoring.EnableMetrics {
				if err := metrics.RegisterDB(db, "main"); err != nil {
					log.Warn("Failed to register database metrics", zap.Error(err))
				}
				bus.Subscribe(metrics)
			}

			go func() {
				if err := server.Start(); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down TyMenu")
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}
			users.Wait()
			if err := tracing.Shutdown(ctx); err != nil {
				log.Warn("Failed to flush traces", zap.Error(err))
			}
			if err := metrics.Shutdown(ctx); err != nil {
				log.Warn("Failed to flush metrics", zap.Error(err))
			}
			_ = log.Sync()
			return nil
		},
	})
}
