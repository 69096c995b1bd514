package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/api"
	"github.com/charlesng35/hrmatrix/internal/app"
	"github.com/charlesng35/hrmatrix/internal/app/maintenance"
	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/cache"
	"github.com/charlesng35/hrmatrix/internal/database"
	"github.com/charlesng35/hrmatrix/internal/middleware"
	"github.com/charlesng35/hrmatrix/internal/monitoring"
	"github.com/charlesng35/hrmatrix/internal/monitoring/checks"
	"github.com/charlesng35/hrmatrix/internal/storage"
	"github.com/charlesng35/hrmatrix/pkg/logger"
	"github.com/charlesng35/hrmatrix/pkg/mail"
)

const probeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Services  *api.Services
	Health    *monitoring.HealthManager
	Jobs      *monitoring.JobTracker
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, optional Redis, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var locker cache.Locker = cache.NewMemoryLocker()
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to in-process coordination", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			locker = cache.NewRedisLocker(stack.Redis)
			stack.RateStore = middleware.NewCacheRateStore(cache.NewRedisStore(stack.Redis))
		}
	}

	store, err := initialiseStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Info("smtp disabled; invitation links are returned to the inviter")
	}

	stack.Services, err = api.NewServices(stack.DB, cfg, api.ServiceOptions{
		Store:  store,
		Mailer: mailer,
		Locker: locker,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}
	authenticator, err := iauth.NewAuthenticator(stack.DB, jwtSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise authenticator: %w", err)
	}

	stack.Jobs = monitoring.NewJobTracker()
	stack.Health = monitoring.NewHealthManager()
	stack.Health.RegisterReadiness(checks.Database(stack.DB, probeTimeout))
	if stack.Redis != nil {
		stack.Health.RegisterReadiness(checks.Redis(stack.Redis, probeTimeout))
	}
	stack.Health.RegisterReadiness(checks.Maintenance(stack.Jobs, 0))

	stack.Cleaner = maintenance.NewCleaner(stack.Services.Audit, stack.Services.Invites,
		maintenance.WithTracker(stack.Jobs),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithGaugeSchedule(cfg.Maintenance.GaugeSchedule),
	)
	if err := stack.Cleaner.RunOnce(ctx); err != nil {
		log.Warn("initial maintenance run failed", zap.Error(err))
	}
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		Authenticator: authenticator,
		Services:      stack.Services,
		Health:        stack.Health,
		Jobs:          stack.Jobs,
		RateStore:     stack.RateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}

	var errs error
	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}
	errs = multierr.Append(errs, database.Close(s.DB))
	if errs != nil {
		log.Warn("shutdown released resources with errors", zap.Error(errs))
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	driver := dbCfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	logger.WithModule("database").Info("database connected", zap.String("driver", driver))

	return db, nil
}

func initialiseStorage(cfg app.StorageConfig) (storage.Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "local", "filesystem":
		store, err := storage.NewLocalStore(cfg.Root, cfg.PublicPath)
		if err != nil {
			return nil, fmt.Errorf("initialise storage: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(cfg.PublicPath), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
