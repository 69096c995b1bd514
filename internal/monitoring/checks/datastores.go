package checks

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/monitoring"
)

const defaultProbeTimeout = 2 * time.Second

var errSchemaMissing = errors.New("schema not migrated")

// probe bounds fn by timeout and converts its error into a result for component.
func probe(ctx context.Context, component string, timeout time.Duration, fn func(context.Context) error) monitoring.ProbeResult {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	return monitoring.ResultFromError(component, err, time.Since(start))
}

// Database pings the pool and confirms the tenant tables exist. A reachable but empty
// database is not ready to serve.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}
		return probe(ctx, "database", timeout, func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			if !db.WithContext(ctx).Migrator().HasTable(&models.Company{}) {
				return errSchemaMissing
			}
			return nil
		})
	})
}

// Redis pings the shared Redis. A nil client means Redis is disabled, which is reported as up.
func Redis(client redis.UniversalClient, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}
		return probe(ctx, "redis", timeout, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	})
}
