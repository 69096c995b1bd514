package checks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/hrmatrix/internal/database/testutil"
	"github.com/charlesng35/hrmatrix/internal/monitoring"
)

func TestDatabaseCheck(t *testing.T) {
	empty := testutil.MustOpenTestDB(t)
	result := Database(empty, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "schema not migrated")

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	result = Database(db, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestRedisCheck(t *testing.T) {
	result := Redis(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "redis disabled", result.Details)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	result = Redis(client, 500*time.Millisecond).Run(context.Background())
	require.NotEqual(t, monitoring.StatusUp, result.Status)
	require.NotEmpty(t, result.Details)
}

func TestMaintenanceCheck(t *testing.T) {
	tracker := monitoring.NewJobTracker()
	check := Maintenance(tracker, time.Hour)

	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	tracker.Register("audit_retention")
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "pending first run")

	tracker.Record("audit_retention", errors.New("disk full"), time.Millisecond)
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "disk full")

	tracker.Record("audit_retention", nil, time.Millisecond)
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
}
