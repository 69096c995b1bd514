package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	dbtestutil "github.com/charlesng35/hrmatrix/internal/database/testutil"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/monitoring"
	"github.com/charlesng35/hrmatrix/internal/services"
	"github.com/charlesng35/hrmatrix/pkg/metrics"
)

type stubPruner struct {
	days  int
	calls int
	err   error
}

func (s *stubPruner) CleanupOlderThan(_ context.Context, days int) (int64, error) {
	s.calls++
	s.days = days
	return 3, s.err
}

type stubCounter struct {
	count int64
	err   error
}

func (s stubCounter) CountPending(context.Context) (int64, error) {
	return s.count, s.err
}

func TestCleanerRunOnceRecordsJobs(t *testing.T) {
	pruner := &stubPruner{}
	tracker := monitoring.NewJobTracker()

	cleaner := NewCleaner(pruner, stubCounter{count: 7}, WithAuditRetentionDays(30), WithTracker(tracker))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	require.Equal(t, 1, pruner.calls)
	require.Equal(t, 30, pruner.days)
	require.Equal(t, float64(7), testutil.ToFloat64(metrics.PendingInvitations))

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, JobAuditRetention, snapshot[0].Job)
	require.Equal(t, "success", snapshot[0].LastStatus)
	require.Equal(t, JobPendingInvitations, snapshot[1].Job)
	require.EqualValues(t, 1, snapshot[1].TotalRuns)
}

func TestCleanerRunOnceAggregatesErrors(t *testing.T) {
	pruner := &stubPruner{err: errors.New("audit down")}
	tracker := monitoring.NewJobTracker()

	cleaner := NewCleaner(pruner, stubCounter{err: errors.New("count down")}, WithTracker(tracker))
	err := cleaner.RunOnce(context.Background())
	require.ErrorContains(t, err, "audit down")
	require.ErrorContains(t, err, "count down")

	for _, status := range tracker.Snapshot() {
		require.Equal(t, "failure", status.LastStatus)
		require.EqualValues(t, 1, status.ConsecutiveFailures)
	}
}

func TestCleanerSkipsMissingDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
	<-cleaner.Stop().Done()
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	tracker := monitoring.NewJobTracker()

	cleaner := NewCleaner(&stubPruner{}, stubCounter{}, WithCron(scheduler), WithTracker(tracker),
		WithAuditSchedule("@every 1h"), WithGaugeSchedule("@every 1m"))
	require.NoError(t, cleaner.Start())
	defer cleaner.Stop()

	require.Len(t, scheduler.Entries(), 2)
	require.Len(t, tracker.Snapshot(), 2)
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	cleaner := NewCleaner(&stubPruner{}, nil, WithAuditSchedule("not a schedule"))
	require.Error(t, cleaner.Start())
}

func TestCleanerWithServices(t *testing.T) {
	db := dbtestutil.MustOpenTestDB(t, dbtestutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	invites, err := services.NewInviteService(db, nil)
	require.NoError(t, err)

	stale := models.AuditLog{Action: "stale", Result: models.AuditResultSuccess}
	stale.CreatedAt = time.Now().UTC().AddDate(0, 0, -400)
	require.NoError(t, db.Create(&stale).Error)

	cleaner := NewCleaner(audit, invites, WithAuditRetentionDays(365))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.Zero(t, count)
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.PendingInvitations))
}
