package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthManagerAggregatesWorstStatus(t *testing.T) {
	manager := NewHealthManager()
	manager.RegisterLiveness(NewCheck("self", func(context.Context) ProbeResult {
		return ProbeResult{Status: StatusUp}
	}))
	manager.RegisterReadiness(NewCheck("cache", func(context.Context) ProbeResult {
		return ProbeResult{Status: StatusDegraded, Details: "slow"}
	}))

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Equal(t, StatusUp, live.Status)
	require.Len(t, live.Checks, 1)
	require.Equal(t, "self", live.Checks[0].Component)

	ready := manager.EvaluateReadiness(context.Background())
	require.False(t, ready.Success)
	require.Equal(t, StatusDegraded, ready.Status)

	manager.RegisterReadiness(NewCheck("database", func(context.Context) ProbeResult {
		return ProbeResult{Status: StatusDown}
	}))
	all := manager.Evaluate(context.Background())
	require.Equal(t, StatusDown, all.Status)
	require.Len(t, all.Checks, 3)
}

func TestHealthManagerRecoversPanics(t *testing.T) {
	manager := NewHealthManager()
	manager.RegisterReadiness(NewCheck("boom", func(context.Context) ProbeResult {
		panic("exploded")
	}))
	manager.RegisterReadiness(NewCheck("", nil))
	manager.RegisterReadiness(NewCheck("missing", nil))

	report := manager.EvaluateReadiness(context.Background())
	require.Len(t, report.Checks, 2)
	require.Equal(t, "boom", report.Checks[0].Component)
	require.Equal(t, StatusDown, report.Checks[0].Status)
	require.Equal(t, "exploded", report.Checks[0].Details)
	require.Equal(t, StatusDown, report.Checks[1].Status)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, StatusUp, ResultFromError("db", nil, time.Millisecond).Status)
	require.Equal(t, StatusDown, ResultFromError("db", errors.New("refused"), 0).Status)
	require.Equal(t, StatusDegraded, ResultFromError("db", context.DeadlineExceeded, -1).Status)
}

func TestJobTracker(t *testing.T) {
	tracker := NewJobTracker()
	tracker.Register("audit_retention")
	tracker.Record("pending_gauge", nil, time.Millisecond)
	tracker.Record("audit_retention", errors.New("locked"), time.Millisecond)
	tracker.Record("audit_retention", errors.New("locked"), time.Millisecond)

	jobs := tracker.Snapshot()
	require.Len(t, jobs, 2)
	require.Equal(t, "audit_retention", jobs[0].Job)
	require.EqualValues(t, 2, jobs[0].ConsecutiveFailures)
	require.Equal(t, "locked", jobs[0].LastError)
	require.Equal(t, "success", jobs[1].LastStatus)

	tracker.Record("audit_retention", nil, time.Millisecond)
	jobs = tracker.Snapshot()
	require.Zero(t, jobs[0].ConsecutiveFailures)
	require.EqualValues(t, 3, jobs[0].TotalRuns)

	var nilTracker *JobTracker
	require.Nil(t, nilTracker.Snapshot())
}
