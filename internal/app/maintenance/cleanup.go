package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/hrmatrix/internal/monitoring"
	"github.com/charlesng35/hrmatrix/pkg/logger"
	"github.com/charlesng35/hrmatrix/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultGaugeSpec          = "@every 5m"
	defaultJobTimeout         = 2 * time.Minute

	// JobAuditRetention prunes audit rows past the retention window.
	JobAuditRetention = "audit_retention"
	// JobPendingInvitations refreshes the pending invitation gauge.
	JobPendingInvitations = "pending_invitations"
)

// AuditPruner removes audit rows older than the given number of days.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, days int) (int64, error)
}

// PendingCounter reports how many invitations are still redeemable.
type PendingCounter interface {
	CountPending(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance tasks such as pruning stale audit logs
// and keeping the pending invitation gauge current.
type Cleaner struct {
	audit     AuditPruner
	invites   PendingCounter
	tracker   *monitoring.JobTracker
	cron      *cron.Cron
	log       *zap.Logger
	retention int
	timeout   time.Duration

	auditSchedule string
	gaugeSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithGaugeSchedule overrides the cron expression for the pending invitation gauge.
func WithGaugeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.gaugeSchedule = spec
		}
	}
}

// WithTracker records every job run so health probes can report on them.
func WithTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithJobTimeout bounds a single scheduled run.
func WithJobTimeout(timeout time.Duration) Option {
	return func(cleaner *Cleaner) {
		if timeout > 0 {
			cleaner.timeout = timeout
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding job being skipped.
func NewCleaner(audit AuditPruner, invites PendingCounter, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:         audit,
		invites:       invites,
		retention:     defaultAuditRetentionDays,
		timeout:       defaultJobTimeout,
		auditSchedule: defaultAuditSpec,
		gaugeSchedule: defaultGaugeSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		c.tracker.Register(j.name)
		if _, err := c.cron.AddFunc(j.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			defer cancel()
			if err := c.run(ctx, j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Bootstrap calls it once at startup
// so the gauge is populated before the first scrape.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.run(ctx, j))
	}
	return errs
}

type job struct {
	name string
	spec string
	fn   func(ctx context.Context) error
}

func (c *Cleaner) jobs() []job {
	var out []job
	if c.audit != nil && c.retention > 0 {
		out = append(out, job{name: JobAuditRetention, spec: c.auditSchedule, fn: c.pruneAudit})
	}
	if c.invites != nil {
		out = append(out, job{name: JobPendingInvitations, spec: c.gaugeSchedule, fn: c.refreshPending})
	}
	return out
}

func (c *Cleaner) run(ctx context.Context, j job) error {
	start := time.Now()
	err := j.fn(ctx)
	c.tracker.Record(j.name, err, time.Since(start))
	return err
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Info("pruned audit logs", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return nil
}

func (c *Cleaner) refreshPending(ctx context.Context) error {
	count, err := c.invites.CountPending(ctx)
	if err != nil {
		return err
	}
	metrics.PendingInvitations.Set(float64(count))
	return nil
}
