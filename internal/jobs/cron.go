package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const jobTimeout = 2 * time.Minute

// SessionSweeper drops expired onboarding sessions
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// StatsReconciler recomputes denormalised social counters
type StatsReconciler interface {
	ReconcileStats(ctx context.Context) (int, error)
}

// Schedules holds the cron specs, seconds field first
type Schedules struct {
	SessionSweep   string
	StatsReconcile string
}

// CronManager runs the periodic housekeeping jobs
type CronManager struct {
	cron       *cron.Cron
	schedules  Schedules
	sessions   SessionSweeper
	reconciler StatsReconciler
	logger     zerolog.Logger
}

// NewCronManager creates a cron manager with seconds precision
func NewCronManager(schedules Schedules, sessions SessionSweeper, reconciler StatsReconciler, logger zerolog.Logger) *CronManager {
	return &CronManager{
		cron:       cron.New(cron.WithSeconds()),
		schedules:  schedules,
		sessions:   sessions,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "cron").Logger(),
	}
}

// Start registers every job and starts the scheduler
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	m.logger.Info().Int("jobs", len(m.cron.Entries())).Msg("Cron jobs started")
	return nil
}

// Stop waits for running jobs to finish
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info().Msg("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int, error)
	}{
		{"session_sweep", m.schedules.SessionSweep, m.sessions.SweepExpired},
		{"stats_reconcile", m.schedules.StatsReconcile, m.reconciler.ReconcileStats},
	}

	for _, job := range jobs {
		if job.spec == "" {
			m.logger.Info().Str("job", job.name).Msg("Job disabled, no schedule")
			continue
		}
		job := job
		if _, err := m.cron.AddFunc(job.spec, func() { m.runJob(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}
	return nil
}

// runJob executes one job with a timeout and logs its outcome
func (m *CronManager) runJob(name string, run func(ctx context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	affected, err := run(ctx)
	if err != nil {
		m.logger.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("Cron job failed")
		return
	}
	m.logger.Info().Str("job", name).Int("affected", affected).Dur("took", time.Since(start)).Msg("Cron job completed")
}
