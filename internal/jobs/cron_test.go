package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type countingJob struct {
	calls int
	err   error
}

func (j *countingJob) SweepExpired(ctx context.Context) (int, error) {
	j.calls++
	return 3, j.err
}

func (j *countingJob) ReconcileStats(ctx context.Context) (int, error) {
	j.calls++
	return 0, j.err
}

func TestRegisterJobs(t *testing.T) {
	sweeper, reconciler := &countingJob{}, &countingJob{}
	m := NewCronManager(Schedules{SessionSweep: "0 */5 * * * *", StatsReconcile: "0 0 3 * * *"}, sweeper, reconciler, zerolog.Nop())
	if err := m.registerJobs(); err != nil {
		t.Fatalf("registerJobs: %v", err)
	}
	if got := len(m.cron.Entries()); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
}

func TestEmptyScheduleDisablesJob(t *testing.T) {
	m := NewCronManager(Schedules{SessionSweep: "*/30 * * * * *"}, &countingJob{}, &countingJob{}, zerolog.Nop())
	if err := m.registerJobs(); err != nil {
		t.Fatalf("registerJobs: %v", err)
	}
	if got := len(m.cron.Entries()); got != 1 {
		t.Fatalf("entries = %d, want 1", got)
	}
}

func TestInvalidScheduleRejected(t *testing.T) {
	m := NewCronManager(Schedules{SessionSweep: "every five minutes"}, &countingJob{}, &countingJob{}, zerolog.Nop())
	if err := m.registerJobs(); err == nil {
		t.Fatal("expected an error for an unparsable spec")
	}
}

func TestRunJobSurvivesFailure(t *testing.T) {
	job := &countingJob{err: errors.New("store offline")}
	m := NewCronManager(Schedules{}, job, job, zerolog.Nop())
	m.runJob("session_sweep", job.SweepExpired)
	m.runJob("session_sweep", job.SweepExpired)
	if job.calls != 2 {
		t.Fatalf("calls = %d, want 2", job.calls)
	}
}
