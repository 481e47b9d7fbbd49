package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

type countingJob struct {
	name  string
	runs  int32
	fails bool
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts its runs" }

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	if j.fails {
		return errors.New("job failed")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.New(logger.Options{Output: io.Discard}))
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "sweep"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	err := s.Register(job, NewIntervalSchedule(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "other"}, nil), ErrNilSchedule)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.RunNow(context.Background(), "sweep"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))

	err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNowPropagatesJobError(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "sweep", fails: true}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	assert.Error(t, s.RunNow(context.Background(), "sweep"))
}

func TestScheduler_ListJobs(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Register(&countingJob{name: "sweep"}, NewIntervalSchedule(5*time.Minute)))
	require.NoError(t, s.Register(&countingJob{name: "rebuild"}, NewIntervalSchedule(time.Minute)))

	infos := s.ListJobs()
	require.Len(t, infos, 2)

	names := map[string]JobInfo{}
	for _, info := range infos {
		names[info.Name] = info
	}
	require.Contains(t, names, "sweep")
	require.Contains(t, names, "rebuild")
	assert.Equal(t, "@every 5m0s", names["sweep"].Schedule)
	assert.False(t, names["sweep"].NextRun.IsZero())
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "fast"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	// The scheduler loop ticks every second; wait for at least one pass.
	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt32(&job.runs) == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	assert.Positive(t, atomic.LoadInt32(&job.runs))
}

func TestIntervalSchedule(t *testing.T) {
	sched := NewIntervalSchedule(15 * time.Minute)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(15*time.Minute), sched.Next(now))
	assert.Equal(t, "@every 15m0s", sched.String())
}
