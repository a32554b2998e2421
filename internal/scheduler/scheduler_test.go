package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // 처음 N번 실패
	calls    atomic.Int32
	block    chan struct{}
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestScheduler_AddRemove(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 30 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "c", schedule: "30 18 * * *"}), "five fields are rejected")

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
}

func TestScheduler_RunJobRetries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(2, time.Millisecond))
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	job.failures = 10
	result, err = s.RunJob("flaky")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-12)
	require.NotNil(t, stats.LastFailure)

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestScheduler_SkipsOverlap(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, time.Millisecond))
	job := &countingJob{name: "slow", schedule: "@daily", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult, 1)
	go func() {
		r, _ := s.RunJob("slow")
		done <- r
	}()
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, time.Millisecond)

	skipped, err := s.RunJob("slow")
	require.NoError(t, err)
	assert.True(t, skipped.Skipped)

	close(job.block)
	assert.True(t, (<-done).Success)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := New(logger.Nop(), WithRetry(3, time.Hour))
	job := &countingJob{name: "stuck", schedule: "@daily", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))
	s.Start()

	done := make(chan JobResult, 1)
	go func() {
		r, _ := s.RunJob("stuck")
		done <- r
	}()
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Stop()
	select {
	case r := <-done:
		assert.False(t, r.Success)
		assert.Equal(t, 1, r.Attempts, "no retry after stop")
	case <-time.After(2 * time.Second):
		t.Fatal("job not cancelled")
	}
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Latest()
	assert.False(t, ok)
	assert.Equal(t, 0.0, h.GetSuccessRate())

	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Attempts: i, Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)

	last, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, maxHistory+4, last.Attempts)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Len(t, h.GetLatestResults(1000), maxHistory)
}
