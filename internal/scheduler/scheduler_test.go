package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	run      func(call int32) error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	call := j.calls.Add(1)
	if j.run == nil {
		return nil
	}
	return j.run(call)
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 0 * * * *"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "not a schedule"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	_, err := s.NextRun("a")
	assert.Error(t, err)
}

func TestRunJob_Success(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "ok", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("ok")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.Error)
	assert.EqualValues(t, 1, job.calls.Load())
}

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "flaky", schedule: "@daily", run: func(call int32) error {
		if call < 3 {
			return errors.New("upstream down")
		}
		return nil
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("flaky")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
}

func TestRunJob_ExhaustsRetries(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "broken", schedule: "@daily", run: func(int32) error {
		return errors.New("upstream down")
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("broken")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "upstream down", result.Error)
}

func TestRunJob_RetryLogOnlyWhenRetrying(t *testing.T) {
	var buf bytes.Buffer
	s := New(logger.NewWithWriter(&buf, "debug", "test")).WithRetry(2, time.Millisecond)
	job := &fakeJob{name: "broken", schedule: "@daily", run: func(int32) error {
		return errors.New("upstream down")
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("broken")
	require.NoError(t, err)
	require.Equal(t, 3, result.Attempts)

	assert.Equal(t, 2, strings.Count(buf.String(), "Job execution failed, retrying"))
	assert.Equal(t, 1, strings.Count(buf.String(), `"message":"Job failed"`))
}

func TestRunJob_PermanentErrorNotRetried(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "bad", schedule: "@daily", run: func(int32) error {
		return fmt.Errorf("%w: bad criteria", ErrPermanent)
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("bad")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestRunJob_Unknown(t *testing.T) {
	_, err := newTestScheduler().RunJob("missing")
	assert.Error(t, err)
}

func TestJobHistoryAndStats(t *testing.T) {
	s := New(logger.Nop()).WithRetry(0, 0)
	fail := atomic.Bool{}
	job := &fakeJob{name: "screening", schedule: "@daily", run: func(int32) error {
		if fail.Load() {
			return errors.New("boom")
		}
		return nil
	}}
	require.NoError(t, s.AddJob(job))

	_, _ = s.RunJob("screening")
	_, _ = s.RunJob("screening")
	fail.Store(true)
	_, _ = s.RunJob("screening")

	history, err := s.GetJobHistory("screening")
	require.NoError(t, err)
	require.Len(t, history.Results, 3)
	assert.False(t, history.Results[2].Success)

	stats := s.GetJobStats()["screening"]
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	require.NotNil(t, stats.LastRun)
	assert.False(t, stats.LastSuccess)

	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Attempts: i, Success: true})
	}

	require.Len(t, h.Results, maxHistory)
	assert.Equal(t, 5, h.Results[0].Attempts)

	latest := h.GetLatestResults(2)
	require.Len(t, latest, 2)
	assert.Equal(t, maxHistory+4, latest[1].Attempts)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(3))
	assert.Zero(t, (&JobHistory{}).GetSuccessRate())
}

func TestStartStop_RunsScheduledJob(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "tick", schedule: "@every 1s"}
	require.NoError(t, s.AddJob(job))

	next, err := s.NextRun("tick")
	require.NoError(t, err)
	assert.True(t, next.IsZero(), "next run is unknown before start")

	s.Start()
	assert.Eventually(t, func() bool { return job.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestStop_CancelsRetryWait(t *testing.T) {
	s := New(logger.Nop()).WithRetry(5, time.Hour)
	job := &fakeJob{name: "slow", schedule: "@daily", run: func(int32) error {
		return errors.New("down")
	}}
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult, 1)
	go func() {
		result, _ := s.RunJob("slow")
		done <- result
	}()

	assert.Eventually(t, func() bool { return job.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	select {
	case result := <-done:
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("retry wait was not cancelled")
	}
}
