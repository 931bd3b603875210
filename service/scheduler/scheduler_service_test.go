package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerServiceRejectsInvalidCron(t *testing.T) {
	_, err := NewSchedulerService("not a cron", 0, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunNowRecordsResult(t *testing.T) {
	boom := errors.New("boom")
	s, err := NewSchedulerService("", time.Second, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	})
	require.NoError(t, err)

	s.RunNow()
	count, lastRun, lastErr := s.Stats()
	assert.Equal(t, 1, count)
	assert.NotNil(t, lastRun)
	assert.ErrorIs(t, lastErr, boom)
}

func TestScheduledRefreshRuns(t *testing.T) {
	var calls int32
	s, err := NewSchedulerService("* * * * * *", 0, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestStopCancelsRunningRefresh(t *testing.T) {
	started := make(chan struct{}, 1)
	cancelled := make(chan struct{})
	var once sync.Once
	s, err := NewSchedulerService("* * * * * *", 0, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		once.Do(func() { close(cancelled) })
		return ctx.Err()
	})
	require.NoError(t, err)

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("刷新未被触发")
	}
	s.Stop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("停止后刷新未被取消")
	}
}
