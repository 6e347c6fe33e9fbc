package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScheduler() *Scheduler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewScheduler(logger)
}

func TestRunNowUnknownTask(t *testing.T) {
	s := testScheduler()

	result, err := s.RunNow("nope")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestRunNowReturnsCounters(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.Register("scan", "", func(context.Context) (map[string]int, error) {
		return map[string]int{"scanned": 12, "queued": 3}, nil
	}))

	result, err := s.RunNow("scan")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "scan", result.Task)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, map[string]int{"scanned": 12, "queued": 3}, result.Counters)
	assert.Empty(t, result.Error)
}

func TestRunNowSingleFlight(t *testing.T) {
	s := testScheduler()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register("slow", "", func(context.Context) (map[string]int, error) {
		close(started)
		<-release
		return nil, nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.RunNow("slow")
		assert.NoError(t, err)
	}()

	<-started
	_, err := s.RunNow("slow")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	wg.Wait()

	// After the first run completes the task is runnable again
	_, err = s.RunNow("slow")
	assert.NoError(t, err)
}

func TestRunNowTaskError(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.Register("broken", "", func(context.Context) (map[string]int, error) {
		return map[string]int{"attempted": 1}, fmt.Errorf("upstream unreachable")
	}))

	result, err := s.RunNow("broken")
	require.NoError(t, err, "a failing task is still a completed run")
	assert.False(t, result.Success)
	assert.Equal(t, "upstream unreachable", result.Error)
	assert.Equal(t, map[string]int{"attempted": 1}, result.Counters)
}

func TestRunNowPanicBecomesFailedResult(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.Register("crashy", "", func(context.Context) (map[string]int, error) {
		panic("nil map write")
	}))

	result, err := s.RunNow("crashy")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "nil map write")

	// The running flag was cleared despite the panic
	result, err = s.RunNow("crashy")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestRegisterDuplicateName(t *testing.T) {
	s := testScheduler()
	fn := func(context.Context) (map[string]int, error) { return nil, nil }

	require.NoError(t, s.Register("once", "", fn))
	assert.Error(t, s.Register("once", "", fn))
}

func TestRegisterRejectsBadCronExpr(t *testing.T) {
	s := testScheduler()
	err := s.Register("bad", "not a cron expr", func(context.Context) (map[string]int, error) { return nil, nil })
	assert.Error(t, err)
}

func TestStatuses(t *testing.T) {
	s := testScheduler()
	fn := func(context.Context) (map[string]int, error) { return map[string]int{"n": 1}, nil }

	require.NoError(t, s.Register("b-scheduled", "0 2 * * *", fn))
	require.NoError(t, s.Register("a-manual", "", fn))

	s.Start()
	defer s.Stop()

	_, err := s.RunNow("a-manual")
	require.NoError(t, err)

	statuses := s.Statuses()
	require.Len(t, statuses, 2)

	assert.Equal(t, "a-manual", statuses[0].Name)
	assert.False(t, statuses[0].Running)
	assert.Nil(t, statuses[0].NextRun)
	require.NotNil(t, statuses[0].LastResult)
	assert.True(t, statuses[0].LastResult.Success)

	assert.Equal(t, "b-scheduled", statuses[1].Name)
	assert.Equal(t, "0 2 * * *", statuses[1].CronExpr)
	require.NotNil(t, statuses[1].NextRun)
	assert.True(t, statuses[1].NextRun.After(time.Now().Add(-time.Minute)))
	assert.Nil(t, statuses[1].LastResult)
}
