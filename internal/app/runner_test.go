package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

type fakePassRunner struct {
	mu       sync.Mutex
	kinds    []jobscheduler.PassKind
	nightly  time.Duration
	interval time.Duration
	err      error
}

func (f *fakePassRunner) RunPass(_ context.Context, kind jobscheduler.PassKind, _ time.Time) (usecase.PassResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	return usecase.PassResult{}, f.err
}

func (f *fakePassRunner) NextNightlyRun(now time.Time) time.Time {
	return now.Add(f.nightly)
}

func (f *fakePassRunner) LiveInterval() time.Duration {
	return f.interval
}

func (f *fakePassRunner) count(kind jobscheduler.PassKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestRunner_RefreshesSchedulesThenFiresPasses(t *testing.T) {
	fake := &fakePassRunner{nightly: 20 * time.Millisecond, interval: 10 * time.Millisecond}
	runner := NewRunner(fake, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return fake.count(jobscheduler.PassNightly) >= 1 && fake.count(jobscheduler.PassLive) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, jobscheduler.PassSchedule, fake.kinds[0])
}

func TestRunner_KeepsRunningAfterFailedPass(t *testing.T) {
	fake := &fakePassRunner{nightly: time.Hour, interval: 5 * time.Millisecond, err: errors.New("provider down")}
	runner := NewRunner(fake, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	require.Eventually(t, func() bool {
		return fake.count(jobscheduler.PassLive) >= 3
	}, 2*time.Second, 5*time.Millisecond)
}
