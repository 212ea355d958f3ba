package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"dxbdata/server/internal/engine"
)

type fakeRunner struct {
	mu       sync.Mutex
	runs     int
	running  bool
	overlap  bool
	block    time.Duration
	windDown time.Duration
}

func (f *fakeRunner) ScanAll(ctx context.Context) (engine.ScanSummary, error) {
	f.mu.Lock()
	if f.running {
		f.overlap = true
	}
	f.running = true
	f.runs++
	f.mu.Unlock()

	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
		}
	}
	if f.windDown > 0 {
		time.Sleep(f.windDown)
	}

	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	return engine.ScanSummary{}, nil
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestScheduler_RunsStartupScan(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, time.Hour, logrus.New())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, runner.runCount())
}

func TestScheduler_TickerRunsAndNeverOverlaps(t *testing.T) {
	runner := &fakeRunner{block: 30 * time.Millisecond}
	s := NewScheduler(runner, 20*time.Millisecond, logrus.New())

	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, runner.runCount(), 2)
	assert.False(t, runner.overlap, "scan passes must not overlap")
}

func TestScheduler_StopWaitsForStartupScan(t *testing.T) {
	// The startup pass honours cancellation but still needs a moment to
	// wind down after it fires.
	runner := &fakeRunner{block: 5 * time.Second, windDown: 30 * time.Millisecond}
	s := NewScheduler(runner, time.Hour, logrus.New())

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	// Stop must not return while the startup scan is still running
	runner.mu.Lock()
	stillRunning := runner.running
	runner.mu.Unlock()
	assert.False(t, stillRunning, "Stop returned before the startup scan finished")
	assert.Equal(t, 1, runner.runCount())
}

func TestScheduler_StopCancelsInFlightScan(t *testing.T) {
	runner := &fakeRunner{block: 5 * time.Second}
	s := NewScheduler(runner, time.Hour, logrus.New())

	s.Start()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the in-flight scan")
	}
}
