package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"dxbdata/server/internal/engine"
)

// ScanRunner runs one alert scan pass. Satisfied by engine.Scanner.
type ScanRunner interface {
	ScanAll(ctx context.Context) (engine.ScanSummary, error)
}

// Scheduler runs the alert scanner on a fixed interval, plus once at
// startup. Passes never overlap: a pass still running when the ticker
// fires makes the new pass wait on the job mutex.
type Scheduler struct {
	scanner      ScanRunner
	logger       *logrus.Logger
	interval     time.Duration
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex
	cancelMu     sync.Mutex
	cancelActive context.CancelFunc
}

// NewScheduler creates a scheduler that runs a scan pass every interval.
func NewScheduler(scanner ScanRunner, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Scheduler{
		scanner:  scanner,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduled scans.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Startup pass in its own goroutine so the ticker loop is not
	// delayed by a slow first scan. The WaitGroup tracks it so Stop
	// does not return while it is still running.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.stopChan:
			return
		default:
		}
		s.logger.Info("Running startup alert scan")
		s.runScan()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runScan()
		}
	}
}

// runScan executes one scan pass under the job mutex. The pass context
// is cancelled by Stop, which leaves every unfinished alert's watermark
// untouched for the next pass to resume from.
func (s *Scheduler) runScan() {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelMu.Lock()
	s.cancelActive = cancel
	s.cancelMu.Unlock()
	defer func() {
		cancel()
		s.cancelMu.Lock()
		s.cancelActive = nil
		s.cancelMu.Unlock()
	}()

	summary, err := s.scanner.ScanAll(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("run_id", summary.RunID).Error("Alert scan pass failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":        summary.RunID,
		"alerts":        summary.Alerts,
		"matched":       summary.Matched,
		"deduplicated":  summary.Deduplicated,
		"failed_alerts": summary.FailedAlerts,
	}).Info("Scheduled alert scan completed")
}

// Stop cancels any in-flight scan pass and waits for the scheduler to
// shut down.
func (s *Scheduler) Stop() {
	close(s.stopChan)

	s.cancelMu.Lock()
	if s.cancelActive != nil {
		s.cancelActive()
	}
	s.cancelMu.Unlock()

	s.wg.Wait()
}
