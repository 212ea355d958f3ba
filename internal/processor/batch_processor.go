package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"dxbdata/server/config"
	"dxbdata/server/internal/models"
	"dxbdata/server/internal/queue"
)

// BatchWriter persists one batch of ledger rows atomically.
type BatchWriter interface {
	WriteTransactionBatch(batch []*models.Transaction) error
	WriteRentalBatch(batch []*models.Rental) error
}

// BatchProcessor drains the ingest queue and writes record batches to
// the ledger with retry. Workers receive from the queue channel
// directly, so every batch is written by exactly one worker and
// ProcessorCount controls write parallelism.
type BatchProcessor struct {
	writer    BatchWriter
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.RecordQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance.
func NewBatchProcessor(writer BatchWriter, queue *queue.RecordQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		writer: writer,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker pool. Workers exit when the queue is
// closed and drained.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.worker()
	}
}

// Stop aborts pending retry waits and blocks until the workers have
// drained the queue. Close the queue before calling Stop.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) worker() {
	defer p.waitGroup.Done()

	for batch := range p.queue.Batches() {
		if err := p.processBatch(batch); err != nil {
			p.logger.WithError(err).Error("Dropping batch after exhausting retries")
		}
	}
}

// processBatch writes a single batch with retry. Each attempt runs in
// one database transaction, so a failed attempt leaves no rows behind
// and the retry starts from a clean slate.
func (p *BatchProcessor) processBatch(batch queue.Batch) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch write, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			select {
			case <-p.ctx.Done():
				return p.ctx.Err()
			case <-time.After(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second):
			}
		}

		err = p.writeBatch(batch)
		if err == nil {
			p.logger.Infof("Successfully wrote batch of %d records", batch.Size())
			return nil
		}

		p.logger.Errorf("Batch write failed: %v", err)
	}

	return fmt.Errorf("failed to write batch after %d retries: %w", p.config.BatchProcessing.MaxRetries, err)
}

func (p *BatchProcessor) writeBatch(batch queue.Batch) error {
	if len(batch.Rentals) > 0 {
		return p.writer.WriteRentalBatch(batch.Rentals)
	}
	return p.writer.WriteTransactionBatch(batch.Transactions)
}
