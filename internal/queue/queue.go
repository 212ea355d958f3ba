package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"dxbdata/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Batch is one ingested page of ledger records. Exactly one of the two
// slices is populated.
type Batch struct {
	Transactions []*models.Transaction
	Rentals      []*models.Rental
}

// Size returns the number of records in the batch.
func (b Batch) Size() int {
	return len(b.Transactions) + len(b.Rentals)
}

// RecordQueue buffers ingested batches between the HTTP surface and the
// batch processor. Each batch is claimed by exactly one consumer
// reading from Batches.
type RecordQueue struct {
	batches chan Batch
	mu      sync.RWMutex
	closed  bool
	logger  *logrus.Logger
}

// NewRecordQueue creates a queue buffering up to bufferSize batches.
func NewRecordQueue(bufferSize int, logger *logrus.Logger) *RecordQueue {
	return &RecordQueue{
		batches: make(chan Batch, bufferSize),
		logger:  logger,
	}
}

// PushTransactions enqueues a batch of sale records. The send never
// blocks; a full buffer returns ErrQueueFull so the caller can shed
// load instead of deadlocking.
func (q *RecordQueue) PushTransactions(txs []*models.Transaction) error {
	return q.push(Batch{Transactions: txs})
}

// PushRentals enqueues a batch of rental contracts.
func (q *RecordQueue) PushRentals(rentals []*models.Rental) error {
	return q.push(Batch{Rentals: rentals})
}

func (q *RecordQueue) push(b Batch) error {
	// The read lock is held across the send so Close cannot close the
	// channel mid-push.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.batches <- b:
		q.logger.WithField("batch_size", b.Size()).Debug("Queued batch")
		return nil
	default:
		return ErrQueueFull
	}
}

// Batches exposes the consumer side of the queue. The channel closes
// once Close is called and every buffered batch has been drained.
func (q *RecordQueue) Batches() <-chan Batch {
	return q.batches
}

// Close rejects further pushes. Batches already buffered stay readable
// until consumed.
func (q *RecordQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.batches)
	return nil
}

// Len returns the current number of buffered batches.
func (q *RecordQueue) Len() int {
	return len(q.batches)
}

// IsClosed returns whether the queue has been closed.
func (q *RecordQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
