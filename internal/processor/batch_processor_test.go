package processor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dxbdata/server/config"
	"dxbdata/server/internal/models"
	"dxbdata/server/internal/queue"
)

// MockWriter is a mock implementation of BatchWriter
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteTransactionBatch(batch []*models.Transaction) error {
	args := m.Called(batch)
	return args.Error(0)
}

func (m *MockWriter) WriteRentalBatch(batch []*models.Rental) error {
	args := m.Called(batch)
	return args.Error(0)
}

// countingWriter tallies writes per record kind.
type countingWriter struct {
	mu          sync.Mutex
	txWrites    int
	rentWrites  int
	txRecords   int
	rentRecords int
}

func (w *countingWriter) WriteTransactionBatch(batch []*models.Transaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.txWrites++
	w.txRecords += len(batch)
	return nil
}

func (w *countingWriter) WriteRentalBatch(batch []*models.Rental) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rentWrites++
	w.rentRecords += len(batch)
	return nil
}

func (w *countingWriter) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.txWrites, w.rentWrites
}

func newTestConfig(workers, retries int) *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = workers
	cfg.BatchProcessing.MaxRetries = retries
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func TestNewBatchProcessor(t *testing.T) {
	// Setup
	mockWriter := &MockWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)

	// Test
	processor := NewBatchProcessor(mockWriter, q, newTestConfig(2, 3), logger)

	// Assert
	assert.NotNil(t, processor)
	assert.Equal(t, mockWriter, processor.writer)
	assert.Equal(t, q, processor.queue)
	assert.Equal(t, logger, processor.logger)
}

func TestBatchProcessor_ProcessBatchRetries(t *testing.T) {
	// Setup
	mockWriter := &MockWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)
	processor := NewBatchProcessor(mockWriter, q, newTestConfig(2, 2), logger)

	txs := []*models.Transaction{
		{ID: 1, AreaName: "Dubai Marina"},
		{ID: 2, AreaName: "Business Bay"},
	}
	batch := queue.Batch{Transactions: txs}

	// Test successful processing
	mockWriter.On("WriteTransactionBatch", txs).Return(nil).Once()
	err := processor.processBatch(batch)
	assert.NoError(t, err)

	// Test retry on failure: one initial attempt plus MaxRetries
	mockWriter.On("WriteTransactionBatch", txs).Return(errors.New("db error")).Times(3)
	err = processor.processBatch(batch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write batch after 2 retries")
	mockWriter.AssertExpectations(t)
}

func TestBatchProcessor_RentalBatchRouting(t *testing.T) {
	// Setup
	mockWriter := &MockWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)
	processor := NewBatchProcessor(mockWriter, q, newTestConfig(1, 0), logger)

	rentals := []*models.Rental{{ID: 7, AreaName: "JVC"}}
	mockWriter.On("WriteRentalBatch", rentals).Return(nil).Once()

	// Test
	err := processor.processBatch(queue.Batch{Rentals: rentals})

	// Assert
	assert.NoError(t, err)
	mockWriter.AssertExpectations(t)
}

func TestBatchProcessor_EachBatchWrittenOnce(t *testing.T) {
	// Setup: more than one worker competing for the same queue
	writer := &countingWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)
	processor := NewBatchProcessor(writer, q, newTestConfig(2, 0), logger)

	processor.Start()

	// Test
	err := q.PushTransactions([]*models.Transaction{{ID: 1}, {ID: 2}})
	assert.NoError(t, err)

	q.Close()
	processor.Stop()

	// Assert: one push means one write, regardless of worker count
	txWrites, rentWrites := writer.counts()
	assert.Equal(t, 1, txWrites)
	assert.Equal(t, 0, rentWrites)
}

func TestBatchProcessor_BatchPushedBeforeStartIsNotLost(t *testing.T) {
	// Setup
	writer := &countingWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)
	processor := NewBatchProcessor(writer, q, newTestConfig(2, 0), logger)

	// Test: batches buffered before any worker exists
	assert.NoError(t, q.PushTransactions([]*models.Transaction{{ID: 1}}))
	assert.NoError(t, q.PushRentals([]*models.Rental{{ID: 1}}))

	processor.Start()
	q.Close()
	processor.Stop()

	// Assert: both batches consumed exactly once
	txWrites, rentWrites := writer.counts()
	assert.Equal(t, 1, txWrites)
	assert.Equal(t, 1, rentWrites)
}

func TestBatchProcessor_StopDrainsQueue(t *testing.T) {
	// Setup
	writer := &countingWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)
	processor := NewBatchProcessor(writer, q, newTestConfig(1, 0), logger)

	for i := 0; i < 3; i++ {
		assert.NoError(t, q.PushTransactions([]*models.Transaction{{ID: uint(i + 1)}}))
	}

	// Test
	processor.Start()
	q.Close()
	processor.Stop()

	// Assert
	txWrites, _ := writer.counts()
	assert.Equal(t, 3, txWrites)
	assert.Equal(t, 3, writer.txRecords)
}

func TestBatchProcessor_EndToEnd(t *testing.T) {
	// Setup
	mockWriter := &MockWriter{}
	logger := logrus.New()
	q := queue.NewRecordQueue(10, logger)
	processor := NewBatchProcessor(mockWriter, q, newTestConfig(1, 0), logger)

	written := make(chan int, 1)
	mockWriter.On("WriteTransactionBatch", mock.Anything).Run(func(args mock.Arguments) {
		batch := args.Get(0).([]*models.Transaction)
		written <- len(batch)
	}).Return(nil).Once()

	processor.Start()
	defer func() {
		q.Close()
		processor.Stop()
	}()

	// Test
	err := q.PushTransactions([]*models.Transaction{{ID: 1}, {ID: 2}, {ID: 3}})
	assert.NoError(t, err)

	// Assert
	select {
	case n := <-written:
		assert.Equal(t, 3, n)
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not written")
	}
}
