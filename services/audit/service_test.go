package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smotta/flow-rag-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockChatAuditRepository is a mock implementation of ChatAuditRepository
type MockChatAuditRepository struct {
	mock.Mock
	mu       sync.Mutex
	inserted []*models.ChatAuditRecord
}

func (m *MockChatAuditRepository) Insert(ctx context.Context, record *models.ChatAuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	args := m.Called(ctx, record)
	m.inserted = append(m.inserted, record)
	return args.Error(0)
}

func (m *MockChatAuditRepository) GetRecent(ctx context.Context, limit int) ([]*models.ChatAuditRecord, error) {
	args := m.Called(ctx, limit)
	if records := args.Get(0); records != nil {
		return records.([]*models.ChatAuditRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAuditRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.ChatAuditRecord, error) {
	args := m.Called(ctx, requestID)
	if records := args.Get(0); records != nil {
		return records.([]*models.ChatAuditRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAuditRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

func (m *MockChatAuditRepository) GetInserted() []*models.ChatAuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ChatAuditRecord(nil), m.inserted...)
}

func TestService_StartStop(t *testing.T) {
	mockRepo := new(MockChatAuditRepository)
	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())
	assert.Error(t, service.Start(), "double start must fail")

	require.NoError(t, service.Stop(time.Second))
	assert.Error(t, service.Stop(time.Second), "double stop must fail")
}

func TestService_RecordAfterStopFails(t *testing.T) {
	service := NewService(new(MockChatAuditRepository), zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})

	require.NoError(t, service.Start())
	require.NoError(t, service.Stop(time.Second))

	record := models.NewChatAuditRecord("req-1", "question")
	assert.Error(t, service.Record(record), "record after stop must fail, not panic")
}

func TestService_RecordPersists(t *testing.T) {
	mockRepo := new(MockChatAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())

	record := models.NewChatAuditRecord("req-1", "question").
		WithModel("gpt-4o").
		WithOutcome(true, false)
	require.NoError(t, service.Record(record))

	// Stop drains the buffer before returning.
	require.NoError(t, service.Stop(time.Second))

	inserted := mockRepo.GetInserted()
	require.Len(t, inserted, 1)
	assert.Equal(t, record.ID, inserted[0].ID)
}

func TestService_RecordBeforeStart(t *testing.T) {
	service := NewService(nil, zap.NewNop(), DefaultConfig())

	err := service.Record(models.NewChatAuditRecord("req-1", "question"))
	assert.Error(t, err)
}

func TestService_NilRepositoryLogsOnly(t *testing.T) {
	service := NewService(nil, zap.NewNop(), Config{BufferSize: 4, WorkerCount: 1})
	require.NoError(t, service.Start())

	require.NoError(t, service.Record(models.NewChatAuditRecord("req-1", "question")))
	require.NoError(t, service.Stop(time.Second))

	assert.False(t, service.GetStats().Persisting)
}

func TestService_BufferFullDropsRecord(t *testing.T) {
	mockRepo := new(MockChatAuditRepository)

	// Block the single worker so the buffer cannot drain.
	release := make(chan struct{})
	mockRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(nil)

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 1, WorkerCount: 1})
	require.NoError(t, service.Start())

	// First record occupies the worker, second fills the buffer.
	require.NoError(t, service.Record(models.NewChatAuditRecord("req-1", "a")))

	deadline := time.Now().Add(time.Second)
	for service.GetStats().PendingRecords > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, service.Record(models.NewChatAuditRecord("req-2", "b")))

	err := service.Record(models.NewChatAuditRecord("req-3", "c"))
	assert.Error(t, err, "full buffer must drop, not block")

	close(release)
	require.NoError(t, service.Stop(time.Second))
}

func TestService_InsertFailureDoesNotStopWorkers(t *testing.T) {
	mockRepo := new(MockChatAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(assert.AnError)

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())

	require.NoError(t, service.Record(models.NewChatAuditRecord("req-1", "a")))
	require.NoError(t, service.Record(models.NewChatAuditRecord("req-2", "b")))

	require.NoError(t, service.Stop(time.Second))
	assert.Len(t, mockRepo.GetInserted(), 2)
}

func TestService_Stats(t *testing.T) {
	service := NewService(new(MockChatAuditRepository), zap.NewNop(), Config{BufferSize: 7, WorkerCount: 3})

	stats := service.GetStats()
	assert.Equal(t, 7, stats.BufferSize)
	assert.Equal(t, 3, stats.WorkerCount)
	assert.False(t, stats.Started)
	assert.True(t, stats.Persisting)

	require.NoError(t, service.Start())
	assert.True(t, service.GetStats().Started)
	require.NoError(t, service.Stop(time.Second))
}

func TestDefaultConfigApplied(t *testing.T) {
	service := NewService(nil, zap.NewNop(), Config{})

	stats := service.GetStats()
	assert.Equal(t, DefaultConfig().BufferSize, stats.BufferSize)
	assert.Equal(t, DefaultConfig().WorkerCount, stats.WorkerCount)
}
