package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/repositories"
	"go.uber.org/zap"
)

// Service handles asynchronous persistence of chat interaction records.
// With a nil repository it runs in logging-only mode: records are logged
// and dropped, so the audit database stays optional.
type Service struct {
	repo        repositories.ChatAuditRepository
	logger      *zap.Logger
	recordChan  chan *models.ChatAuditRecord
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the audit Service
type Config struct {
	BufferSize  int
	WorkerCount int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewService creates a new audit Service instance
func NewService(repo repositories.ChatAuditRepository, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		repo:        repo,
		logger:      logger,
		recordChan:  make(chan *models.ChatAuditRecord, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize),
		zap.Bool("persistence_enabled", s.repo != nil))

	return nil
}

// Stop gracefully stops the audit service, waiting for pending records
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	// Flip the flag before closing so a concurrent Record fails the
	// started-guard instead of sending on a closed channel.
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_records", len(s.recordChan)))

	close(s.recordChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues a chat interaction record without blocking. When the
// buffer is full the record is dropped with a warning; audit is
// best-effort and must never slow down the chat path.
func (s *Service) Record(record *models.ChatAuditRecord) error {
	// The lock is held across the send so Stop cannot close the
	// channel between the guard and the send. The select never
	// blocks, so the lock is only held briefly.
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.recordChan <- record:
		return nil
	default:
		s.logger.Warn("audit record buffer full, dropping record",
			zap.String("id", record.ID.String()),
			zap.String("model", record.ModelUsed))
		return fmt.Errorf("audit record buffer full")
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for record := range s.recordChan {
		if err := s.processRecord(record); err != nil {
			s.logger.Error("failed to process audit record",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("id", record.ID.String()))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *Service) processRecord(record *models.ChatAuditRecord) error {
	if s.repo == nil {
		s.logger.Info("chat interaction",
			zap.String("id", record.ID.String()),
			zap.String("request_id", record.RequestID),
			zap.String("model", record.ModelUsed),
			zap.Bool("success", record.Success),
			zap.Bool("degraded", record.Degraded),
			zap.Int("document_count", record.DocumentCount),
			zap.Int("latency_ms", record.LatencyMs))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to insert chat interaction: %w", err)
	}
	return nil
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize     int
	PendingRecords int
	WorkerCount    int
	Started        bool
	Persisting     bool
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:     s.bufferSize,
		PendingRecords: len(s.recordChan),
		WorkerCount:    s.workerCount,
		Started:        s.started,
		Persisting:     s.repo != nil,
	}
}
