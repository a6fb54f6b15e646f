package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	ErrNotStarted = errors.New("audit service not started")
	ErrBufferFull = errors.New("audit event buffer full")
)

// Config holds configuration for the Service
type Config struct {
	BufferSize  int // size of the event channel
	WorkerCount int // concurrent writers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// Service writes audit events in the background so request handling never
// waits on the audit table
type Service struct {
	repo        repositories.AuditRepository
	logger      *zap.Logger
	events      chan *models.AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	mu          sync.Mutex
	started     bool
	stopped     bool
}

// NewService creates a new audit Service. Call Start before Record.
func NewService(repo repositories.AuditRepository, logger *zap.Logger, cfg Config) *Service {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Service{
		repo:        repo,
		logger:      logger,
		events:      make(chan *models.AuditEvent, cfg.BufferSize),
		workerCount: cfg.WorkerCount,
		bufferSize:  cfg.BufferSize,
	}
}

// Start launches the workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))
	return nil
}

// Stop stops accepting events and waits up to timeout for the queue to drain
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopped = true
	pending := len(s.events)
	close(s.events)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues event without blocking. A full buffer drops the event.
func (s *Service) Record(event *models.AuditEvent) error {
	if event == nil {
		return errors.New("audit event is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.events <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("actor", event.Actor))
		return ErrBufferFull
	}
}

// ListRecent returns the newest events. limit is clamped to (0, MaxListLimit].
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	events, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list audit events", err)
	}
	return events, nil
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for event := range s.events {
		if err := s.write(event); err != nil {
			s.logger.Error("failed to write audit event",
				zap.Int("worker_id", id),
				zap.String("action", string(event.Action)),
				zap.String("actor", event.Actor),
				zap.Error(err))
		}
	}
}

func (s *Service) write(event *models.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.repo.Insert(ctx, event)
}

// Stats reports queue state
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// GetStats returns queue statistics
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.events),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

var _ services.Auditor = (*Service)(nil)
