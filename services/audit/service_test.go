package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap/zaptest"
)

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
	mu       sync.Mutex
	inserted []*models.AuditEvent
}

func (m *MockAuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	m.mu.Lock()
	m.inserted = append(m.inserted, event)
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, limit)
	if events := args.Get(0); events != nil {
		return events.([]*models.AuditEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) Inserted() []*models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AuditEvent(nil), m.inserted...)
}

func newEvent(actor string) *models.AuditEvent {
	return models.NewAuditEvent(actor, models.AuditActionKYCSubmitted, "user").WithResource(actor)
}

func TestService_StartStop(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, svc.Start())
	stats := svc.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, svc.Start(), "cannot start twice")

	require.NoError(t, svc.Stop(time.Second))
	assert.False(t, svc.GetStats().Started)
	assert.ErrorIs(t, svc.Stop(time.Second), ErrNotStarted)
}

func TestService_RecordBeforeStartAndAfterStop(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, zaptest.NewLogger(t), DefaultConfig())

	assert.ErrorIs(t, svc.Record(newEvent("user-1")), ErrNotStarted)

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Stop(time.Second))

	// Must not panic on the closed channel
	assert.ErrorIs(t, svc.Record(newEvent("user-1")), ErrNotStarted)
}

func TestService_RecordNil(t *testing.T) {
	svc := NewService(new(MockAuditRepository), zaptest.NewLogger(t), DefaultConfig())
	require.NoError(t, svc.Start())
	defer svc.Stop(time.Second)

	assert.Error(t, svc.Record(nil))
}

func TestService_StopDrainsQueue(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 100, WorkerCount: 3})
	require.NoError(t, svc.Start())

	for i := 0; i < 50; i++ {
		require.NoError(t, svc.Record(newEvent("user-1")))
	}

	require.NoError(t, svc.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), 50)
}

func TestService_ConcurrentRecord(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 1000, WorkerCount: 4})
	require.NoError(t, svc.Start())

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				assert.NoError(t, svc.Record(newEvent("user-1")))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, svc.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), 200)
}

func TestService_BufferFull(t *testing.T) {
	release := make(chan struct{})
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		<-release
	})

	svc := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 2, WorkerCount: 1})
	require.NoError(t, svc.Start())

	var full int
	for i := 0; i < 10; i++ {
		if errors.Is(svc.Record(newEvent("user-1")), ErrBufferFull) {
			full++
		}
	}
	// One event in the blocked worker and two buffered at most
	assert.GreaterOrEqual(t, full, 7)

	close(release)
	require.NoError(t, svc.Stop(5*time.Second))
}

func TestService_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		<-release
	})

	svc := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Record(newEvent("user-1")))

	err := svc.Stop(50 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestService_WriteErrorIsLogged(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	svc := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Record(newEvent("user-1")))
	require.NoError(t, svc.Stop(time.Second))

	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestService_ListRecent(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		expected  int
	}{
		{"default when zero", 0, DefaultListLimit},
		{"capped", 10000, MaxListLimit},
		{"passed through", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockAuditRepository)
			repo.On("ListRecent", mock.Anything, tt.expected).Return([]*models.AuditEvent{newEvent("user-1")}, nil)

			svc := NewService(repo, zaptest.NewLogger(t), DefaultConfig())
			events, err := svc.ListRecent(context.Background(), tt.requested)
			require.NoError(t, err)
			assert.Len(t, events, 1)
			repo.AssertExpectations(t)
		})
	}

	t.Run("repository failure is internal", func(t *testing.T) {
		repo := new(MockAuditRepository)
		repo.On("ListRecent", mock.Anything, DefaultListLimit).Return(nil, errors.New("boom"))

		svc := NewService(repo, zaptest.NewLogger(t), DefaultConfig())
		_, err := svc.ListRecent(context.Background(), 0)
		assert.True(t, services.IsInternalError(err))
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Positive(t, cfg.BufferSize)
	assert.Positive(t, cfg.WorkerCount)

	svc := NewService(new(MockAuditRepository), zaptest.NewLogger(t), Config{})
	assert.Equal(t, cfg.BufferSize, svc.GetStats().BufferSize)
	assert.Equal(t, cfg.WorkerCount, svc.GetStats().WorkerCount)
}
