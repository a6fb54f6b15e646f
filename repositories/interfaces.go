package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/tradedesk/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientQuantity is returned when a holding would go negative
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction. The returned Transaction's Context
	// carries the transaction so repositories called with it join it.
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user documents keyed by token subject
type UserRepository interface {
	// GetByID retrieves a user by subject
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpsertProfile replaces the profile document, creating the user if needed
	UpsertProfile(ctx context.Context, id, email string, profile json.RawMessage) (*models.User, error)

	// SubmitKYC stores the KYC document and moves the user to submitted
	SubmitKYC(ctx context.Context, id string, document json.RawMessage) (*models.User, error)
}

// TransactionRequestRepository handles transaction request data operations
type TransactionRequestRepository interface {
	// Create creates a new request
	Create(ctx context.Context, req *models.TransactionRequest) error

	// GetByID retrieves a request by ID, locking it when called inside a transaction
	GetByID(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error)

	// GetByUserID retrieves a user's requests, newest first
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.TransactionRequest, error)

	// UpdateStatus records a review decision
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewedBy string) error
}

// AssetRepository handles asset holdings
type AssetRepository interface {
	// GetByUserID retrieves a user's holdings ordered by symbol
	GetByUserID(ctx context.Context, userID string) ([]*models.Asset, error)

	// AdjustQuantity adds delta to a holding, creating it if needed.
	// A negative delta larger than the holding fails with ErrInsufficientQuantity.
	AdjustQuantity(ctx context.Context, userID, symbol string, delta float64) error
}

// AnalyticsRepository computes platform aggregates
type AnalyticsRepository interface {
	GetPlatformAnalytics(ctx context.Context) (*models.PlatformAnalytics, error)
}

// AuditRepository persists the audit trail
type AuditRepository interface {
	// Insert appends an event
	Insert(ctx context.Context, event *models.AuditEvent) error

	// ListRecent returns the newest events first
	ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users               UserRepository
	TransactionRequests TransactionRequestRepository
	Assets              AssetRepository
	Analytics           AnalyticsRepository
	Audit               AuditRepository
}
