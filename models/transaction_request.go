package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is the kind of money or asset movement requested
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeBuy        TransactionType = "buy"
	TransactionTypeSell       TransactionType = "sell"
)

// RequiresVerifiedKYC reports whether the type needs a verified user
func (t TransactionType) RequiresVerifiedKYC() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell || t == TransactionTypeWithdrawal
}

// RequestStatus is the review state of a transaction request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsFinal reports whether the status can no longer change
func (s RequestStatus) IsFinal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// TransactionRequest is a user's request awaiting admin review
type TransactionRequest struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Type       TransactionType `json:"type" db:"type"`
	Asset      string          `json:"asset" db:"asset"`
	Amount     float64         `json:"amount" db:"amount"`
	Status     RequestStatus   `json:"status" db:"status"`
	Note       string          `json:"note,omitempty" db:"note"`
	ReviewedBy string          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the TransactionRequest model
func (TransactionRequest) TableName() string {
	return "transaction_requests"
}

// NewTransactionRequest creates a pending request for userID
func NewTransactionRequest(userID string, txType TransactionType, asset string, amount float64, note string) *TransactionRequest {
	now := time.Now().UTC()
	return &TransactionRequest{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      txType,
		Asset:     asset,
		Amount:    amount,
		Status:    RequestStatusPending,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTransactionRequestInput is the body of a new request
type CreateTransactionRequestInput struct {
	Type   TransactionType `json:"type" validate:"required,oneof=deposit withdrawal buy sell"`
	Asset  string          `json:"asset" validate:"required,asset_symbol"`
	Amount float64         `json:"amount" validate:"gt=0"`
	Note   string          `json:"note,omitempty" validate:"omitempty,max=500"`
}

// UpdateRequestStatusInput is the body of an admin review decision
type UpdateRequestStatusInput struct {
	Status RequestStatus `json:"status" validate:"required,oneof=approved rejected"`
}
