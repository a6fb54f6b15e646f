package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Asset is a user's holding of one symbol
type Asset struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Quantity  float64   `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}

// PlatformAnalytics aggregates platform activity for administrators
type PlatformAnalytics struct {
	TotalUsers       int                `json:"total_users"`
	VerifiedUsers    int                `json:"verified_users"`
	PendingKYC       int                `json:"pending_kyc"`
	PendingRequests  int                `json:"pending_requests"`
	ApprovedRequests int                `json:"approved_requests"`
	RejectedRequests int                `json:"rejected_requests"`
	VolumeByType     map[string]float64 `json:"volume_by_type"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// UploadURL is a short-lived signed URL for a direct object upload
type UploadURL struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadURLInput is the body of an upload URL request
type UploadURLInput struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png application/pdf"`
}

// UploadPrefix is the object key prefix reserved for subject's uploads
func UploadPrefix(subject string) string {
	return fmt.Sprintf("uploads/%s/", subject)
}
