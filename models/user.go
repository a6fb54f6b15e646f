package models

import (
	"encoding/json"
	"time"
)

// KYCStatus is the know-your-customer state of a user
type KYCStatus string

const (
	KYCStatusPending   KYCStatus = "pending"
	KYCStatusSubmitted KYCStatus = "submitted"
	KYCStatusVerified  KYCStatus = "verified"
	KYCStatusRejected  KYCStatus = "rejected"
)

// User is a platform account. ID is the token subject; the API never
// accepts it from request input.
type User struct {
	ID          string          `json:"id" db:"id"`
	Email       string          `json:"email" db:"email"`
	Roles       []string        `json:"roles" db:"roles"`
	KYCStatus   KYCStatus       `json:"kyc_status" db:"kyc_status"`
	Profile     json.RawMessage `json:"profile,omitempty" db:"profile"`         // JSONB document
	KYCDocument json.RawMessage `json:"kyc_document,omitempty" db:"kyc_document"` // JSONB document
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// CanTrade reports whether the user may submit buy or sell requests
func (u *User) CanTrade() bool {
	return u.KYCStatus == KYCStatusVerified
}

// Profile is the user-editable profile document
type Profile struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country     string `json:"country" validate:"required,len=2"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// KYCSubmission is the identity document a user submits for review
type KYCSubmission struct {
	DocumentType   string `json:"document_type" validate:"required,oneof=passport national_id drivers_license"`
	DocumentNumber string `json:"document_number" validate:"required,max=64"`
	IssuingCountry string `json:"issuing_country" validate:"required,len=2"`
	DocumentKey    string `json:"document_key" validate:"required,startswith=uploads/"`
}
