package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction names a security-relevant action
type AuditAction string

const (
	AuditActionProfileUpdated  AuditAction = "profile_updated"
	AuditActionKYCSubmitted    AuditAction = "kyc_submitted"
	AuditActionRequestCreated  AuditAction = "request_created"
	AuditActionRequestApproved AuditAction = "request_approved"
	AuditActionRequestRejected AuditAction = "request_rejected"
	AuditActionUploadURLIssued AuditAction = "upload_url_issued"
)

// AuditEvent is one entry of the audit trail. Actor is always a verified
// token subject.
type AuditEvent struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Actor        string          `json:"actor" db:"actor"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	RequestID    string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// NewAuditEvent creates an event stamped now
func NewAuditEvent(actor string, action AuditAction, resourceType string) *AuditEvent {
	return &AuditEvent{
		ID:           uuid.New(),
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now().UTC(),
	}
}

// WithResource sets the resource id
func (e *AuditEvent) WithResource(id string) *AuditEvent {
	e.ResourceID = id
	return e
}

// WithDetails marshals details into the event; unmarshalable values are dropped
func (e *AuditEvent) WithDetails(details interface{}) *AuditEvent {
	if data, err := json.Marshal(details); err == nil {
		e.Details = data
	}
	return e
}

// WithRequestID sets the HTTP request id the action arrived on
func (e *AuditEvent) WithRequestID(id string) *AuditEvent {
	e.RequestID = id
	return e
}
