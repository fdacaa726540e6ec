package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited admin action.
type AuditAction string

const (
	AuditActionResolvePayment AuditAction = "RESOLVE_PAYMENT"
	AuditActionBuildBatch     AuditAction = "BUILD_BATCH"
	AuditActionSubmitBatch    AuditAction = "SUBMIT_BATCH"
	AuditActionRetryItem      AuditAction = "RETRY_ITEM"
	AuditActionCancelItem     AuditAction = "CANCEL_ITEM"
)

// AuditLog records a single administrative mutation: who did what to which
// resource, with the request payload for later review.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        string      `json:"actor"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
