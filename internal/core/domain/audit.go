package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionCreatePolicy      AuditAction = "CREATE_POLICY"
	AuditActionRequestWithdrawal AuditAction = "REQUEST_WITHDRAWAL"
	AuditActionApproveWithdrawal AuditAction = "APPROVE_WITHDRAWAL"
	AuditActionReplenishStock    AuditAction = "REPLENISH_STOCK"
	AuditActionPaymentCallback   AuditAction = "PAYMENT_CALLBACK"
	AuditActionPayoutCallback    AuditAction = "PAYOUT_CALLBACK"
	AuditActionPayoutTimeout     AuditAction = "PAYOUT_TIMEOUT"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
