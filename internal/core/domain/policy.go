package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PolicyStatus is the lifecycle state of a policy. ACTIVE and EXPIRED are
// never stored; they are derived from a PAID policy's validity window.
type PolicyStatus string

const (
	PolicyStatusPendingPayment PolicyStatus = "PENDING_PAYMENT"
	PolicyStatusPaid           PolicyStatus = "PAID"
	PolicyStatusActive         PolicyStatus = "ACTIVE"
	PolicyStatusExpired        PolicyStatus = "EXPIRED"
	PolicyStatusFailed         PolicyStatus = "FAILED"
)

// Policy is an insurance policy sold by an agent to a client.
type Policy struct {
	ID             uuid.UUID       `json:"id"`
	ClientID       uuid.UUID       `json:"client_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	AgentID        uuid.UUID       `json:"agent_id"`
	InsuredValue   decimal.Decimal `json:"insured_value"`
	Premium        decimal.Decimal `json:"premium"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Status         PolicyStatus    `json:"status"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	PaymentReceipt *string         `json:"payment_receipt,omitempty"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	CertificateRef *string         `json:"certificate_ref,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AwaitingPayment reports whether the policy may still be settled or failed.
func (p *Policy) AwaitingPayment() bool {
	return p.Status == PolicyStatusPendingPayment
}

// EffectiveStatus classifies a paid policy as active or expired at now.
func (p *Policy) EffectiveStatus(now time.Time) PolicyStatus {
	if p.Status != PolicyStatusPaid || p.ExpiryDate == nil {
		return p.Status
	}
	if now.Before(*p.ExpiryDate) {
		return PolicyStatusActive
	}
	return PolicyStatusExpired
}

// NeedsCertificate is true for a paid policy whose certificate was never stored.
func (p *Policy) NeedsCertificate() bool {
	return p.Status == PolicyStatusPaid && p.CertificateRef == nil
}

// ValidityWindow returns start and expiry for a policy paid at paidAt.
func ValidityWindow(paidAt time.Time, years int) (time.Time, time.Time) {
	return paidAt, paidAt.AddDate(years, 0, 0)
}

// Client is the insured party.
type Client struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
