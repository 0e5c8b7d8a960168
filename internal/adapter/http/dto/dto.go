package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PaymentCallbackRequest is the gateway's report on a client's premium payment.
type PaymentCallbackRequest struct {
	PolicyID      string          `json:"policy_id" binding:"required,uuid"`
	ResultCode    *int            `json:"result_code" binding:"required"`
	ResultDesc    string          `json:"result_desc" binding:"max=255"`
	Amount        decimal.Decimal `json:"amount"`
	ReceiptNumber string          `json:"receipt_number" binding:"omitempty,max=64,safe_id"`
}

// PayoutResultCallback mirrors the mobile-money B2C result payload.
type PayoutResultCallback struct {
	Result PayoutResult `json:"Result" binding:"required"`
}

type PayoutResult struct {
	ResultCode               *int             `json:"ResultCode" binding:"required"`
	ResultDesc               string           `json:"ResultDesc"`
	OriginatorConversationID string           `json:"OriginatorConversationID" binding:"required"`
	ConversationID           string           `json:"ConversationID"`
	TransactionID            string           `json:"TransactionID"`
	ResultParameters         ResultParameters `json:"ResultParameters"`
}

type ResultParameters struct {
	ResultParameter []ResultParameter `json:"ResultParameter"`
}

// ResultParameter values arrive as strings or numbers, so Value stays raw.
type ResultParameter struct {
	Key   string          `json:"Key"`
	Value json.RawMessage `json:"Value"`
}

// Text returns the parameter value without JSON string quoting.
func (p ResultParameter) Text() string {
	var s string
	if err := json.Unmarshal(p.Value, &s); err == nil {
		return s
	}
	if string(p.Value) == "null" {
		return ""
	}
	return string(p.Value)
}

// CreatePolicyRequest is the request body for selling a policy.
type CreatePolicyRequest struct {
	ProductID    string          `json:"product_id" binding:"required,uuid"`
	ClientName   string          `json:"client_name" binding:"required,min=1,max=100"`
	ClientPhone  string          `json:"client_phone" binding:"omitempty,msisdn"`
	InsuredValue decimal.Decimal `json:"insured_value"`
}

// PolicyResponse is the response body for policy reads.
type PolicyResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	ClientID       string          `json:"client_id"`
	InsuredValue   decimal.Decimal `json:"insured_value"`
	Premium        decimal.Decimal `json:"premium"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	PaidAt         *string         `json:"paid_at,omitempty"`
	StartDate      *string         `json:"start_date,omitempty"`
	ExpiryDate     *string         `json:"expiry_date,omitempty"`
	PaymentReceipt *string         `json:"payment_receipt,omitempty"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	CertificateRef *string         `json:"certificate_ref,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// WithdrawalRequest is the request body for an agent withdrawal.
type WithdrawalRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,max=100,safe_id"`
}

// ReplenishStockRequest is the request body for adding certificate stock.
type ReplenishStockRequest struct {
	ManagerID    string `json:"manager_id" binding:"required,uuid"`
	InsurerID    string `json:"insurer_id" binding:"required,uuid"`
	ProductClass string `json:"product_class" binding:"required,max=100"`
	Quantity     int    `json:"quantity" binding:"required,gte=1"`
}

// StockResponse is one certificate stock row.
type StockResponse struct {
	ManagerID    string `json:"manager_id"`
	InsurerID    string `json:"insurer_id"`
	ProductClass string `json:"product_class"`
	Quantity     int    `json:"quantity"`
	UpdatedAt    string `json:"updated_at"`
}

// EntryResponse is one ledger entry.
type EntryResponse struct {
	ID                string          `json:"id"`
	PolicyID          *string         `json:"policy_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Kind              string          `json:"kind"`
	Status            string          `json:"status"`
	CorrelationID     *string         `json:"correlation_id,omitempty"`
	ExternalReference *string         `json:"external_reference,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

// EntryListResponse wraps a paginated entry list.
type EntryListResponse struct {
	Items      []EntryResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// WalletResponse is the response for a balance query.
type WalletResponse struct {
	WalletID string          `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// WalletStatsResponse is the response for wallet statistics.
type WalletStatsResponse struct {
	EntryCount       int64           `json:"entry_count"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	Withdrawn        decimal.Decimal `json:"withdrawn"`
	PendingHolds     decimal.Decimal `json:"pending_holds"`
}

// NotificationResponse is one notification.
type NotificationResponse struct {
	ID        string  `json:"id"`
	SenderID  *string `json:"sender_id,omitempty"`
	Event     string  `json:"event"`
	Message   string  `json:"message"`
	CreatedAt string  `json:"created_at"`
}
