package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResultCodeSuccess is the gateway's success result code.
const ResultCodeSuccess = 0

// PaymentResult is the gateway's report on a client's premium payment.
type PaymentResult struct {
	PolicyID          uuid.UUID
	ResultCode        int
	ResultDescription string
	Amount            decimal.Decimal
	ReceiptID         string
}

// Succeeded reports whether the client paid.
func (r PaymentResult) Succeeded() bool {
	return r.ResultCode == ResultCodeSuccess
}

// PaymentReceipt records a settled receipt id so redelivery is detected.
type PaymentReceipt struct {
	ReceiptID  string          `json:"receipt_id"`
	PolicyID   uuid.UUID       `json:"policy_id"`
	Amount     decimal.Decimal `json:"amount"`
	ReceivedAt time.Time       `json:"received_at"`
}

// PayoutInstruction asks the gateway to send money to an agent.
type PayoutInstruction struct {
	Amount                decimal.Decimal
	DestinationPhone      string
	Remarks               string
	InternalTransactionID uuid.UUID
}

// PayoutSubmission is the gateway's acknowledgement of a payout instruction.
type PayoutSubmission struct {
	OriginatorConversationID string
	ConversationID           string
}

// PayoutResult is the gateway's asynchronous report on a payout.
type PayoutResult struct {
	ResultCode               int
	ResultDescription        string
	OriginatorConversationID string
	ConversationID           string
	TransactionID            string
	Parameters               map[string]string
}

// Succeeded reports whether the payout reached the agent.
func (r PayoutResult) Succeeded() bool {
	return r.ResultCode == ResultCodeSuccess
}
