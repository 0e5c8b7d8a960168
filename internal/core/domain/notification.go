package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEvent tags what a notification is about.
type NotificationEvent string

const (
	EventPaymentReceived    NotificationEvent = "PAYMENT_RECEIVED"
	EventPaymentFailed      NotificationEvent = "PAYMENT_FAILED"
	EventPolicySold         NotificationEvent = "POLICY_SOLD"
	EventStockShortage      NotificationEvent = "STOCK_SHORTAGE"
	EventWithdrawalRequest  NotificationEvent = "WITHDRAWAL_REQUESTED"
	EventWithdrawalApproved NotificationEvent = "WITHDRAWAL_APPROVED"
	EventWithdrawalPaid     NotificationEvent = "WITHDRAWAL_COMPLETED"
	EventWithdrawalFailed   NotificationEvent = "WITHDRAWAL_FAILED"
)

// Notification is a message recorded for a user.
type Notification struct {
	ID          uuid.UUID         `json:"id"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	SenderID    *uuid.UUID        `json:"sender_id,omitempty"`
	Event       NotificationEvent `json:"event"`
	Message     string            `json:"message"`
	CreatedAt   time.Time         `json:"created_at"`
}
