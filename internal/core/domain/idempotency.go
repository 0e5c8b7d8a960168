package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the first result of a keyed withdrawal request so a
// retried request returns it instead of placing a second hold.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "agent_id:withdrawal:client_key"
	EntryID      uuid.UUID `json:"entry_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildWithdrawalIdempotencyKey scopes a client-supplied key to the agent.
func BuildWithdrawalIdempotencyKey(agentID uuid.UUID, clientKey string) string {
	return agentID.String() + ":withdrawal:" + clientKey
}
