package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the actor role carried in access tokens.
type Role string

const (
	RoleAgent   Role = "AGENT"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleManager || r == RoleAdmin
}

// Manager administers a group of agents and owns certificate stock.
type Manager struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent sells policies and earns commission. ManagerID is the administering manager.
type Agent struct {
	ID          uuid.UUID `json:"id"`
	ManagerID   uuid.UUID `json:"manager_id"`
	FullName    string    `json:"full_name"`
	PayoutPhone string    `json:"payout_phone"`
	CreatedAt   time.Time `json:"created_at"`
}

// ManagedBy reports whether m administers the agent.
func (a *Agent) ManagedBy(m Manager) bool {
	return a.ManagerID == m.ID
}
