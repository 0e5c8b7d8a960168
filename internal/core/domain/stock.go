package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockKey identifies a certificate stock row.
type StockKey struct {
	ManagerID    uuid.UUID `json:"manager_id"`
	InsurerID    uuid.UUID `json:"insurer_id"`
	ProductClass string    `json:"product_class"`
}

// CertificateStock counts certificates a manager still holds for one insurer
// and product class.
type CertificateStock struct {
	ID uuid.UUID `json:"id"`
	StockKey
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}
