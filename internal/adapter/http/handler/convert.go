package handler

import (
	"strconv"
	"time"

	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/adapter/http/middleware"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const timeLayout = time.RFC3339

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// toPolicyResponse converts domain.Policy to DTO.
func toPolicyResponse(p *domain.Policy) dto.PolicyResponse {
	return dto.PolicyResponse{
		ID:             p.ID.String(),
		ProductID:      p.ProductID.String(),
		ClientID:       p.ClientID.String(),
		InsuredValue:   p.InsuredValue,
		Premium:        p.Premium,
		Tax:            p.Tax,
		Total:          p.Total,
		Status:         string(p.Status),
		PaidAt:         formatTime(p.PaidAt),
		StartDate:      formatTime(p.StartDate),
		ExpiryDate:     formatTime(p.ExpiryDate),
		PaymentReceipt: p.PaymentReceipt,
		FailureReason:  p.FailureReason,
		CertificateRef: p.CertificateRef,
		CreatedAt:      p.CreatedAt.Format(timeLayout),
	}
}

// toEntryResponse converts domain.LedgerEntry to DTO.
func toEntryResponse(e *domain.LedgerEntry) dto.EntryResponse {
	return dto.EntryResponse{
		ID:                e.ID.String(),
		PolicyID:          uuidString(e.PolicyID),
		Amount:            e.Amount,
		Kind:              string(e.Kind),
		Status:            string(e.Status),
		CorrelationID:     e.CorrelationID,
		ExternalReference: e.ExternalReference,
		CreatedAt:         e.CreatedAt.Format(timeLayout),
		UpdatedAt:         e.UpdatedAt.Format(timeLayout),
	}
}

func toEntryResponses(entries []domain.LedgerEntry) []dto.EntryResponse {
	items := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResponse(&entries[i]))
	}
	return items
}

func toStockResponse(s *domain.CertificateStock) dto.StockResponse {
	return dto.StockResponse{
		ManagerID:    s.ManagerID.String(),
		InsurerID:    s.InsurerID.String(),
		ProductClass: s.ProductClass,
		Quantity:     s.Quantity,
		UpdatedAt:    s.UpdatedAt.Format(timeLayout),
	}
}

// currentAgent aborts with 401 when the route was reached without an agent.
func currentAgent(c *gin.Context) (domain.Agent, bool) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return agent, ok
}

func currentManager(c *gin.Context) (domain.Manager, bool) {
	manager, ok := middleware.ManagerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return manager, ok
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, apperror.Validation(name+" must be an integer"))
		return 0, false
	}
	return v, true
}
