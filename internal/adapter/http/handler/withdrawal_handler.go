package handler

import (
	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey may carry the withdrawal idempotency key instead of the body.
const HeaderIdempotencyKey = "Idempotency-Key"

// WithdrawalHandler handles the agent and manager sides of a payout.
type WithdrawalHandler struct {
	payoutSvc ports.PayoutService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(payoutSvc ports.PayoutService) *WithdrawalHandler {
	return &WithdrawalHandler{payoutSvc: payoutSvc}
}

// Request handles POST /api/v1/agent/withdrawals.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	agent, ok := currentAgent(c)
	if !ok {
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	}

	entry, err := h.payoutSvc.RequestWithdrawal(c.Request.Context(), agent, ports.WithdrawalRequest{
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

// ListPending handles GET /api/v1/manager/withdrawals/pending.
func (h *WithdrawalHandler) ListPending(c *gin.Context) {
	manager, ok := currentManager(c)
	if !ok {
		return
	}

	entries, err := h.payoutSvc.ListPendingWithdrawals(c.Request.Context(), manager)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEntryResponses(entries))
}

// Approve handles POST /api/v1/manager/withdrawals/:id/approve.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	manager, ok := currentManager(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	entry, err := h.payoutSvc.ApproveWithdrawal(c.Request.Context(), manager, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEntryResponse(entry))
}
