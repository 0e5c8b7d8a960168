package handler

import (
	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OutcomeStockRejected is reported when settlement rolled back for lack of stock.
const OutcomeStockRejected = "STOCK_REJECTED"

// CallbackHandler receives signed gateway callbacks.
type CallbackHandler struct {
	settlementSvc ports.SettlementService
	payoutSvc     ports.PayoutService
	log           zerolog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(settlementSvc ports.SettlementService, payoutSvc ports.PayoutService, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{settlementSvc: settlementSvc, payoutSvc: payoutSvc, log: log}
}

// PaymentResult handles POST /api/v1/callbacks/payments.
// Settled, failed, duplicate, and stock-rejected results are acknowledged;
// transient failures return 5xx so the gateway redelivers.
func (h *CallbackHandler) PaymentResult(c *gin.Context) {
	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result := domain.PaymentResult{
		PolicyID:          uuid.MustParse(req.PolicyID),
		ResultCode:        *req.ResultCode,
		ResultDescription: req.ResultDesc,
		Amount:            req.Amount,
		ReceiptID:         req.ReceiptNumber,
	}
	if result.Succeeded() && result.ReceiptID == "" {
		response.Error(c, apperror.Validation("receipt_number is required for a successful payment"))
		return
	}

	outcome, err := h.settlementSvc.HandlePaymentResult(c.Request.Context(), result)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeStockExhausted) || apperror.HasCode(err, apperror.CodeNoStockConfigured) {
			response.OK(c, gin.H{"outcome": OutcomeStockRejected})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"outcome": string(outcome)})
}

// PayoutResult handles POST /api/v1/callbacks/payouts/result. The gateway
// always gets a 200; unresolved payouts are picked up by the sweep.
func (h *CallbackHandler) PayoutResult(c *gin.Context) {
	var req dto.PayoutResultCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn().Err(err).Msg("unreadable payout result callback")
		response.Ack(c)
		return
	}

	result := domain.PayoutResult{
		ResultCode:               *req.Result.ResultCode,
		ResultDescription:        req.Result.ResultDesc,
		OriginatorConversationID: req.Result.OriginatorConversationID,
		ConversationID:           req.Result.ConversationID,
		TransactionID:            req.Result.TransactionID,
		Parameters:               resultParameters(req.Result.ResultParameters),
	}

	if err := h.payoutSvc.HandlePayoutResult(c.Request.Context(), result); err != nil {
		h.log.Error().Err(err).
			Str("correlation_id", result.OriginatorConversationID).
			Int("result_code", result.ResultCode).
			Msg("payout result not applied")
	}
	response.Ack(c)
}

// PayoutTimeout handles POST /api/v1/callbacks/payouts/timeout.
func (h *CallbackHandler) PayoutTimeout(c *gin.Context) {
	payload := map[string]any{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Warn().Err(err).Msg("unreadable payout timeout callback")
	}
	h.payoutSvc.HandlePayoutTimeout(c.Request.Context(), payload)
	response.Ack(c)
}

func resultParameters(params dto.ResultParameters) map[string]string {
	if len(params.ResultParameter) == 0 {
		return nil
	}
	out := make(map[string]string, len(params.ResultParameter))
	for _, p := range params.ResultParameter {
		out[p.Key] = p.Text()
	}
	return out
}
