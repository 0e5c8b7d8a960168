package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations. Actions are looked up by
// route pattern, so it must run inside the router.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath())
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if id, ok := ActorIDFrom(c); ok {
			actorID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route string) (domain.AuditAction, string) {
	switch route {
	case "/api/v1/agent/policies":
		return domain.AuditActionCreatePolicy, "policy"
	case "/api/v1/agent/withdrawals":
		return domain.AuditActionRequestWithdrawal, "ledger_entry"
	case "/api/v1/manager/withdrawals/:id/approve":
		return domain.AuditActionApproveWithdrawal, "ledger_entry"
	case "/api/v1/admin/stock":
		return domain.AuditActionReplenishStock, "certificate_stock"
	case "/api/v1/callbacks/payments":
		return domain.AuditActionPaymentCallback, "policy"
	case "/api/v1/callbacks/payouts/result":
		return domain.AuditActionPayoutCallback, "ledger_entry"
	case "/api/v1/callbacks/payouts/timeout":
		return domain.AuditActionPayoutTimeout, "ledger_entry"
	}
	return "", ""
}
