package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_ApproveWithdrawal(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)
	managerID := uuid.New()
	entryID := uuid.New()

	var logged *domain.AuditLog
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		logged = entry
	})

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/manager/withdrawals/:id/approve", func(c *gin.Context) {
		c.Set(CtxActorID, managerID)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/manager/withdrawals/"+entryID.String()+"/approve", nil))

	require.NotNil(t, logged)
	assert.Equal(t, domain.AuditActionApproveWithdrawal, logged.Action)
	assert.Equal(t, "ledger_entry", logged.ResourceType)
	assert.Equal(t, entryID.String(), logged.ResourceID)
	require.NotNil(t, logged.ActorID)
	assert.Equal(t, managerID, *logged.ActorID)
	assert.Contains(t, logged.Details, `"status":200`)
}

func TestAuditLog_CallbackHasNoActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	var logged *domain.AuditLog
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		logged = entry
	})

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/callbacks/payments", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/payments", nil))

	require.NotNil(t, logged)
	assert.Equal(t, domain.AuditActionPaymentCallback, logged.Action)
	assert.Nil(t, logged.ActorID)
}

func TestAuditLog_SkipsReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/agent/policies", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agent/policies", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsFailedRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/agent/withdrawals", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "PAY_005"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/agent/withdrawals", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapRouteToAction(t *testing.T) {
	tests := []struct {
		route    string
		action   domain.AuditAction
		resource string
	}{
		{"/api/v1/agent/policies", domain.AuditActionCreatePolicy, "policy"},
		{"/api/v1/agent/withdrawals", domain.AuditActionRequestWithdrawal, "ledger_entry"},
		{"/api/v1/manager/withdrawals/:id/approve", domain.AuditActionApproveWithdrawal, "ledger_entry"},
		{"/api/v1/admin/stock", domain.AuditActionReplenishStock, "certificate_stock"},
		{"/api/v1/callbacks/payments", domain.AuditActionPaymentCallback, "policy"},
		{"/api/v1/callbacks/payouts/result", domain.AuditActionPayoutCallback, "ledger_entry"},
		{"/api/v1/callbacks/payouts/timeout", domain.AuditActionPayoutTimeout, "ledger_entry"},
		{"/unknown", "", ""},
	}

	for _, tc := range tests {
		action, resource := mapRouteToAction(tc.route)
		assert.Equal(t, tc.action, action, "route=%s", tc.route)
		assert.Equal(t, tc.resource, resource, "route=%s", tc.route)
	}
}
