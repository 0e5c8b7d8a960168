package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"insurance-settlement/internal/adapter/http/middleware"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/core/ports/mocks"
	"insurance-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testManager = domain.Manager{ID: uuid.New(), FullName: "Mary Manager"}
	testAgent   = domain.Agent{ID: uuid.New(), ManagerID: testManager.ID, FullName: "Alex Agent", PayoutPhone: "0712345678"}
)

func newContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func asAgent(c *gin.Context) {
	c.Set(middleware.CtxAgent, testAgent)
	c.Set(middleware.CtxActorID, testAgent.ID)
	c.Set(middleware.CtxRole, domain.RoleAgent)
}

func asManager(c *gin.Context) {
	c.Set(middleware.CtxManager, testManager)
	c.Set(middleware.CtxActorID, testManager.ID)
	c.Set(middleware.CtxRole, domain.RoleManager)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Callback Handler Tests ---

func newCallbackHandler(ctrl *gomock.Controller) (*CallbackHandler, *mocks.MockSettlementService, *mocks.MockPayoutService) {
	settlement := mocks.NewMockSettlementService(ctrl)
	payouts := mocks.NewMockPayoutService(ctrl)
	return NewCallbackHandler(settlement, payouts, zerolog.Nop()), settlement, payouts
}

func TestPaymentResult_Settled(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, settlement, _ := newCallbackHandler(ctrl)
	policyID := uuid.New()

	settlement.EXPECT().HandlePaymentResult(gomock.Any(), domain.PaymentResult{
		PolicyID:          policyID,
		ResultCode:        0,
		ResultDescription: "The service request is processed successfully.",
		Amount:            decimal.RequireFromString("58000"),
		ReceiptID:         "QGH7X1Y2Z3",
	}).Return(ports.OutcomeSettled, nil)

	c, w := newContext(http.MethodPost, "/api/v1/callbacks/payments", map[string]interface{}{
		"policy_id":      policyID.String(),
		"result_code":    0,
		"result_desc":    "The service request is processed successfully.",
		"amount":         "58000",
		"receipt_number": "QGH7X1Y2Z3",
	})
	h.PaymentResult(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var data map[string]string
	decodeData(t, w, &data)
	assert.Equal(t, "SETTLED", data["outcome"])
}

func TestPaymentResult_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  ports.SettlementOutcome
		err      error
		status   int
		wantBody string
	}{
		{"failed payment", ports.OutcomePaymentFailed, nil, http.StatusOK, "PAYMENT_FAILED"},
		{"duplicate", ports.OutcomeDuplicate, nil, http.StatusOK, "DUPLICATE"},
		{"stock exhausted", "", apperror.ErrStockExhausted(), http.StatusOK, OutcomeStockRejected},
		{"no stock configured", "", apperror.ErrNoStockConfigured(), http.StatusOK, OutcomeStockRejected},
		{"unknown policy", "", apperror.ErrNotFound("policy"), http.StatusNotFound, "PAY_004"},
		{"transient failure", "", apperror.InternalError(errors.New("db down")), http.StatusInternalServerError, "SYS_001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h, settlement, _ := newCallbackHandler(ctrl)
			settlement.EXPECT().HandlePaymentResult(gomock.Any(), gomock.Any()).Return(tt.outcome, tt.err)

			c, w := newContext(http.MethodPost, "/api/v1/callbacks/payments", map[string]interface{}{
				"policy_id":      uuid.NewString(),
				"result_code":    1032,
				"result_desc":    "Request cancelled by user",
				"receipt_number": "",
			})
			h.PaymentResult(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestPaymentResult_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing result code", map[string]interface{}{"policy_id": uuid.NewString()}},
		{"bad policy id", map[string]interface{}{"policy_id": "not-a-uuid", "result_code": 0}},
		{"success without receipt", map[string]interface{}{"policy_id": uuid.NewString(), "result_code": 0}},
		{"unsafe receipt", map[string]interface{}{"policy_id": uuid.NewString(), "result_code": 0, "receipt_number": "QGH; DROP"}},
		{"malformed json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h, _, _ := newCallbackHandler(ctrl)

			c, w := newContext(http.MethodPost, "/api/v1/callbacks/payments", tt.body)
			h.PaymentResult(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

const b2cResult = `{
  "Result": {
    "ResultType": 0,
    "ResultCode": 0,
    "ResultDesc": "The service request is processed successfully.",
    "OriginatorConversationID": "AG_20261015_0001",
    "ConversationID": "AG_20261015_abcd",
    "TransactionID": "NLJ41HAY6Q",
    "ResultParameters": {
      "ResultParameter": [
        {"Key": "TransactionAmount", "Value": 10000},
        {"Key": "ReceiverPartyPublicName", "Value": "254712345678 - Alex Agent"}
      ]
    }
  }
}`

func TestPayoutResult_MapsB2CPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, payouts := newCallbackHandler(ctrl)

	payouts.EXPECT().HandlePayoutResult(gomock.Any(), domain.PayoutResult{
		ResultCode:               0,
		ResultDescription:        "The service request is processed successfully.",
		OriginatorConversationID: "AG_20261015_0001",
		ConversationID:           "AG_20261015_abcd",
		TransactionID:            "NLJ41HAY6Q",
		Parameters: map[string]string{
			"TransactionAmount":       "10000",
			"ReceiverPartyPublicName": "254712345678 - Alex Agent",
		},
	}).Return(nil)

	c, w := newContext(http.MethodPost, "/api/v1/callbacks/payouts/result", b2cResult)
	h.PayoutResult(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPayoutResult_AlwaysAcknowledges(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, payouts := newCallbackHandler(ctrl)
	payouts.EXPECT().HandlePayoutResult(gomock.Any(), gomock.Any()).Return(apperror.InternalError(errors.New("db down")))

	c, w := newContext(http.MethodPost, "/api/v1/callbacks/payouts/result", b2cResult)
	h.PayoutResult(c)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unreadable payloads never reach the service.
	c, w = newContext(http.MethodPost, "/api/v1/callbacks/payouts/result", `{"Result":{}}`)
	h.PayoutResult(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPayoutResult_MissingResultCodeNotApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, payouts := newCallbackHandler(ctrl)
	// A missing code must not decode to 0 and complete the withdrawal.
	payouts.EXPECT().HandlePayoutResult(gomock.Any(), gomock.Any()).Times(0)

	body := `{"Result":{"OriginatorConversationID":"AG_20261015_0001","ResultDesc":"The service request failed"}}`
	c, w := newContext(http.MethodPost, "/api/v1/callbacks/payouts/result", body)
	h.PayoutResult(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestPayoutTimeout_PassesPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, payouts := newCallbackHandler(ctrl)

	payouts.EXPECT().HandlePayoutTimeout(gomock.Any(), gomock.Any()).Do(func(_ context.Context, payload map[string]any) {
		assert.Equal(t, "AG_20261015_0001", payload["OriginatorConversationID"])
	})

	c, w := newContext(http.MethodPost, "/api/v1/callbacks/payouts/timeout", `{"OriginatorConversationID":"AG_20261015_0001"}`)
	h.PayoutTimeout(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Policy Handler Tests ---

func TestCreatePolicy_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	policySvc := mocks.NewMockPolicyService(ctrl)
	h := NewPolicyHandler(policySvc)
	productID := uuid.New()

	policySvc.EXPECT().CreatePolicy(gomock.Any(), testAgent, ports.CreatePolicyRequest{
		ProductID:    productID,
		ClientName:   "Jane Doe",
		ClientPhone:  "0799000000",
		InsuredValue: decimal.RequireFromString("1000000"),
	}).Return(&domain.Policy{
		ID:        uuid.New(),
		ProductID: productID,
		ClientID:  uuid.New(),
		Premium:   decimal.RequireFromString("50000"),
		Tax:       decimal.RequireFromString("8000"),
		Total:     decimal.RequireFromString("58000"),
		Status:    domain.PolicyStatusPendingPayment,
		CreatedAt: time.Now(),
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/agent/policies", map[string]interface{}{
		"product_id":    productID.String(),
		"client_name":   "  Jane Doe ",
		"client_phone":  "0799000000",
		"insured_value": "1000000",
	})
	asAgent(c)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var data map[string]interface{}
	decodeData(t, w, &data)
	assert.Equal(t, "PENDING_PAYMENT", data["status"])
	assert.Equal(t, "58000", data["total"])
}

func TestCreatePolicy_RequiresAgent(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewPolicyHandler(mocks.NewMockPolicyService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/agent/policies", map[string]interface{}{})
	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePolicy_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewPolicyHandler(mocks.NewMockPolicyService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/agent/policies", map[string]interface{}{
		"product_id":   uuid.NewString(),
		"client_name":  "Jane Doe",
		"client_phone": "12345",
	})
	asAgent(c)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPolicy(t *testing.T) {
	ctrl := gomock.NewController(t)
	policySvc := mocks.NewMockPolicyService(ctrl)
	h := NewPolicyHandler(policySvc)
	id := uuid.New()

	policySvc.EXPECT().GetPolicy(gomock.Any(), testAgent, id).Return(nil, apperror.ErrNotFound("policy"))

	c, w := newContext(http.MethodGet, "/api/v1/agent/policies/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	asAgent(c)
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(http.MethodGet, "/api/v1/agent/policies/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	asAgent(c)
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPolicies(t *testing.T) {
	ctrl := gomock.NewController(t)
	policySvc := mocks.NewMockPolicyService(ctrl)
	h := NewPolicyHandler(policySvc)
	expiry := time.Now().AddDate(1, 0, 0)

	policySvc.EXPECT().ListPolicies(gomock.Any(), testAgent).Return([]domain.Policy{
		{ID: uuid.New(), Status: domain.PolicyStatusActive, ExpiryDate: &expiry},
		{ID: uuid.New(), Status: domain.PolicyStatusPendingPayment},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/agent/policies", nil)
	asAgent(c)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data []map[string]interface{}
	decodeData(t, w, &data)
	require.Len(t, data, 2)
	assert.Equal(t, "ACTIVE", data[0]["status"])
	assert.NotEmpty(t, data[0]["expiry_date"])
	assert.Nil(t, data[1]["expiry_date"])
}

// --- Wallet Handler Tests ---

func TestGetWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().GetWallet(gomock.Any(), testManager.ID).Return(&domain.Wallet{
		ID: uuid.New(), OwnerID: testManager.ID, Balance: decimal.RequireFromString("12000.50"),
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/manager/wallet", nil)
	asManager(c)
	h.GetWallet(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	decodeData(t, w, &data)
	assert.Equal(t, "12000.5", data["balance"])
	assert.Equal(t, "KES", data["currency"])
}

func TestListEntries_PassesFilters(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().ListEntries(gomock.Any(), testAgent.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
			assert.Equal(t, 2, params.Page)
			assert.Equal(t, 10, params.PageSize)
			require.NotNil(t, params.Kind)
			assert.Equal(t, domain.EntryKindCommissionEarned, *params.Kind)
			require.NotNil(t, params.From)
			assert.Equal(t, int64(1760000000), *params.From)
			assert.Nil(t, params.To)
			return []domain.LedgerEntry{{ID: uuid.New(), Kind: domain.EntryKindCommissionEarned, Status: domain.EntryStatusCompleted}}, 21, nil
		})

	c, w := newContext(http.MethodGet, "/api/v1/agent/wallet/entries?page=2&page_size=10&kind=COMMISSION_EARNED&from=1760000000", nil)
	asAgent(c)
	h.ListEntries(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Items      []map[string]interface{} `json:"items"`
		Total      int64                    `json:"total"`
		TotalPages int                      `json:"total_pages"`
	}
	decodeData(t, w, &data)
	assert.Len(t, data.Items, 1)
	assert.Equal(t, int64(21), data.Total)
	assert.Equal(t, 3, data.TotalPages)
}

func TestListEntries_BadQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl))

	for _, q := range []string{"page=two", "from=yesterday", "to=1.5"} {
		c, w := newContext(http.MethodGet, "/api/v1/agent/wallet/entries?"+q, nil)
		asAgent(c)
		h.ListEntries(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().GetStats(gomock.Any(), testAgent.ID).Return(&ports.LedgerStats{
		EntryCount:       3,
		CommissionEarned: decimal.RequireFromString("5000"),
		Withdrawn:        decimal.RequireFromString("2000"),
		PendingHolds:     decimal.Zero,
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/agent/wallet/stats", nil)
	asAgent(c)
	h.GetStats(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	decodeData(t, w, &data)
	assert.Equal(t, float64(3), data["entry_count"])
	assert.Equal(t, "5000", data["commission_earned"])
}

// --- Withdrawal Handler Tests ---

func TestRequestWithdrawal_HeaderKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	payouts := mocks.NewMockPayoutService(ctrl)
	h := NewWithdrawalHandler(payouts)

	payouts.EXPECT().RequestWithdrawal(gomock.Any(), testAgent, ports.WithdrawalRequest{
		Amount:         decimal.RequireFromString("10000"),
		IdempotencyKey: "wd-001",
	}).Return(&domain.LedgerEntry{
		ID: uuid.New(), Amount: decimal.RequireFromString("-10000"),
		Kind: domain.EntryKindWithdrawalRequested, Status: domain.EntryStatusPending,
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/agent/withdrawals", map[string]interface{}{"amount": 10000})
	c.Request.Header.Set(HeaderIdempotencyKey, "wd-001")
	asAgent(c)
	h.Request(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var data map[string]interface{}
	decodeData(t, w, &data)
	assert.Equal(t, "WITHDRAWAL_REQUESTED", data["kind"])
	assert.Equal(t, "-10000", data["amount"])
}

func TestRequestWithdrawal_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.ErrBelowMinimumWithdrawal("1.00"), http.StatusBadRequest, "PAY_005"},
		{apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, "PAY_001"},
	}
	for _, tt := range tests {
		ctrl := gomock.NewController(t)
		payouts := mocks.NewMockPayoutService(ctrl)
		h := NewWithdrawalHandler(payouts)
		payouts.EXPECT().RequestWithdrawal(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.err)

		c, w := newContext(http.MethodPost, "/api/v1/agent/withdrawals", `{"amount":"0.50"}`)
		asAgent(c)
		h.Request(c)

		assert.Equal(t, tt.status, w.Code)
		assert.Equal(t, tt.code, errorCode(t, w))
	}
}

func TestApproveWithdrawal(t *testing.T) {
	ctrl := gomock.NewController(t)
	payouts := mocks.NewMockPayoutService(ctrl)
	h := NewWithdrawalHandler(payouts)
	id := uuid.New()
	correlation := "AG_20261015_0001"

	payouts.EXPECT().ApproveWithdrawal(gomock.Any(), testManager, id).Return(&domain.LedgerEntry{
		ID: id, Kind: domain.EntryKindWithdrawalProcessing, Status: domain.EntryStatusPending, CorrelationID: &correlation,
	}, nil)
	payouts.EXPECT().ApproveWithdrawal(gomock.Any(), testManager, id).Return(nil, apperror.ErrNotPending())

	c, w := newContext(http.MethodPost, "/api/v1/manager/withdrawals/"+id.String()+"/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	asManager(c)
	h.Approve(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	decodeData(t, w, &data)
	assert.Equal(t, correlation, data["correlation_id"])

	c, w = newContext(http.MethodPost, "/api/v1/manager/withdrawals/"+id.String()+"/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	asManager(c)
	h.Approve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STATE_002", errorCode(t, w))
}

func TestApproveWithdrawal_RequiresManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWithdrawalHandler(mocks.NewMockPayoutService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/manager/withdrawals/x/approve", nil)
	asAgent(c)
	h.Approve(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListPendingWithdrawals(t *testing.T) {
	ctrl := gomock.NewController(t)
	payouts := mocks.NewMockPayoutService(ctrl)
	h := NewWithdrawalHandler(payouts)

	payouts.EXPECT().ListPendingWithdrawals(gomock.Any(), testManager).Return(nil, nil)

	c, w := newContext(http.MethodGet, "/api/v1/manager/withdrawals/pending", nil)
	asManager(c)
	h.ListPending(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data []interface{}
	decodeData(t, w, &data)
	assert.Empty(t, data)
}

// --- Stock Handler Tests ---

func TestReplenishStock(t *testing.T) {
	ctrl := gomock.NewController(t)
	inventory := mocks.NewMockInventory(ctrl)
	h := NewStockHandler(inventory)
	key := domain.StockKey{ManagerID: testManager.ID, InsurerID: uuid.New(), ProductClass: "MOTOR"}

	inventory.EXPECT().Replenish(gomock.Any(), key, 25).Return(&domain.CertificateStock{
		ID: uuid.New(), StockKey: key, Quantity: 30, UpdatedAt: time.Now(),
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/admin/stock", map[string]interface{}{
		"manager_id":    key.ManagerID.String(),
		"insurer_id":    key.InsurerID.String(),
		"product_class": "MOTOR",
		"quantity":      25,
	})
	h.Replenish(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	decodeData(t, w, &data)
	assert.Equal(t, float64(30), data["quantity"])
}

func TestReplenishStock_RejectsZeroQuantity(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewStockHandler(mocks.NewMockInventory(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/admin/stock", map[string]interface{}{
		"manager_id":    uuid.NewString(),
		"insurer_id":    uuid.NewString(),
		"product_class": "MOTOR",
		"quantity":      0,
	})
	h.Replenish(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListStock(t *testing.T) {
	ctrl := gomock.NewController(t)
	inventory := mocks.NewMockInventory(ctrl)
	h := NewStockHandler(inventory)

	inventory.EXPECT().ListForManager(gomock.Any(), testManager.ID).Return([]domain.CertificateStock{
		{StockKey: domain.StockKey{ManagerID: testManager.ID, InsurerID: uuid.New(), ProductClass: "MOTOR"}, Quantity: 4},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/manager/stock", nil)
	asManager(c)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data []map[string]interface{}
	decodeData(t, w, &data)
	require.Len(t, data, 1)
	assert.Equal(t, "MOTOR", data[0]["product_class"])
}

// --- Notification Handler Tests ---

func TestListNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifications := mocks.NewMockNotificationService(ctrl)
	h := NewNotificationHandler(notifications)

	notifications.EXPECT().List(gomock.Any(), testAgent.ID, 5).Return([]domain.Notification{
		{ID: uuid.New(), RecipientID: testAgent.ID, Event: domain.EventPaymentReceived, Message: "Payment received", CreatedAt: time.Now()},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/notifications?limit=5", nil)
	asAgent(c)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data []map[string]interface{}
	decodeData(t, w, &data)
	require.Len(t, data, 1)
	assert.Equal(t, "PAYMENT_RECEIVED", data[0]["event"])
}

// --- Health & docs ---

func TestHealthCheck(t *testing.T) {
	c, w := newContext(http.MethodGet, "/health", nil)
	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	pg.EXPECT().Name().Return("postgres").AnyTimes()

	c, w := newContext(http.MethodGet, "/health", nil)
	HealthCheck(pg)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestSwaggerUI(t *testing.T) {
	c, w := newContext(http.MethodGet, "/swagger", nil)
	SwaggerUI(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/swagger/spec")
}

func TestSwaggerSpec(t *testing.T) {
	SetSwaggerSpec(nil)
	c, w := newContext(http.MethodGet, "/swagger/spec", nil)
	SwaggerSpec(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	SetSwaggerSpec([]byte("openapi: '3.0.0'\ninfo:\n  title: Test"))
	defer SetSwaggerSpec(nil)
	c, w = newContext(http.MethodGet, "/swagger/spec", nil)
	SwaggerSpec(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi")
}
