package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"insurance-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(requestID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if requestID != "" {
		c.Set("request_id", requestID)
	}
	return c, w
}

func TestOK_WrapsEntry(t *testing.T) {
	c, w := newContext("req-ok")

	OK(c, map[string]string{"kind": "WITHDRAWAL_PROCESSING", "status": "PENDING"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-ok", resp.RequestID)
	assert.NotEmpty(t, resp.Timestamp)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "WITHDRAWAL_PROCESSING", data["kind"])
}

func TestCreated_HoldEntry(t *testing.T) {
	c, w := newContext("req-hold")

	Created(c, map[string]string{"amount": "-10000.00"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-hold", resp.RequestID)
}

func TestError_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient funds", apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, apperror.CodeInsufficientFunds},
		{"stock exhausted", apperror.ErrStockExhausted(), http.StatusConflict, apperror.CodeStockExhausted},
		{"no stock row", apperror.ErrNoStockConfigured(), http.StatusConflict, apperror.CodeNoStockConfigured},
		{"not pending", apperror.ErrNotPending(), http.StatusConflict, apperror.CodeNotPending},
		{"wrong manager", apperror.ErrUnauthorized(), http.StatusForbidden, apperror.CodeUnauthorized},
		{"policy missing", apperror.ErrNotFound("Policy"), http.StatusNotFound, apperror.CodeNotFound},
		{"wrapped", fmt.Errorf("approve: %w", apperror.ErrCorrelationConflict()), http.StatusConflict, apperror.CodeCorrelationConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext("req-err")

			Error(c, tt.err)

			assert.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.ErrorCode)
			assert.Equal(t, "req-err", resp.RequestID)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestError_UnknownErrorHidesText(t *testing.T) {
	c, w := newContext("")

	Error(c, fmt.Errorf("pq: deadlock detected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp.ErrorCode)
	assert.NotContains(t, resp.Message, "deadlock")
	assert.Len(t, c.Errors, 1)
}

func TestOK_GeneratesRequestID_WhenMissing(t *testing.T) {
	c, w := newContext("")

	OK(c, nil)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
}

func TestAck_EmptyBody(t *testing.T) {
	c, w := newContext("")

	Ack(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
