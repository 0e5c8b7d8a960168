package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/core/ports/mocks"
	"insurance-settlement/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const callbackSecret = "callback-secret"

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

func signedCallback(t *testing.T, path, body string, ts int64, secret string) *http.Request {
	t.Helper()
	sig := service.NewHMACSignatureService()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, sig.Sign(secret, sig.BuildCanonicalString(path, ts, body)))
	return req
}

func callbackRouter(captured *string) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/callbacks/payments",
		CallbackSignature(callbackSecret, service.NewHMACSignatureService(), 5*time.Minute, zerolog.Nop()),
		func(c *gin.Context) {
			body, _ := io.ReadAll(c.Request.Body)
			*captured = string(body)
			c.Status(http.StatusOK)
		})
	return r
}

func TestCallbackSignature_ValidSignatureRestoresBody(t *testing.T) {
	var got string
	router := callbackRouter(&got)
	body := `{"policy_id":"x","result_code":0}`

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedCallback(t, "/api/v1/callbacks/payments", body, time.Now().Unix(), callbackSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, got)
}

func TestCallbackSignature_MissingHeaders(t *testing.T) {
	var got string
	router := callbackRouter(&got)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/payments", bytes.NewBufferString("{}")))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
	assert.Empty(t, got)
}

func TestCallbackSignature_Rejections(t *testing.T) {
	body := `{"result_code":0}`
	now := time.Now().Unix()

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"wrong secret", func() *http.Request {
			return signedCallback(t, "/api/v1/callbacks/payments", body, now, "other-secret")
		}},
		{"stale timestamp", func() *http.Request {
			return signedCallback(t, "/api/v1/callbacks/payments", body, now-3600, callbackSecret)
		}},
		{"tampered body", func() *http.Request {
			req := signedCallback(t, "/api/v1/callbacks/payments", body, now, callbackSecret)
			req.Body = io.NopCloser(bytes.NewBufferString(`{"result_code":1}`))
			return req
		}},
		{"malformed timestamp", func() *http.Request {
			req := signedCallback(t, "/api/v1/callbacks/payments", body, now, callbackSecret)
			req.Header.Set(HeaderTimestamp, "yesterday")
			return req
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			router := callbackRouter(&got)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req())

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "SEC_002", errorCode(t, w))
			assert.Empty(t, got)
		})
	}
}

func authRouter(tokenSvc ports.TokenService, parties ports.PartyRepository, roles []domain.Role, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/test", ActorAuth(tokenSvc, parties, zerolog.Nop()), RequireRole(roles...), handler)
	return r
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestActorAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := authRouter(mocks.NewMockTokenService(ctrl), mocks.NewMockPartyRepository(ctrl),
		[]domain.Role{domain.RoleAgent}, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer(""))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_003", errorCode(t, w))
}

func TestActorAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("bad").Return(nil, errors.New("expired"))

	router := authRouter(tokenSvc, mocks.NewMockPartyRepository(ctrl),
		[]domain.Role{domain.RoleAgent}, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer("bad"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorAuth_ResolvesAgent(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	parties := mocks.NewMockPartyRepository(ctrl)
	agent := &domain.Agent{ID: uuid.New(), ManagerID: uuid.New(), FullName: "Alex Agent"}

	tokenSvc.EXPECT().Validate("good").Return(&ports.TokenClaims{UserID: agent.ID, Role: domain.RoleAgent}, nil)
	parties.EXPECT().GetAgent(gomock.Any(), agent.ID).Return(agent, nil)

	var got domain.Agent
	var actorID uuid.UUID
	router := authRouter(tokenSvc, parties, []domain.Role{domain.RoleAgent}, func(c *gin.Context) {
		got, _ = AgentFrom(c)
		actorID, _ = ActorIDFrom(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer("good"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, *agent, got)
	assert.Equal(t, agent.ID, actorID)
}

func TestActorAuth_UnknownAgent(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	parties := mocks.NewMockPartyRepository(ctrl)
	id := uuid.New()

	tokenSvc.EXPECT().Validate("good").Return(&ports.TokenClaims{UserID: id, Role: domain.RoleAgent}, nil)
	parties.EXPECT().GetAgent(gomock.Any(), id).Return(nil, nil)

	router := authRouter(tokenSvc, parties, []domain.Role{domain.RoleAgent}, func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer("good"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorAuth_RepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	parties := mocks.NewMockPartyRepository(ctrl)
	id := uuid.New()

	tokenSvc.EXPECT().Validate("good").Return(&ports.TokenClaims{UserID: id, Role: domain.RoleManager}, nil)
	parties.EXPECT().GetManager(gomock.Any(), id).Return(nil, errors.New("db down"))

	router := authRouter(tokenSvc, parties, []domain.Role{domain.RoleManager}, func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer("good"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", errorCode(t, w))
}

func TestRequireRole_ForbidsOtherRoles(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	parties := mocks.NewMockPartyRepository(ctrl)
	manager := &domain.Manager{ID: uuid.New(), FullName: "Mary Manager"}

	tokenSvc.EXPECT().Validate("good").Return(&ports.TokenClaims{UserID: manager.ID, Role: domain.RoleManager}, nil)
	parties.EXPECT().GetManager(gomock.Any(), manager.ID).Return(manager, nil)

	router := authRouter(tokenSvc, parties, []domain.Role{domain.RoleAgent}, func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer("good"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTH_004", errorCode(t, w))
}

func TestActorAuth_AdminCarriesOnlyID(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	id := uuid.New()
	tokenSvc.EXPECT().Validate("admin").Return(&ports.TokenClaims{UserID: id, Role: domain.RoleAdmin}, nil)

	var hasAgent, hasManager bool
	router := authRouter(tokenSvc, mocks.NewMockPartyRepository(ctrl), []domain.Role{domain.RoleAdmin}, func(c *gin.Context) {
		_, hasAgent = AgentFrom(c)
		_, hasManager = ManagerFrom(c)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, bearer("admin"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, hasAgent)
	assert.False(t, hasManager)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxRequestID))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", errorCode(t, w))
}
