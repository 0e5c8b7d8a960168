package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Gateway callback signature headers
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxRequestID = "request_id"
	CtxActorID   = "actor_id"
	CtxRole      = "role"
	CtxAgent     = "agent"
	CtxManager   = "manager"
)

// CallbackSignature verifies HMAC-SHA256 signatures on gateway callbacks.
// The signed string is PATH|TIMESTAMP|BODY; timestamps older or newer than
// maxDrift are rejected. The body is restored for the handler.
func CallbackSignature(secret string, sigSvc ports.SignatureService, maxDrift time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		if signature == "" || timestampStr == "" {
			response.Error(c, apperror.ErrMissingSignature())
			c.Abort()
			return
		}

		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}
		drift := time.Since(time.Unix(timestamp, 0))
		if drift < 0 {
			drift = -drift
		}
		if maxDrift > 0 && drift > maxDrift {
			log.Warn().Int64("timestamp", timestamp).Str("path", c.Request.URL.Path).Msg("callback timestamp outside allowed drift")
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.Validation("cannot read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(c.Request.URL.Path, timestamp, string(bodyBytes))
		if !sigSvc.Verify(secret, canonical, signature) {
			log.Warn().Str("path", c.Request.URL.Path).Str("client_ip", c.ClientIP()).Msg("callback signature mismatch")
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		c.Next()
	}
}

// ActorAuth validates the bearer token and resolves the acting agent or
// manager. Admin tokens carry only the actor id.
func ActorAuth(tokenSvc ports.TokenService, parties ports.PartyRepository, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		switch claims.Role {
		case domain.RoleAgent:
			agent, err := parties.GetAgent(ctx, claims.UserID)
			if err != nil {
				log.Error().Err(err).Str("actor_id", claims.UserID.String()).Msg("failed to resolve agent")
				response.Error(c, apperror.InternalError(err))
				c.Abort()
				return
			}
			if agent == nil {
				response.Error(c, apperror.ErrInvalidToken())
				c.Abort()
				return
			}
			c.Set(CtxAgent, *agent)
		case domain.RoleManager:
			manager, err := parties.GetManager(ctx, claims.UserID)
			if err != nil {
				log.Error().Err(err).Str("actor_id", claims.UserID.String()).Msg("failed to resolve manager")
				response.Error(c, apperror.InternalError(err))
				c.Abort()
				return
			}
			if manager == nil {
				response.Error(c, apperror.ErrInvalidToken())
				c.Abort()
				return
			}
			c.Set(CtxManager, *manager)
		}

		c.Set(CtxActorID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects actors whose role is not one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Error(c, apperror.ErrForbiddenRole())
		c.Abort()
	}
}

// AgentFrom returns the agent resolved by ActorAuth.
func AgentFrom(c *gin.Context) (domain.Agent, bool) {
	v, ok := c.Get(CtxAgent)
	if !ok {
		return domain.Agent{}, false
	}
	agent, ok := v.(domain.Agent)
	return agent, ok
}

// ManagerFrom returns the manager resolved by ActorAuth.
func ManagerFrom(c *gin.Context) (domain.Manager, bool) {
	v, ok := c.Get(CtxManager)
	if !ok {
		return domain.Manager{}, false
	}
	manager, ok := v.(domain.Manager)
	return manager, ok
}

// ActorIDFrom returns the authenticated actor id, if any.
func ActorIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxActorID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if err := c.Errors.Last(); err != nil {
			event = event.Err(err.Err)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
