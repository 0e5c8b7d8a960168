package handler

import (
	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PolicyHandler handles agent policy endpoints.
type PolicyHandler struct {
	policySvc ports.PolicyService
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policySvc ports.PolicyService) *PolicyHandler {
	return &PolicyHandler{policySvc: policySvc}
}

// Create handles POST /api/v1/agent/policies.
func (h *PolicyHandler) Create(c *gin.Context) {
	agent, ok := currentAgent(c)
	if !ok {
		return
	}

	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	policy, err := h.policySvc.CreatePolicy(c.Request.Context(), agent, ports.CreatePolicyRequest{
		ProductID:    uuid.MustParse(req.ProductID),
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		InsuredValue: req.InsuredValue,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPolicyResponse(policy))
}

// Get handles GET /api/v1/agent/policies/:id.
func (h *PolicyHandler) Get(c *gin.Context) {
	agent, ok := currentAgent(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	policy, err := h.policySvc.GetPolicy(c.Request.Context(), agent, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toPolicyResponse(policy))
}

// List handles GET /api/v1/agent/policies.
func (h *PolicyHandler) List(c *gin.Context) {
	agent, ok := currentAgent(c)
	if !ok {
		return
	}

	policies, err := h.policySvc.ListPolicies(c.Request.Context(), agent)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, toPolicyResponse(&policies[i]))
	}
	response.OK(c, items)
}
