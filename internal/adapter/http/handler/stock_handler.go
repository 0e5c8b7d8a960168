package handler

import (
	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler exposes certificate stock.
type StockHandler struct {
	inventory ports.Inventory
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(inventory ports.Inventory) *StockHandler {
	return &StockHandler{inventory: inventory}
}

// List handles GET /api/v1/manager/stock.
func (h *StockHandler) List(c *gin.Context) {
	manager, ok := currentManager(c)
	if !ok {
		return
	}

	stock, err := h.inventory.ListForManager(c.Request.Context(), manager.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.StockResponse, 0, len(stock))
	for i := range stock {
		items = append(items, toStockResponse(&stock[i]))
	}
	response.OK(c, items)
}

// Replenish handles POST /api/v1/admin/stock.
func (h *StockHandler) Replenish(c *gin.Context) {
	var req dto.ReplenishStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	stock, err := h.inventory.Replenish(c.Request.Context(), domain.StockKey{
		ManagerID:    uuid.MustParse(req.ManagerID),
		InsurerID:    uuid.MustParse(req.InsurerID),
		ProductClass: req.ProductClass,
	}, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toStockResponse(stock))
}
