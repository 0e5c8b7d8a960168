package handler

import (
	"math"
	"strconv"

	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/adapter/http/middleware"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	walletCurrency  = "KES"
	defaultPageSize = 20
	maxPageSize     = 100
)

// WalletHandler serves the authenticated actor's wallet. Agents and
// managers share these routes.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetWallet handles GET /api/v1/{agent,manager}/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	ownerID, ok := middleware.ActorIDFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
		Currency: walletCurrency,
	})
}

// ListEntries handles GET /api/v1/{agent,manager}/wallet/entries.
func (h *WalletHandler) ListEntries(c *gin.Context) {
	ownerID, ok := middleware.ActorIDFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size", defaultPageSize)
	if !ok {
		return
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	params := ports.LedgerListParams{Page: page, PageSize: pageSize}
	if k := c.Query("kind"); k != "" {
		kind := domain.EntryKind(k)
		params.Kind = &kind
	}
	if s := c.Query("status"); s != "" {
		status := domain.EntryStatus(s)
		params.Status = &status
	}
	for name, dst := range map[string]**int64{"from": &params.From, "to": &params.To} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation(name+" must be a unix timestamp"))
			return
		}
		*dst = &v
	}

	entries, total, err := h.walletSvc.ListEntries(c.Request.Context(), ownerID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.EntryListResponse{
		Items:      toEntryResponses(entries),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// GetStats handles GET /api/v1/{agent,manager}/wallet/stats.
func (h *WalletHandler) GetStats(c *gin.Context) {
	ownerID, ok := middleware.ActorIDFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	stats, err := h.walletSvc.GetStats(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletStatsResponse{
		EntryCount:       stats.EntryCount,
		CommissionEarned: stats.CommissionEarned,
		Withdrawn:        stats.Withdrawn,
		PendingHolds:     stats.PendingHolds,
	})
}
