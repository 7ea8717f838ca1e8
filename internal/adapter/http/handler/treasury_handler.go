package handler

import (
	"context"
	"math"
	"strconv"

	"house-treasury/internal/adapter/http/dto"
	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"
	"house-treasury/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TreasuryHandler handles treasury endpoints.
type TreasuryHandler struct {
	treasurySvc  ports.TreasuryService
	reportingSvc ports.ReportingService
}

// NewTreasuryHandler creates a new TreasuryHandler.
func NewTreasuryHandler(treasurySvc ports.TreasuryService, reportingSvc ports.ReportingService) *TreasuryHandler {
	return &TreasuryHandler{
		treasurySvc:  treasurySvc,
		reportingSvc: reportingSvc,
	}
}

// Initialize handles POST /api/v1/treasuries.
func (h *TreasuryHandler) Initialize(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	var req dto.InitializeTreasuryRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	var operator domain.Address
	if req.Operator != "" {
		var err error
		if operator, err = domain.ParseAddress(req.Operator); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	treasury, err := h.treasurySvc.Initialize(c.Request.Context(), ports.InitializeRequest{
		InitialFunds: req.InitialFunds,
		Operator:     operator,
		Caller:       callerAddr,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTreasuryResponse(treasury))
}

// Get handles GET /api/v1/treasuries/:id.
func (h *TreasuryHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	treasury, err := h.treasurySvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTreasuryResponse(treasury))
}

// TopUp handles POST /api/v1/treasuries/:id/topup.
func (h *TreasuryHandler) TopUp(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	var req dto.TopUpRequest
	if !bindJSON(c, &req) {
		return
	}

	treasury, err := h.treasurySvc.TopUp(c.Request.Context(), ports.TopUpRequest{
		TreasuryID: id,
		Amount:     *req.Amount,
		Caller:     callerAddr,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTreasuryResponse(treasury))
}

// Withdraw handles POST /api/v1/treasuries/:id/withdraw.
func (h *TreasuryHandler) Withdraw(c *gin.Context) {
	h.transfer(c, h.treasurySvc.Withdraw)
}

// ClaimFees handles POST /api/v1/treasuries/:id/claim-fees.
func (h *TreasuryHandler) ClaimFees(c *gin.Context) {
	h.transfer(c, h.treasurySvc.ClaimFees)
}

func (h *TreasuryHandler) transfer(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, caller domain.Address) (*ports.TransferResult, error)) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), id, callerAddr)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransferResponse(result))
}

// UpdateMinStake handles PUT /api/v1/treasuries/:id/stake-bounds/min.
func (h *TreasuryHandler) UpdateMinStake(c *gin.Context) {
	h.updateBound(c, h.treasurySvc.UpdateMinStake)
}

// UpdateMaxStake handles PUT /api/v1/treasuries/:id/stake-bounds/max.
func (h *TreasuryHandler) UpdateMaxStake(c *gin.Context) {
	h.updateBound(c, h.treasurySvc.UpdateMaxStake)
}

func (h *TreasuryHandler) updateBound(c *gin.Context, fn func(ctx context.Context, req ports.StakeBoundRequest) (*domain.Treasury, error)) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	var req dto.StakeBoundRequest
	if !bindJSON(c, &req) {
		return
	}

	treasury, err := fn(c.Request.Context(), ports.StakeBoundRequest{
		TreasuryID: id,
		Caller:     callerAddr,
		Value:      *req.Value,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTreasuryResponse(treasury))
}

// ListLedger handles GET /api/v1/treasuries/:id/ledger.
func (h *TreasuryHandler) ListLedger(c *gin.Context) {
	id, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.LedgerListParams{
		TreasuryID: id,
		Page:       page,
		PageSize:   pageSize,
	}
	if k := c.Query("kind"); k != "" {
		kind := domain.LedgerKind(k)
		params.Kind = &kind
	}

	entries, total, err := h.treasurySvc.ListLedger(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewLedgerEntryResponse(&entries[i]))
	}

	response.OK(c, dto.LedgerListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// GetStats handles GET /api/v1/treasuries/:id/stats.
func (h *TreasuryHandler) GetStats(c *gin.Context) {
	id, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetTreasuryStats(c.Request.Context(), id, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TreasuryStatsResponse{
		Period:         period,
		GamesSettled:   stats.GamesSettled,
		HouseWins:      stats.HouseWins,
		HouseLosses:    stats.HouseLosses,
		FeesCollected:  stats.FeesCollected,
		SettlementNet:  stats.SettlementNet,
		TotalFunded:    stats.TotalFunded,
		TotalWithdrawn: stats.TotalWithdrawn,
		TotalClaimed:   stats.TotalClaimed,
	})
}
