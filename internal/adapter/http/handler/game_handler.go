package handler

import (
	"house-treasury/internal/adapter/http/dto"
	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"
	"house-treasury/pkg/response"

	"github.com/gin-gonic/gin"
)

// GameHandler handles game lifecycle endpoints.
type GameHandler struct {
	gameSvc ports.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameSvc ports.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// CreateGame handles POST /api/v1/treasuries/:id/games. The player defaults
// to the caller.
func (h *GameHandler) CreateGame(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}
	treasuryID, ok := pathID(c, "treasury")
	if !ok {
		return
	}

	var req dto.CreateGameRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	player := callerAddr
	if req.Player != "" {
		var err error
		if player, err = domain.ParseAddress(req.Player); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	game, err := h.gameSvc.CreateGame(c.Request.Context(), ports.CreateGameRequest{
		TreasuryID: treasuryID,
		Player:     player,
		Stake:      *req.Stake,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewGameResponse(game))
}

// GetGame handles GET /api/v1/games/:id.
func (h *GameHandler) GetGame(c *gin.Context) {
	id, ok := pathID(c, "game")
	if !ok {
		return
	}

	game, err := h.gameSvc.GetGame(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewGameResponse(game))
}

// SettleGame handles POST /api/v1/games/:id/settle.
func (h *GameHandler) SettleGame(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "game")
	if !ok {
		return
	}

	var req dto.SettleGameRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.gameSvc.SettleGame(c.Request.Context(), ports.SettleGameRequest{
		GameID:  id,
		Caller:  callerAddr,
		Outcome: domain.Outcome(req.Outcome),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewSettleGameResponse(result))
}
