package dto

import (
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
)

// ChallengeRequest is the request body for issuing a login challenge.
type ChallengeRequest struct {
	Address string `json:"address" binding:"required,address"`
}

// ChallengeResponse carries the message the caller must sign.
type ChallengeResponse struct {
	Address   string `json:"address"`
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	ExpiresAt int64  `json:"expires_at"` // Unix timestamp
}

// LoginRequest is the request body for challenge login. Keys and signatures
// are hex encoded.
type LoginRequest struct {
	PublicKey string `json:"public_key" binding:"required,hexadecimal"`
	Nonce     string `json:"nonce" binding:"required,hexadecimal,max=64"`
	Signature string `json:"signature" binding:"required,hexadecimal"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	Expiry  int64  `json:"expiry"` // Unix timestamp
}

// InitializeTreasuryRequest is the request body for creating a treasury.
// Operator defaults to the authenticated caller.
type InitializeTreasuryRequest struct {
	InitialFunds int64  `json:"initial_funds"`
	Operator     string `json:"operator,omitempty" binding:"omitempty,address"`
}

// TopUpRequest is the request body for adding principal.
type TopUpRequest struct {
	Amount *int64 `json:"amount" binding:"required"`
}

// StakeBoundRequest is the request body for updating a stake bound.
type StakeBoundRequest struct {
	Value *int64 `json:"value" binding:"required"`
}

// CreateGameRequest is the request body for opening a game. Player defaults
// to the authenticated caller.
type CreateGameRequest struct {
	Player string `json:"player,omitempty" binding:"omitempty,address"`
	Stake  *int64 `json:"stake" binding:"required"`
}

// SettleGameRequest is the request body for settling a game.
type SettleGameRequest struct {
	Outcome string `json:"outcome" binding:"required,max=32"`
}

// TreasuryResponse is the public view of a treasury.
type TreasuryResponse struct {
	ID         string `json:"id"`
	Operator   string `json:"operator"`
	Balance    int64  `json:"balance"`
	Escrowed   int64  `json:"escrowed"`
	FeeBalance int64  `json:"fee_balance"`
	Total      int64  `json:"total"`
	MinStake   int64  `json:"min_stake"`
	MaxStake   int64  `json:"max_stake"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// TransferResponse is the result of a withdrawal or fee claim.
type TransferResponse struct {
	Amount    int64            `json:"amount"`
	Recipient string           `json:"recipient"`
	Treasury  TreasuryResponse `json:"treasury"`
}

// GameResponse is the public view of a game.
type GameResponse struct {
	ID         string  `json:"id"`
	TreasuryID string  `json:"treasury_id"`
	Player     string  `json:"player"`
	Stake      int64   `json:"stake"`
	FeeBps     int64   `json:"fee_bps"`
	Status     string  `json:"status"`
	Outcome    *string `json:"outcome,omitempty"`
	Fee        int64   `json:"fee"`
	Payout     int64   `json:"payout"`
	CreatedAt  string  `json:"created_at"`
	SettledAt  *string `json:"settled_at,omitempty"`
}

// SettlementResponse describes the money movement of a settled game.
// PrincipalDelta is the game's net effect on the principal, fees excluded.
type SettlementResponse struct {
	Outcome        string `json:"outcome"`
	Pool           int64  `json:"pool"`
	Fee            int64  `json:"fee"`
	Payout         int64  `json:"payout"`
	PrincipalDelta int64  `json:"principal_delta"`
	FeeDelta       int64  `json:"fee_delta"`
}

// SettleGameResponse is the response body for settlement.
type SettleGameResponse struct {
	Game       GameResponse       `json:"game"`
	Settlement SettlementResponse `json:"settlement"`
	Treasury   TreasuryResponse   `json:"treasury"`
}

// LedgerEntryResponse is the public view of a ledger entry.
type LedgerEntryResponse struct {
	ID              string  `json:"id"`
	GameID          *string `json:"game_id,omitempty"`
	Kind            string  `json:"kind"`
	Actor           string  `json:"actor"`
	PrincipalDelta  int64   `json:"principal_delta"`
	EscrowDelta     int64   `json:"escrow_delta"`
	FeeDelta        int64   `json:"fee_delta"`
	BalanceAfter    int64   `json:"balance_after"`
	EscrowAfter     int64   `json:"escrow_after"`
	FeeBalanceAfter int64   `json:"fee_balance_after"`
	CreatedAt       string  `json:"created_at"`
}

// LedgerListResponse wraps a paginated ledger listing.
type LedgerListResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// TreasuryStatsResponse is the response for treasury statistics.
type TreasuryStatsResponse struct {
	Period         string `json:"period"`
	GamesSettled   int64  `json:"games_settled"`
	HouseWins      int64  `json:"house_wins"`
	HouseLosses    int64  `json:"house_losses"`
	FeesCollected  int64  `json:"fees_collected"`
	SettlementNet  int64  `json:"settlement_net"`
	TotalFunded    int64  `json:"total_funded"`
	TotalWithdrawn int64  `json:"total_withdrawn"`
	TotalClaimed   int64  `json:"total_claimed"`
}

// NewTreasuryResponse maps a treasury to its public view.
func NewTreasuryResponse(t *domain.Treasury) TreasuryResponse {
	return TreasuryResponse{
		ID:         t.ID.String(),
		Operator:   t.Operator.String(),
		Balance:    t.Balance,
		Escrowed:   t.Escrowed,
		FeeBalance: t.FeeBalance,
		Total:      t.Total(),
		MinStake:   t.MinStake,
		MaxStake:   t.MaxStake,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}

// NewTransferResponse maps a withdrawal or claim result.
func NewTransferResponse(r *ports.TransferResult) TransferResponse {
	return TransferResponse{
		Amount:    r.Amount,
		Recipient: r.Recipient.String(),
		Treasury:  NewTreasuryResponse(r.Treasury),
	}
}

// NewGameResponse maps a game to its public view.
func NewGameResponse(g *domain.Game) GameResponse {
	resp := GameResponse{
		ID:         g.ID.String(),
		TreasuryID: g.TreasuryID.String(),
		Player:     g.Player.String(),
		Stake:      g.Stake,
		FeeBps:     g.FeeBps,
		Status:     string(g.Status),
		Fee:        g.Fee,
		Payout:     g.Payout,
		CreatedAt:  g.CreatedAt.Format(time.RFC3339),
	}
	if g.Outcome != nil {
		o := string(*g.Outcome)
		resp.Outcome = &o
	}
	if g.SettledAt != nil {
		s := g.SettledAt.Format(time.RFC3339)
		resp.SettledAt = &s
	}
	return resp
}

// NewSettleGameResponse maps a settlement result.
func NewSettleGameResponse(r *ports.SettleResult) SettleGameResponse {
	return SettleGameResponse{
		Game: NewGameResponse(r.Game),
		Settlement: SettlementResponse{
			Outcome:        string(r.Settlement.Outcome),
			Pool:           r.Settlement.Pool,
			Fee:            r.Settlement.Fee,
			Payout:         r.Settlement.Payout,
			PrincipalDelta: r.Settlement.PrincipalDelta,
			FeeDelta:       r.Settlement.FeeDelta,
		},
		Treasury: NewTreasuryResponse(r.Treasury),
	}
}

// NewLedgerEntryResponse maps a ledger entry to its public view.
func NewLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:              e.ID.String(),
		Kind:            string(e.Kind),
		Actor:           e.Actor.String(),
		PrincipalDelta:  e.PrincipalDelta,
		EscrowDelta:     e.EscrowDelta,
		FeeDelta:        e.FeeDelta,
		BalanceAfter:    e.BalanceAfter,
		EscrowAfter:     e.EscrowAfter,
		FeeBalanceAfter: e.FeeBalanceAfter,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.GameID != nil {
		id := e.GameID.String()
		resp.GameID = &id
	}
	return resp
}
