package domain

import (
	"time"

	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
)

// GameStatus represents the lifecycle state of a game.
type GameStatus string

const (
	GameStatusOpen    GameStatus = "OPEN"
	GameStatusSettled GameStatus = "SETTLED"
)

// Game is a single wager played by a player against a treasury.
// FeeBps is fixed when the game is created so later rate changes never
// reprice games already in flight.
type Game struct {
	ID         uuid.UUID  `json:"id"`
	TreasuryID uuid.UUID  `json:"treasury_id"`
	Player     Address    `json:"player"`
	Stake      int64      `json:"stake"`
	FeeBps     int64      `json:"fee_bps"`
	Status     GameStatus `json:"status"`
	Outcome    *Outcome   `json:"outcome,omitempty"`
	Fee        int64      `json:"fee"`
	Payout     int64      `json:"payout"`
	CreatedAt  time.Time  `json:"created_at"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}

// NewGame opens a game against t and escrows the house's matching stake out
// of t's principal. The stake must lie within the treasury's bounds and be
// covered by the principal. t is left unchanged on error.
func NewGame(t *Treasury, player Address, stake, feeBps int64, now time.Time) (*Game, error) {
	if stake <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if player.IsZero() {
		return nil, apperror.Validation("player address is required")
	}
	if err := t.Escrow(stake); err != nil {
		return nil, err
	}

	return &Game{
		ID:         uuid.New(),
		TreasuryID: t.ID,
		Player:     player,
		Stake:      stake,
		FeeBps:     feeBps,
		Status:     GameStatusOpen,
		CreatedAt:  now,
	}, nil
}

// IsSettled returns true once the game's outcome has been booked.
func (g *Game) IsSettled() bool {
	return g.Status == GameStatusSettled
}

// Settlement computes the game's financial consequence without mutating it.
func (g *Game) Settlement(outcome Outcome) (Settlement, error) {
	if g.IsSettled() {
		return Settlement{}, apperror.ErrGameAlreadySettled()
	}
	return Settle(g.Stake, g.FeeBps, outcome)
}

// MarkSettled records the settlement on the game.
func (g *Game) MarkSettled(s Settlement, now time.Time) {
	outcome := s.Outcome
	g.Status = GameStatusSettled
	g.Outcome = &outcome
	g.Fee = s.Fee
	g.Payout = s.Payout
	g.SettledAt = &now
}

// Result reconstructs the settlement of an already settled game.
func (g *Game) Result() (Settlement, bool) {
	if !g.IsSettled() || g.Outcome == nil {
		return Settlement{}, false
	}
	s, err := Settle(g.Stake, g.FeeBps, *g.Outcome)
	if err != nil {
		return Settlement{}, false
	}
	return s, true
}
