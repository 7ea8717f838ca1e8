package domain

import (
	"math"
	"strings"

	"house-treasury/pkg/apperror"

	"github.com/shopspring/decimal"
)

const (
	// MaxFeeBps is 100% expressed in basis points.
	MaxFeeBps int64 = 10000
	// MaxGameFeeBps caps the rake at half the pool so the fee never exceeds
	// either side's stake.
	MaxGameFeeBps int64 = MaxFeeBps / 2
)

// Outcome is the result of a two-outcome game from the player's side.
type Outcome string

const (
	OutcomePlayerWins Outcome = "PLAYER_WINS"
	OutcomeHouseWins  Outcome = "HOUSE_WINS"
)

// ParseOutcome accepts the canonical names case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(s))); o {
	case OutcomePlayerWins, OutcomeHouseWins:
		return o, nil
	}
	return "", apperror.ErrInvalidOutcome()
}

// ComputeFee returns floor(pool * feeBps / 10000) without floating point.
func ComputeFee(pool, feeBps int64) (int64, error) {
	if pool < 0 {
		return 0, apperror.ErrInvalidAmount()
	}
	if feeBps < 0 || feeBps > MaxFeeBps {
		return 0, apperror.Validation("fee rate must be within [0, 10000] basis points")
	}
	fee := decimal.NewFromInt(pool).
		Mul(decimal.NewFromInt(feeBps)).
		Shift(-4).
		Floor()
	return fee.IntPart(), nil
}

// Settlement is the financial consequence of one finished game.
//
// Pool is both sides' stakes combined. Payout is what the winner receives
// (Pool - Fee). PrincipalDelta and FeeDelta are the game's net effect on the
// treasury's principal and fee balance, measured from before the house's
// stake was escrowed.
type Settlement struct {
	Outcome        Outcome `json:"outcome"`
	Stake          int64   `json:"stake"`
	Pool           int64   `json:"pool"`
	Fee            int64   `json:"fee"`
	Payout         int64   `json:"payout"`
	PrincipalDelta int64   `json:"principal_delta"`
	FeeDelta       int64   `json:"fee_delta"`
}

// Settle computes the fee and payout for a game where the player staked
// stake and the house matched it.
//
// House wins: principal += stake - fee, fees += fee.
// Player wins: principal -= stake (the house's matching share), fees += fee,
// and the player receives 2*stake - fee.
func Settle(stake, feeBps int64, outcome Outcome) (Settlement, error) {
	if stake <= 0 || stake > math.MaxInt64/2 {
		return Settlement{}, apperror.ErrInvalidAmount()
	}
	if feeBps > MaxGameFeeBps {
		return Settlement{}, apperror.Validation("game fee rate must not exceed 5000 basis points")
	}
	outcome, err := ParseOutcome(string(outcome))
	if err != nil {
		return Settlement{}, err
	}

	pool := 2 * stake
	fee, err := ComputeFee(pool, feeBps)
	if err != nil {
		return Settlement{}, err
	}

	s := Settlement{
		Outcome:  outcome,
		Stake:    stake,
		Pool:     pool,
		Fee:      fee,
		Payout:   pool - fee,
		FeeDelta: fee,
	}
	if outcome == OutcomeHouseWins {
		s.PrincipalDelta = stake - fee
	} else {
		s.PrincipalDelta = -stake
	}
	return s, nil
}

// BalanceDelta is the change to the free principal when the game settles:
// the escrowed stake comes back plus the net result. It is 2*stake - fee when
// the house wins and zero when the player wins.
func (s Settlement) BalanceDelta() int64 {
	return s.Stake + s.PrincipalDelta
}

// HouseNet is the change in the treasury total caused by the settlement.
func (s Settlement) HouseNet() int64 {
	return s.PrincipalDelta + s.FeeDelta
}
