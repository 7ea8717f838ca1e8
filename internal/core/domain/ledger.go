package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerKind represents the kind of treasury movement.
type LedgerKind string

const (
	LedgerKindFund            LedgerKind = "FUND"
	LedgerKindTopUp           LedgerKind = "TOPUP"
	LedgerKindWithdraw        LedgerKind = "WITHDRAW"
	LedgerKindClaimFees       LedgerKind = "CLAIM_FEES"
	LedgerKindEscrow          LedgerKind = "ESCROW"
	LedgerKindSettleHouseWin  LedgerKind = "SETTLE_HOUSE_WIN"
	LedgerKindSettleHouseLoss LedgerKind = "SETTLE_HOUSE_LOSS"
	LedgerKindUpdateMinStake  LedgerKind = "UPDATE_MIN_STAKE"
	LedgerKindUpdateMaxStake  LedgerKind = "UPDATE_MAX_STAKE"
)

// LedgerEntry is an immutable record of one treasury mutation. Summing
// PrincipalDelta, EscrowDelta and FeeDelta over a treasury's entries yields
// its balances.
type LedgerEntry struct {
	ID              uuid.UUID  `json:"id"`
	TreasuryID      uuid.UUID  `json:"treasury_id"`
	GameID          *uuid.UUID `json:"game_id,omitempty"`
	Kind            LedgerKind `json:"kind"`
	Actor           Address    `json:"actor"`
	PrincipalDelta  int64      `json:"principal_delta"`
	EscrowDelta     int64      `json:"escrow_delta"`
	FeeDelta        int64      `json:"fee_delta"`
	BalanceAfter    int64      `json:"balance_after"`
	EscrowAfter     int64      `json:"escrow_after"`
	FeeBalanceAfter int64      `json:"fee_balance_after"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewLedgerEntry snapshots t after a mutation described by the deltas.
func NewLedgerEntry(t *Treasury, kind LedgerKind, actor Address, principalDelta, feeDelta int64, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:              uuid.New(),
		TreasuryID:      t.ID,
		Kind:            kind,
		Actor:           actor,
		PrincipalDelta:  principalDelta,
		FeeDelta:        feeDelta,
		BalanceAfter:    t.Balance,
		EscrowAfter:     t.Escrowed,
		FeeBalanceAfter: t.FeeBalance,
		CreatedAt:       now,
	}
}

// NewEscrowLedgerEntry records the house stake moved into escrow when g opened.
func NewEscrowLedgerEntry(t *Treasury, g *Game, actor Address, now time.Time) *LedgerEntry {
	e := NewLedgerEntry(t, LedgerKindEscrow, actor, -g.Stake, 0, now)
	e.GameID = &g.ID
	e.EscrowDelta = g.Stake
	return e
}

// NewSettlementLedgerEntry records g's settlement: the escrow is released and
// the principal and fee balance move by the settlement's deltas.
func NewSettlementLedgerEntry(t *Treasury, g *Game, s Settlement, actor Address, now time.Time) *LedgerEntry {
	e := NewLedgerEntry(t, SettlementLedgerKind(s.Outcome), actor, s.BalanceDelta(), s.FeeDelta, now)
	e.GameID = &g.ID
	e.EscrowDelta = -s.Stake
	return e
}

// IsSettlement returns true for the entry that books a game's outcome.
func (k LedgerKind) IsSettlement() bool {
	return k == LedgerKindSettleHouseWin || k == LedgerKindSettleHouseLoss
}

// SettlementLedgerKind maps an outcome to its ledger kind.
func SettlementLedgerKind(o Outcome) LedgerKind {
	if o == OutcomeHouseWins {
		return LedgerKindSettleHouseWin
	}
	return LedgerKindSettleHouseLoss
}

// IsOutflow returns true for entries that move funds to the operator.
func (e *LedgerEntry) IsOutflow() bool {
	return e.Kind == LedgerKindWithdraw || e.Kind == LedgerKindClaimFees
}
