package domain

import (
	"math"
	"time"

	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
)

// Default stake bounds applied when a treasury is initialized without explicit bounds.
const (
	DefaultMinStake int64 = 1
	DefaultMaxStake int64 = 500
)

// StakeBounds is the inclusive [Min, Max] range a new game's stake must satisfy.
type StakeBounds struct {
	Min int64
	Max int64
}

// DefaultStakeBounds returns the bounds used when none are configured.
func DefaultStakeBounds() StakeBounds {
	return StakeBounds{Min: DefaultMinStake, Max: DefaultMaxStake}
}

// Validate checks 0 <= Min <= Max.
func (b StakeBounds) Validate() error {
	if b.Min < 0 || b.Min > b.Max {
		return apperror.ErrInvalidStakeBounds(b.Min, b.Max)
	}
	return nil
}

// Treasury is the house's pooled funds backing every game played against it.
//
// Balance (principal), Escrowed and FeeBalance are tracked separately.
// Escrowed holds the house's matching stake for every open game; it leaves
// Balance when a game opens and is released when the game settles, so
// withdrawing the principal never strands an open game. Only Operator may
// move funds out or change the stake bounds. All amounts are in the smallest
// currency unit and never negative.
type Treasury struct {
	ID         uuid.UUID `json:"id"`
	Operator   Address   `json:"operator"`
	Balance    int64     `json:"balance"`
	Escrowed   int64     `json:"escrowed"`
	FeeBalance int64     `json:"fee_balance"`
	MinStake   int64     `json:"min_stake"`
	MaxStake   int64     `json:"max_stake"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewTreasury initializes a treasury funded with initialFunds and owned by operator.
// Zero funding is rejected with InsufficientBalance.
func NewTreasury(initialFunds int64, operator Address, bounds StakeBounds, now time.Time) (*Treasury, error) {
	if initialFunds == 0 {
		return nil, apperror.ErrInsufficientBalance()
	}
	if initialFunds < 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if operator.IsZero() {
		return nil, apperror.Validation("operator address is required")
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	return &Treasury{
		ID:         uuid.New(),
		Operator:   operator,
		Balance:    initialFunds,
		FeeBalance: 0,
		MinStake:   bounds.Min,
		MaxStake:   bounds.Max,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AuthorizeOperator fails with CallerNotOperator unless caller is the operator.
func (t *Treasury) AuthorizeOperator(caller Address) error {
	if caller.IsZero() || caller != t.Operator {
		return apperror.ErrCallerNotOperator()
	}
	return nil
}

// TopUp adds amount to the principal. Anyone may top up.
func (t *Treasury) TopUp(amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if t.Balance > math.MaxInt64-amount {
		return apperror.ErrInvalidAmount()
	}
	t.Balance += amount
	return nil
}

// Withdraw moves the entire principal to the operator and returns the amount.
// Stakes escrowed for open games stay behind.
func (t *Treasury) Withdraw(caller Address) (int64, error) {
	if err := t.AuthorizeOperator(caller); err != nil {
		return 0, err
	}
	amount := t.Balance
	t.Balance = 0
	return amount, nil
}

// ClaimFees moves the entire fee balance to the operator and returns the amount.
// Principal is untouched.
func (t *Treasury) ClaimFees(caller Address) (int64, error) {
	if err := t.AuthorizeOperator(caller); err != nil {
		return 0, err
	}
	amount := t.FeeBalance
	t.FeeBalance = 0
	return amount, nil
}

// UpdateMinStake sets the lower stake bound. A value above MaxStake is rejected.
func (t *Treasury) UpdateMinStake(caller Address, v int64) error {
	if err := t.AuthorizeOperator(caller); err != nil {
		return err
	}
	if err := (StakeBounds{Min: v, Max: t.MaxStake}).Validate(); err != nil {
		return err
	}
	t.MinStake = v
	return nil
}

// UpdateMaxStake sets the upper stake bound. A value below MinStake is rejected.
func (t *Treasury) UpdateMaxStake(caller Address, v int64) error {
	if err := t.AuthorizeOperator(caller); err != nil {
		return err
	}
	if err := (StakeBounds{Min: t.MinStake, Max: v}).Validate(); err != nil {
		return err
	}
	t.MaxStake = v
	return nil
}

// CheckStake fails with StakeOutOfBounds unless MinStake <= stake <= MaxStake.
func (t *Treasury) CheckStake(stake int64) error {
	if stake < t.MinStake || stake > t.MaxStake {
		return apperror.ErrStakeOutOfBounds(stake, t.MinStake, t.MaxStake)
	}
	return nil
}

// Escrow moves the house's matching stake for a new game out of the
// principal. The stake must be within bounds and covered by the principal.
func (t *Treasury) Escrow(stake int64) error {
	if stake <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if err := t.CheckStake(stake); err != nil {
		return err
	}
	if stake > t.Balance {
		return apperror.ErrInsufficientBalance()
	}
	t.Balance -= stake
	t.Escrowed += stake
	return nil
}

// ApplySettlement books a settled game against the treasury: the game's
// escrowed stake is released and the principal changes by s.BalanceDelta().
// It is all or nothing.
func (t *Treasury) ApplySettlement(s Settlement) error {
	if s.Stake <= 0 || s.FeeDelta < 0 || t.FeeBalance > math.MaxInt64-s.FeeDelta {
		return apperror.ErrInvalidAmount()
	}
	if t.Escrowed < s.Stake {
		return apperror.ErrInsufficientBalance()
	}
	delta := s.BalanceDelta()
	if delta < 0 {
		return apperror.ErrInvalidAmount()
	}
	if t.Balance > math.MaxInt64-delta {
		return apperror.ErrInvalidAmount()
	}
	t.Escrowed -= s.Stake
	t.Balance += delta
	t.FeeBalance += s.FeeDelta
	return nil
}

// Bounds returns the current stake bounds.
func (t *Treasury) Bounds() StakeBounds {
	return StakeBounds{Min: t.MinStake, Max: t.MaxStake}
}

// Total is principal plus escrowed stakes plus fees.
func (t *Treasury) Total() int64 {
	return t.Balance + t.Escrowed + t.FeeBalance
}
