package service

import (
	"context"
	"fmt"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TreasuryServiceImpl implements ports.TreasuryService.
type TreasuryServiceImpl struct {
	treasuryRepo ports.TreasuryRepository
	ledgerRepo   ports.LedgerRepository
	transactor   ports.DBTransactor
	bounds       domain.StakeBounds
	log          zerolog.Logger
}

// NewTreasuryService creates a new TreasuryServiceImpl. bounds are applied to
// every newly initialized treasury.
func NewTreasuryService(
	treasuryRepo ports.TreasuryRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	bounds domain.StakeBounds,
	log zerolog.Logger,
) *TreasuryServiceImpl {
	return &TreasuryServiceImpl{
		treasuryRepo: treasuryRepo,
		ledgerRepo:   ledgerRepo,
		transactor:   transactor,
		bounds:       bounds,
		log:          log,
	}
}

// mutation applies a change to a locked treasury and describes it for the ledger.
type mutation func(t *domain.Treasury) (kind domain.LedgerKind, principalDelta, feeDelta int64, err error)

// Initialize funds a new treasury. The operator defaults to the caller.
func (s *TreasuryServiceImpl) Initialize(ctx context.Context, req ports.InitializeRequest) (*domain.Treasury, error) {
	operator := req.Operator
	if operator.IsZero() {
		operator = req.Caller
	}

	now := time.Now().UTC()
	treasury, err := domain.NewTreasury(req.InitialFunds, operator, s.bounds, now)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.treasuryRepo.Create(ctx, dbTx, treasury); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create treasury: %w", err))
	}

	entry := domain.NewLedgerEntry(treasury, domain.LedgerKindFund, req.Caller, req.InitialFunds, 0, now)
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("treasury_id", treasury.ID.String()).
		Str("operator", operator.String()).
		Int64("amount", req.InitialFunds).
		Msg("treasury initialized")

	return treasury, nil
}

// Get returns the treasury's current state. Reads require no authorization.
func (s *TreasuryServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Treasury, error) {
	treasury, err := s.treasuryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get treasury: %w", err))
	}
	if treasury == nil {
		return nil, apperror.ErrNotFound("treasury")
	}
	return treasury, nil
}

// TopUp adds to the principal. Any authenticated caller may top up.
func (s *TreasuryServiceImpl) TopUp(ctx context.Context, req ports.TopUpRequest) (*domain.Treasury, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	treasury, err := s.apply(ctx, req.TreasuryID, req.Caller, func(t *domain.Treasury) (domain.LedgerKind, int64, int64, error) {
		if err := t.TopUp(req.Amount); err != nil {
			return "", 0, 0, err
		}
		return domain.LedgerKindTopUp, req.Amount, 0, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("treasury_id", treasury.ID.String()).
		Int64("amount", req.Amount).
		Int64("balance", treasury.Balance).
		Msg("treasury topped up")

	return treasury, nil
}

// Withdraw moves the whole principal to the operator.
func (s *TreasuryServiceImpl) Withdraw(ctx context.Context, treasuryID uuid.UUID, caller domain.Address) (*ports.TransferResult, error) {
	var amount int64
	treasury, err := s.apply(ctx, treasuryID, caller, func(t *domain.Treasury) (domain.LedgerKind, int64, int64, error) {
		var err error
		amount, err = t.Withdraw(caller)
		if err != nil {
			return "", 0, 0, err
		}
		return domain.LedgerKindWithdraw, -amount, 0, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("treasury_id", treasury.ID.String()).
		Int64("amount", amount).
		Msg("principal withdrawn")

	return &ports.TransferResult{Amount: amount, Recipient: treasury.Operator, Treasury: treasury}, nil
}

// ClaimFees moves the whole fee balance to the operator.
func (s *TreasuryServiceImpl) ClaimFees(ctx context.Context, treasuryID uuid.UUID, caller domain.Address) (*ports.TransferResult, error) {
	var amount int64
	treasury, err := s.apply(ctx, treasuryID, caller, func(t *domain.Treasury) (domain.LedgerKind, int64, int64, error) {
		var err error
		amount, err = t.ClaimFees(caller)
		if err != nil {
			return "", 0, 0, err
		}
		return domain.LedgerKindClaimFees, 0, -amount, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("treasury_id", treasury.ID.String()).
		Int64("amount", amount).
		Msg("fees claimed")

	return &ports.TransferResult{Amount: amount, Recipient: treasury.Operator, Treasury: treasury}, nil
}

// UpdateMinStake sets the lower stake bound.
func (s *TreasuryServiceImpl) UpdateMinStake(ctx context.Context, req ports.StakeBoundRequest) (*domain.Treasury, error) {
	treasury, err := s.apply(ctx, req.TreasuryID, req.Caller, func(t *domain.Treasury) (domain.LedgerKind, int64, int64, error) {
		if err := t.UpdateMinStake(req.Caller, req.Value); err != nil {
			return "", 0, 0, err
		}
		return domain.LedgerKindUpdateMinStake, 0, 0, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("treasury_id", treasury.ID.String()).
		Int64("min_stake", treasury.MinStake).
		Msg("min stake updated")

	return treasury, nil
}

// UpdateMaxStake sets the upper stake bound.
func (s *TreasuryServiceImpl) UpdateMaxStake(ctx context.Context, req ports.StakeBoundRequest) (*domain.Treasury, error) {
	treasury, err := s.apply(ctx, req.TreasuryID, req.Caller, func(t *domain.Treasury) (domain.LedgerKind, int64, int64, error) {
		if err := t.UpdateMaxStake(req.Caller, req.Value); err != nil {
			return "", 0, 0, err
		}
		return domain.LedgerKindUpdateMaxStake, 0, 0, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("treasury_id", treasury.ID.String()).
		Int64("max_stake", treasury.MaxStake).
		Msg("max stake updated")

	return treasury, nil
}

// ListLedger returns a page of the treasury's ledger, newest first.
func (s *TreasuryServiceImpl) ListLedger(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if _, err := s.Get(ctx, params.TreasuryID); err != nil {
		return nil, 0, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	return entries, total, nil
}

// apply runs fn against the treasury under a row lock and persists the result
// together with one ledger entry. Nothing is written when fn fails.
func (s *TreasuryServiceImpl) apply(ctx context.Context, id uuid.UUID, actor domain.Address, fn mutation) (*domain.Treasury, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	treasury, err := s.lockTreasury(ctx, dbTx, id)
	if err != nil {
		return nil, err
	}

	kind, principalDelta, feeDelta, err := fn(treasury)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	treasury.UpdatedAt = now

	if err := s.treasuryRepo.Update(ctx, dbTx, treasury); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update treasury: %w", err))
	}

	entry := domain.NewLedgerEntry(treasury, kind, actor, principalDelta, feeDelta, now)
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return treasury, nil
}

func (s *TreasuryServiceImpl) lockTreasury(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Treasury, error) {
	treasury, err := s.treasuryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
	}
	if treasury == nil {
		return nil, apperror.ErrNotFound("treasury")
	}
	return treasury, nil
}
