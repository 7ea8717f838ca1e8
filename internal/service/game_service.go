package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSettleCacheTTL = 24 * time.Hour

// GameServiceImpl implements ports.GameService.
type GameServiceImpl struct {
	gameRepo     ports.GameRepository
	treasuryRepo ports.TreasuryRepository
	ledgerRepo   ports.LedgerRepository
	idempCache   ports.IdempotencyCache
	transactor   ports.DBTransactor
	feeBps       int64
	cacheTTL     time.Duration
	log          zerolog.Logger
}

// NewGameService creates a new GameServiceImpl. feeBps is stamped on every new
// game; settled results are cached for cacheTTL.
func NewGameService(
	gameRepo ports.GameRepository,
	treasuryRepo ports.TreasuryRepository,
	ledgerRepo ports.LedgerRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	feeBps int64,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *GameServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = defaultSettleCacheTTL
	}
	return &GameServiceImpl{
		gameRepo:     gameRepo,
		treasuryRepo: treasuryRepo,
		ledgerRepo:   ledgerRepo,
		idempCache:   idempCache,
		transactor:   transactor,
		feeBps:       feeBps,
		cacheTTL:     cacheTTL,
		log:          log,
	}
}

// CreateGame opens a game against a treasury and escrows the house's matching
// stake. The treasury row is locked so concurrent games never escrow the same
// principal twice.
func (s *GameServiceImpl) CreateGame(ctx context.Context, req ports.CreateGameRequest) (*domain.Game, error) {
	if req.Stake <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	treasury, err := s.treasuryRepo.GetByIDForUpdate(ctx, dbTx, req.TreasuryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
	}
	if treasury == nil {
		return nil, apperror.ErrNotFound("treasury")
	}

	now := time.Now().UTC()
	game, err := domain.NewGame(treasury, req.Player, req.Stake, s.feeBps, now)
	if err != nil {
		return nil, err
	}
	treasury.UpdatedAt = now

	if err := s.treasuryRepo.Update(ctx, dbTx, treasury); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update treasury: %w", err))
	}
	if err := s.gameRepo.Create(ctx, dbTx, game); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create game: %w", err))
	}
	if err := s.ledgerRepo.Create(ctx, dbTx, domain.NewEscrowLedgerEntry(treasury, game, req.Player, now)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("game_id", game.ID.String()).
		Str("treasury_id", treasury.ID.String()).
		Str("player", game.Player.String()).
		Int64("stake", game.Stake).
		Int64("escrowed", treasury.Escrowed).
		Msg("game created")

	return game, nil
}

// GetGame returns a game by id.
func (s *GameServiceImpl) GetGame(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get game: %w", err))
	}
	if game == nil {
		return nil, apperror.ErrNotFound("game")
	}
	return game, nil
}

// SettleGame books the outcome of a game against its treasury.
//
// A repeated request with the same outcome replays the original result; a
// request with a different outcome for a settled game fails with
// GameAlreadySettled.
func (s *GameServiceImpl) SettleGame(ctx context.Context, req ports.SettleGameRequest) (*ports.SettleResult, error) {
	outcome, err := domain.ParseOutcome(string(req.Outcome))
	if err != nil {
		return nil, err
	}

	idempKey := domain.BuildSettlementKey(req.GameID)

	// Layer 1: Redis replay
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis settlement lookup failed, falling through to DB")
	}
	if cached != nil {
		result, err := s.unmarshalCachedResult(cached)
		if err != nil {
			return nil, err
		}
		if err := result.Treasury.AuthorizeOperator(req.Caller); err != nil {
			return nil, err
		}
		if result.Settlement.Outcome != outcome {
			return nil, apperror.ErrGameAlreadySettled()
		}
		return result, nil
	}

	// Layer 2: DB state under lock
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	game, err := s.gameRepo.GetByIDForUpdate(ctx, dbTx, req.GameID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock game: %w", err))
	}
	if game == nil {
		return nil, apperror.ErrNotFound("game")
	}

	treasury, err := s.treasuryRepo.GetByIDForUpdate(ctx, dbTx, game.TreasuryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
	}
	if treasury == nil {
		return nil, apperror.ErrNotFound("treasury")
	}

	if err := treasury.AuthorizeOperator(req.Caller); err != nil {
		return nil, err
	}

	if game.IsSettled() {
		prior, ok := game.Result()
		if !ok || prior.Outcome != outcome {
			return nil, apperror.ErrGameAlreadySettled()
		}
		return &ports.SettleResult{Game: game, Settlement: prior, Treasury: treasury}, nil
	}

	settlement, err := game.Settlement(outcome)
	if err != nil {
		return nil, err
	}
	if err := treasury.ApplySettlement(settlement); err != nil {
		s.log.Error().
			Str("game_id", game.ID.String()).
			Str("treasury_id", treasury.ID.String()).
			Int64("escrowed", treasury.Escrowed).
			Int64("stake", game.Stake).
			Msg("treasury escrow cannot cover settlement")
		return nil, err
	}

	now := time.Now().UTC()
	game.MarkSettled(settlement, now)
	treasury.UpdatedAt = now

	if err := s.treasuryRepo.Update(ctx, dbTx, treasury); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update treasury: %w", err))
	}
	if err := s.gameRepo.Update(ctx, dbTx, game); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update game: %w", err))
	}

	entry := domain.NewSettlementLedgerEntry(treasury, game, settlement, req.Caller, now)
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.SettleResult{Game: game, Settlement: settlement, Treasury: treasury}

	// Post-process: cache in Redis (best-effort)
	if respJSON, err := json.Marshal(result); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to marshal settlement for cache")
	} else if err := s.idempCache.Set(ctx, idempKey, respJSON, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache settlement in redis")
	}

	s.log.Info().
		Str("game_id", game.ID.String()).
		Str("treasury_id", treasury.ID.String()).
		Str("outcome", string(outcome)).
		Int64("fee", settlement.Fee).
		Int64("payout", settlement.Payout).
		Msg("game settled")

	return result, nil
}

// unmarshalCachedResult deserializes a cached settlement.
func (s *GameServiceImpl) unmarshalCachedResult(data []byte) (*ports.SettleResult, error) {
	result := &ports.SettleResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached settlement: %w", err))
	}
	if result.Treasury == nil || result.Game == nil {
		return nil, apperror.InternalError(errors.New("cached settlement is incomplete"))
	}
	return result, nil
}
