package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/internal/core/ports/mocks"
	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testFeeBps   = int64(100)
	testCacheTTL = time.Hour
)

type gameTestDeps struct {
	svc          *GameServiceImpl
	gameRepo     *mocks.MockGameRepository
	treasuryRepo *mocks.MockTreasuryRepository
	ledgerRepo   *mocks.MockLedgerRepository
	idempCache   *mocks.MockIdempotencyCache
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupGameService(t *testing.T) *gameTestDeps {
	ctrl := gomock.NewController(t)
	d := &gameTestDeps{
		gameRepo:     mocks.NewMockGameRepository(ctrl),
		treasuryRepo: mocks.NewMockTreasuryRepository(ctrl),
		ledgerRepo:   mocks.NewMockLedgerRepository(ctrl),
		idempCache:   mocks.NewMockIdempotencyCache(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewGameService(
		d.gameRepo, d.treasuryRepo, d.ledgerRepo, d.idempCache,
		d.transactor, testFeeBps, testCacheTTL, zerolog.Nop(),
	)
	return d
}

// openGame opens a game against tr, escrowing the house stake.
func openGame(t *testing.T, tr *domain.Treasury, stake int64) *domain.Game {
	t.Helper()
	g, err := domain.NewGame(tr, stranger, stake, testFeeBps, time.Now().UTC())
	require.NoError(t, err)
	return g
}

// settledGame builds a game already settled with outcome, leaving tr untouched.
func settledGame(t *testing.T, tr *domain.Treasury, stake int64, outcome domain.Outcome) (*domain.Game, domain.Settlement) {
	t.Helper()
	g := &domain.Game{
		ID:         uuid.New(),
		TreasuryID: tr.ID,
		Player:     stranger,
		Stake:      stake,
		FeeBps:     testFeeBps,
		Status:     domain.GameStatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
	s, err := g.Settlement(outcome)
	require.NoError(t, err)
	g.MarkSettled(s, time.Now().UTC())
	return g, s
}

// ==================== CreateGame Tests ====================

func TestGameService_CreateGame_Success(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	d.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	d.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	entry := expectLedger(ctx, d.ledgerRepo, tx)

	g, err := d.svc.CreateGame(ctx, ports.CreateGameRequest{TreasuryID: tr.ID, Player: stranger, Stake: 50})
	require.NoError(t, err)
	assert.Equal(t, tr.ID, g.TreasuryID)
	assert.Equal(t, int64(50), g.Stake)
	assert.Equal(t, testFeeBps, g.FeeBps)
	assert.Equal(t, domain.GameStatusOpen, g.Status)
	assert.Equal(t, int64(950), tr.Balance)
	assert.Equal(t, int64(50), tr.Escrowed)

	assert.Equal(t, domain.LedgerKindEscrow, entry.Kind)
	require.NotNil(t, entry.GameID)
	assert.Equal(t, g.ID, *entry.GameID)
	assert.Equal(t, stranger, entry.Actor)
	assert.Equal(t, int64(-50), entry.PrincipalDelta)
	assert.Equal(t, int64(50), entry.EscrowDelta)
	assert.Equal(t, int64(950), entry.BalanceAfter)
	assert.Equal(t, int64(50), entry.EscrowAfter)
}

func TestGameService_CreateGame_StakeOutOfBounds(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(10_000, 0)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)

	_, err := d.svc.CreateGame(ctx, ports.CreateGameRequest{TreasuryID: tr.ID, Player: stranger, Stake: 501})
	assertAppError(t, err, apperror.CodeStakeOutOfBounds)
	assert.Zero(t, tr.Escrowed)
}

func TestGameService_CreateGame_PrincipalExhausted(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)
	tr.Balance, tr.Escrowed = 20, 980

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	// No writes expected.

	_, err := d.svc.CreateGame(ctx, ports.CreateGameRequest{TreasuryID: tr.ID, Player: stranger, Stake: 50})
	assertAppError(t, err, apperror.CodeInsufficientBalance)
	assert.Equal(t, int64(20), tr.Balance)
	assert.Equal(t, int64(980), tr.Escrowed)
}

func TestGameService_CreateGame_TreasuryNotFound(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	_, err := d.svc.CreateGame(ctx, ports.CreateGameRequest{TreasuryID: id, Player: stranger, Stake: 50})
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestGameService_CreateGame_InvalidStake(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateGame(context.Background(), ports.CreateGameRequest{TreasuryID: uuid.New(), Player: stranger, Stake: 0})
	assertAppError(t, err, apperror.CodeInvalidAmount)
}

func TestGameService_GetGame_NotFound(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.gameRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.GetGame(ctx, id)
	assertAppError(t, err, apperror.CodeNotFound)
}

// ==================== SettleGame Tests ====================

func TestGameService_SettleGame_HouseWins(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)
	g := openGame(t, tr, 50)
	key := domain.BuildSettlementKey(g.ID)

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	d.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	d.gameRepo.EXPECT().Update(ctx, tx, g).Return(nil)
	entry := expectLedger(ctx, d.ledgerRepo, tx)
	d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), testCacheTTL).Return(nil)

	res, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomeHouseWins})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Settlement.Fee)
	assert.Equal(t, int64(99), res.Settlement.Payout)
	assert.Equal(t, int64(1049), res.Treasury.Balance)
	assert.Zero(t, res.Treasury.Escrowed)
	assert.Equal(t, int64(1), res.Treasury.FeeBalance)
	assert.True(t, res.Game.IsSettled())

	assert.Equal(t, domain.LedgerKindSettleHouseWin, entry.Kind)
	require.NotNil(t, entry.GameID)
	assert.Equal(t, g.ID, *entry.GameID)
	assert.Equal(t, int64(99), entry.PrincipalDelta)
	assert.Equal(t, int64(-50), entry.EscrowDelta)
	assert.Equal(t, int64(1), entry.FeeDelta)
}

func TestGameService_SettleGame_PlayerWins(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)
	g := openGame(t, tr, 50)
	key := domain.BuildSettlementKey(g.ID)

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	d.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	d.gameRepo.EXPECT().Update(ctx, tx, g).Return(nil)
	entry := expectLedger(ctx, d.ledgerRepo, tx)
	d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), testCacheTTL).Return(nil)

	res, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomePlayerWins})
	require.NoError(t, err)

	assert.Equal(t, int64(950), res.Treasury.Balance)
	assert.Zero(t, res.Treasury.Escrowed)
	assert.Equal(t, int64(1), res.Treasury.FeeBalance)
	assert.Equal(t, domain.LedgerKindSettleHouseLoss, entry.Kind)
	assert.Zero(t, entry.PrincipalDelta, "the escrow covers the whole house share")
	assert.Equal(t, int64(-50), entry.EscrowDelta)
}

func TestGameService_SettleGame_CacheFailureFallsThrough(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)
	g := openGame(t, tr, 50)
	key := domain.BuildSettlementKey(g.ID)

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, errors.New("redis down"))
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	d.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	d.gameRepo.EXPECT().Update(ctx, tx, g).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), testCacheTTL).Return(errors.New("redis down"))

	res, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomeHouseWins})
	require.NoError(t, err, "cache errors never fail a settlement")
	assert.True(t, res.Game.IsSettled())
}

func TestGameService_SettleGame_EscrowMissing(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)
	g := openGame(t, tr, 50)
	tr.Balance, tr.Escrowed = 40, 0

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	// No updates, ledger entry or cache write expected.

	_, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomePlayerWins})
	assertAppError(t, err, apperror.CodeInsufficientBalance)
	assert.Equal(t, int64(40), tr.Balance)
	assert.Zero(t, tr.FeeBalance)
	assert.False(t, g.IsSettled())
}

func TestGameService_SettleGame_NotOperator(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)
	g := openGame(t, tr, 50)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
	d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)

	_, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: stranger, Outcome: domain.OutcomeHouseWins})
	assertAppError(t, err, apperror.CodeCallerNotOperator)
	assert.False(t, g.IsSettled())
}

func TestGameService_SettleGame_GameNotFound(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	_, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: id, Caller: operator, Outcome: domain.OutcomeHouseWins})
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestGameService_SettleGame_InvalidOutcome(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.SettleGame(context.Background(), ports.SettleGameRequest{GameID: uuid.New(), Caller: operator, Outcome: "DRAW"})
	assertAppError(t, err, apperror.CodeInvalidOutcome)
}

func TestGameService_SettleGame_AlreadySettledInDB(t *testing.T) {
	tr := fundedTreasury(1049, 1)
	g, s := settledGame(t, tr, 50, domain.OutcomeHouseWins)

	t.Run("same outcome replays", func(t *testing.T) {
		d := setupGameService(t)
		ctx := context.Background()
		tx := &mockTx{}

		d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
		d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
		d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
		d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)

		res, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomeHouseWins})
		require.NoError(t, err)
		assert.Equal(t, s, res.Settlement)
		assert.Equal(t, int64(1049), res.Treasury.Balance, "replay applies nothing")
	})

	t.Run("different outcome rejected", func(t *testing.T) {
		d := setupGameService(t)
		ctx := context.Background()
		tx := &mockTx{}

		d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
		d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
		d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
		d.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)

		_, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomePlayerWins})
		assertAppError(t, err, apperror.CodeGameAlreadySettled)
	})
}

func TestGameService_SettleGame_CachedReplay(t *testing.T) {
	tr := fundedTreasury(1049, 1)
	g, s := settledGame(t, tr, 50, domain.OutcomeHouseWins)

	cached, err := json.Marshal(ports.SettleResult{Game: g, Settlement: s, Treasury: tr})
	require.NoError(t, err)

	tests := []struct {
		name    string
		caller  domain.Address
		outcome domain.Outcome
		code    string
	}{
		{"same outcome", operator, domain.OutcomeHouseWins, ""},
		{"different outcome", operator, domain.OutcomePlayerWins, apperror.CodeGameAlreadySettled},
		{"not operator", stranger, domain.OutcomeHouseWins, apperror.CodeCallerNotOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupGameService(t)
			ctx := context.Background()

			// Served from Redis: no transaction is opened.
			d.idempCache.EXPECT().Get(ctx, domain.BuildSettlementKey(g.ID)).Return(cached, nil)

			res, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: tt.caller, Outcome: tt.outcome})
			if tt.code != "" {
				assertAppError(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, s, res.Settlement)
			assert.Equal(t, g.ID, res.Game.ID)
		})
	}
}

func TestGameService_SettleGame_CorruptCache(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return([]byte("{not json"), nil)

	_, err := d.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: id, Caller: operator, Outcome: domain.OutcomeHouseWins})
	assertAppError(t, err, apperror.CodeInternal)
}


// ==================== Escrow Tests ====================

// A full withdraw leaves the escrow of open games behind, so a player win
// booked afterwards still settles and the treasury total stays conserved.
func TestGameService_WithdrawThenSettlePlayerWins(t *testing.T) {
	games := setupGameService(t)
	treasuries := setupTreasuryService(t)
	defer games.ctrl.Finish()
	defer treasuries.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	tr := fundedTreasury(1000, 0)

	// Open a game staked at 100.
	games.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	games.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	games.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	games.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	escrowEntry := expectLedger(ctx, games.ledgerRepo, tx)

	g, err := games.svc.CreateGame(ctx, ports.CreateGameRequest{TreasuryID: tr.ID, Player: stranger, Stake: 100})
	require.NoError(t, err)

	// Withdraw everything the operator can take.
	treasuries.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	treasuries.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	treasuries.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	withdrawEntry := expectLedger(ctx, treasuries.ledgerRepo, tx)

	withdrawn, err := treasuries.svc.Withdraw(ctx, tr.ID, operator)
	require.NoError(t, err)
	assert.Equal(t, int64(900), withdrawn.Amount)
	assert.Zero(t, tr.Balance)
	assert.Equal(t, int64(100), tr.Escrowed)

	// The player wins.
	games.idempCache.EXPECT().Get(ctx, domain.BuildSettlementKey(g.ID)).Return(nil, nil)
	games.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	games.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, g.ID).Return(g, nil)
	games.treasuryRepo.EXPECT().GetByIDForUpdate(ctx, tx, tr.ID).Return(tr, nil)
	games.treasuryRepo.EXPECT().Update(ctx, tx, tr).Return(nil)
	games.gameRepo.EXPECT().Update(ctx, tx, g).Return(nil)
	settleEntry := expectLedger(ctx, games.ledgerRepo, tx)
	games.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), testCacheTTL).Return(nil)

	res, err := games.svc.SettleGame(ctx, ports.SettleGameRequest{GameID: g.ID, Caller: operator, Outcome: domain.OutcomePlayerWins})
	require.NoError(t, err)
	assert.Equal(t, domain.GameStatusSettled, res.Game.Status)
	assert.Equal(t, int64(198), res.Settlement.Payout)
	assert.Zero(t, tr.Balance)
	assert.Zero(t, tr.Escrowed)
	assert.Equal(t, int64(2), tr.FeeBalance)

	// funded - withdrawn + house net == what the treasury still holds
	assert.Equal(t, int64(1000)-withdrawn.Amount+res.Settlement.HouseNet(), tr.Total())

	var principal, escrow, fees int64 = 1000, 0, 0
	for _, e := range []*domain.LedgerEntry{escrowEntry, withdrawEntry, settleEntry} {
		principal += e.PrincipalDelta
		escrow += e.EscrowDelta
		fees += e.FeeDelta
	}
	assert.Equal(t, tr.Balance, principal)
	assert.Equal(t, tr.Escrowed, escrow)
	assert.Equal(t, tr.FeeBalance, fees)
}
