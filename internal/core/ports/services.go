package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
)

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(address domain.Address) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Address domain.Address
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore keeps outstanding login challenges.
type NonceStore interface {
	// Put stores a challenge for key until ttl elapses.
	Put(ctx context.Context, key string, ttl time.Duration) error
	// Consume atomically removes the challenge. Returns false if it was
	// never issued, already used or expired.
	Consume(ctx context.Context, key string) (bool, error)
}

// --- Service Ports (Business Logic) ---

// TreasuryService defines the treasury business logic.
type TreasuryService interface {
	Initialize(ctx context.Context, req InitializeRequest) (*domain.Treasury, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Treasury, error)
	TopUp(ctx context.Context, req TopUpRequest) (*domain.Treasury, error)
	Withdraw(ctx context.Context, treasuryID uuid.UUID, caller domain.Address) (*TransferResult, error)
	ClaimFees(ctx context.Context, treasuryID uuid.UUID, caller domain.Address) (*TransferResult, error)
	UpdateMinStake(ctx context.Context, req StakeBoundRequest) (*domain.Treasury, error)
	UpdateMaxStake(ctx context.Context, req StakeBoundRequest) (*domain.Treasury, error)
	ListLedger(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// InitializeRequest holds validated input for funding a new treasury.
type InitializeRequest struct {
	InitialFunds int64
	Operator     domain.Address
	Caller       domain.Address
}

// TopUpRequest holds validated input for a top-up.
type TopUpRequest struct {
	TreasuryID uuid.UUID
	Amount     int64
	Caller     domain.Address
}

// StakeBoundRequest holds validated input for a stake bound update.
type StakeBoundRequest struct {
	TreasuryID uuid.UUID
	Caller     domain.Address
	Value      int64
}

// TransferResult is the outcome of moving funds out of a treasury.
type TransferResult struct {
	Amount    int64            `json:"amount"`
	Recipient domain.Address   `json:"recipient"`
	Treasury  *domain.Treasury `json:"treasury"`
}

// GameService defines the game lifecycle business logic.
type GameService interface {
	CreateGame(ctx context.Context, req CreateGameRequest) (*domain.Game, error)
	SettleGame(ctx context.Context, req SettleGameRequest) (*SettleResult, error)
	GetGame(ctx context.Context, id uuid.UUID) (*domain.Game, error)
}

// CreateGameRequest holds validated input for opening a game.
type CreateGameRequest struct {
	TreasuryID uuid.UUID
	Player     domain.Address
	Stake      int64
}

// SettleGameRequest holds validated input for settling a game.
type SettleGameRequest struct {
	GameID  uuid.UUID
	Caller  domain.Address
	Outcome domain.Outcome
}

// SettleResult is returned for fresh and replayed settlements alike.
type SettleResult struct {
	Game       *domain.Game      `json:"game"`
	Settlement domain.Settlement `json:"settlement"`
	Treasury   *domain.Treasury  `json:"treasury"`
}

// ReportingService defines dashboard/reporting business logic.
type ReportingService interface {
	GetTreasuryStats(ctx context.Context, treasuryID uuid.UUID, period string) (*TreasuryStats, error)
}

// AuthService defines address-based authentication.
type AuthService interface {
	Challenge(ctx context.Context, address domain.Address) (*Challenge, error)
	Login(ctx context.Context, req LoginRequest) (string, time.Time, error) // token, expiry, error
}

// Challenge is a one-time message the caller must sign to log in.
type Challenge struct {
	Address   domain.Address `json:"address"`
	Nonce     string         `json:"nonce"`
	Message   string         `json:"message"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// LoginRequest holds the signed challenge.
type LoginRequest struct {
	PublicKey []byte
	Nonce     string
	Signature []byte
}
