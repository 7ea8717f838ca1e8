package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultChallengeTTL = 5 * time.Minute
	nonceBytes          = 16
)

// AuthServiceImpl implements ports.AuthService with signed one-time challenges.
type AuthServiceImpl struct {
	nonceStore   ports.NonceStore
	tokenSvc     ports.TokenService
	challengeTTL time.Duration
	log          zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	nonceStore ports.NonceStore,
	tokenSvc ports.TokenService,
	challengeTTL time.Duration,
	log zerolog.Logger,
) *AuthServiceImpl {
	if challengeTTL <= 0 {
		challengeTTL = defaultChallengeTTL
	}
	return &AuthServiceImpl{
		nonceStore:   nonceStore,
		tokenSvc:     tokenSvc,
		challengeTTL: challengeTTL,
		log:          log,
	}
}

// ChallengeMessage is the exact byte string a client signs to log in.
func ChallengeMessage(address domain.Address, nonce string) string {
	return fmt.Sprintf("house-treasury login\naddress: %s\nnonce: %s", address, nonce)
}

// Challenge issues a single-use nonce for address.
func (s *AuthServiceImpl) Challenge(ctx context.Context, address domain.Address) (*ports.Challenge, error) {
	if address.IsZero() {
		return nil, apperror.Validation("address is required")
	}

	nonce, err := generateRandomHex(nonceBytes)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate nonce: %w", err))
	}

	if err := s.nonceStore.Put(ctx, domain.BuildChallengeKey(address, nonce), s.challengeTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store challenge: %w", err))
	}

	return &ports.Challenge{
		Address:   address,
		Nonce:     nonce,
		Message:   ChallengeMessage(address, nonce),
		ExpiresAt: time.Now().UTC().Add(s.challengeTTL),
	}, nil
}

// Login verifies the signed challenge and returns a JWT for the key's address.
// The challenge is consumed only after the signature checks out.
func (s *AuthServiceImpl) Login(ctx context.Context, req ports.LoginRequest) (string, time.Time, error) {
	if len(req.PublicKey) != ed25519.PublicKeySize {
		return "", time.Time{}, apperror.Validation("public key must be 32 bytes")
	}
	if len(req.Signature) != ed25519.SignatureSize {
		return "", time.Time{}, apperror.ErrInvalidSignature()
	}

	pub := ed25519.PublicKey(req.PublicKey)
	address := domain.AddressFromPublicKey(pub)

	if !ed25519.Verify(pub, []byte(ChallengeMessage(address, req.Nonce)), req.Signature) {
		return "", time.Time{}, apperror.ErrInvalidSignature()
	}

	ok, err := s.nonceStore.Consume(ctx, domain.BuildChallengeKey(address, req.Nonce))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("consume challenge: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrChallengeExpired()
	}

	token, expiry, err := s.tokenSvc.Generate(address)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("address", address.String()).Msg("login succeeded")

	return token, expiry, nil
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
