package domain

import "github.com/google/uuid"

// BuildSettlementKey constructs the idempotency key for a game's settlement.
func BuildSettlementKey(gameID uuid.UUID) string {
	return "settle:" + gameID.String()
}

// BuildChallengeKey constructs the key a login challenge is stored under.
func BuildChallengeKey(address Address, nonce string) string {
	return address.String() + ":" + nonce
}
