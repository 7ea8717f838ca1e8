package domain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AddressLength is the byte length of an account address.
const AddressLength = 32

// ed25519SchemeFlag prefixes the public key before hashing into an address.
const ed25519SchemeFlag byte = 0x00

// Address identifies an account, rendered as 0x followed by 64 lowercase hex chars.
type Address string

// ParseAddress normalizes and validates a hex address. Short forms such as
// "0x2" are left-padded with zeros to the full width.
func ParseAddress(s string) (Address, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(raw, "0x") {
		return "", fmt.Errorf("address %q: missing 0x prefix", s)
	}
	digits := raw[2:]
	if digits == "" || len(digits) > AddressLength*2 {
		return "", fmt.Errorf("address %q: invalid length", s)
	}
	digits = strings.Repeat("0", AddressLength*2-len(digits)) + digits
	if _, err := hex.DecodeString(digits); err != nil {
		return "", fmt.Errorf("address %q: %w", s, err)
	}
	return Address("0x" + digits), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromPublicKey derives the account address owned by an Ed25519 key:
// blake2b-256(flag || pubkey).
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, ed25519SchemeFlag)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return Address("0x" + hex.EncodeToString(sum[:]))
}

// IsZero reports whether the address is unset or the all-zero address.
func (a Address) IsZero() bool {
	if a == "" {
		return true
	}
	return strings.Trim(strings.TrimPrefix(string(a), "0x"), "0") == ""
}

func (a Address) String() string {
	return string(a)
}
