package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := SettleGameRequest{Outcome: "  HOUSE_WINS \n"}
	SanitizeStruct(&req)
	assert.Equal(t, "HOUSE_WINS", req.Outcome)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := SettleGameRequest{Outcome: "<script>alert('x')</script>"}
	SanitizeStruct(&req)
	assert.Contains(t, req.Outcome, "&lt;script&gt;")
	assert.NotContains(t, req.Outcome, "<script>")
}

func TestSanitizeStruct_LeavesNonStringsAlone(t *testing.T) {
	stake := int64(50)
	req := CreateGameRequest{Player: " 0xb0b ", Stake: &stake}
	SanitizeStruct(&req)
	assert.Equal(t, "0xb0b", req.Player)
	assert.Equal(t, int64(50), *req.Stake)
}

func TestSanitizeStruct_IgnoresNonStructs(t *testing.T) {
	s := "  x  "
	SanitizeStruct(&s)
	SanitizeStruct(nil)
	assert.Equal(t, "  x  ", s)
}

func TestAddressValidator(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"short form", "0x2", true},
		{"full width", "0x" + "ab" + "00000000000000000000000000000000000000000000000000000000000000", true},
		{"upper case hex", "0xABCDEF", true},
		{"missing prefix", "abcdef", false},
		{"non hex", "0xzz", false},
		{"bare prefix", "0x", false},
		{"too long", "0x" + "1" + "0000000000000000000000000000000000000000000000000000000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&ChallengeRequest{Address: tt.address})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestOptionalAddress(t *testing.T) {
	stake := int64(1)
	assert.NoError(t, binding.Validator.ValidateStruct(&CreateGameRequest{Stake: &stake}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateGameRequest{Player: "nope", Stake: &stake}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateGameRequest{}), "stake is required")
}
