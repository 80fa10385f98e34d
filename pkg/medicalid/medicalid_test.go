package medicalid

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := Generate()
		assert.Len(t, id, Length)
		assert.True(t, IsValid(id), "generated ID %q must validate", id)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(Alphabet, c), "character %q outside safe alphabet", c)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"9XF3A", true},
		{"abcde", true},
		{"A2c4Z", true},
		{"O0IL1", true}, // pattern check only, no safe-alphabet exclusion
		{"", false},
		{"ABCD", false},
		{"ABCDEF", false},
		{"AB CD", false},
		{"AB-CD", false},
		{"ABC4é", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValid(tt.candidate), "IsValid(%q)", tt.candidate)
	}
}

func TestGenerateCollisionRate(t *testing.T) {
	// 10k draws from a 32^5 (~33.5M) space; expect at most a handful of
	// collisions, and certainly not a degenerate generator.
	seen := make(map[string]struct{}, 10000)
	collisions := 0
	for i := 0; i < 10000; i++ {
		id := Generate()
		if _, ok := seen[id]; ok {
			collisions++
		}
		seen[id] = struct{}{}
	}
	assert.LessOrEqual(t, collisions, 5, "collision rate inconsistent with 32^5 space")
}

func TestNewReferralCode(t *testing.T) {
	code := NewReferralCode()
	require.True(t, strings.HasPrefix(code, ReferralCodePrefix))
	assert.True(t, IsValid(strings.TrimPrefix(code, ReferralCodePrefix)))
}

func TestGenerateUnique(t *testing.T) {
	t.Run("first attempt free", func(t *testing.T) {
		id, err := GenerateUnique(context.Background(), func(ctx context.Context, id string) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.True(t, IsValid(id))
	})

	t.Run("retries on collision", func(t *testing.T) {
		calls := 0
		id, err := GenerateUnique(context.Background(), func(ctx context.Context, id string) (bool, error) {
			calls++
			return calls < 3, nil
		})
		require.NoError(t, err)
		assert.True(t, IsValid(id))
		assert.Equal(t, 3, calls)
	})

	t.Run("exhaustion is fatal", func(t *testing.T) {
		calls := 0
		_, err := GenerateUnique(context.Background(), func(ctx context.Context, id string) (bool, error) {
			calls++
			return true, nil
		})
		require.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, MaxAttempts, calls)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		boom := fmt.Errorf("connection reset")
		_, err := GenerateUnique(context.Background(), func(ctx context.Context, id string) (bool, error) {
			return false, boom
		})
		require.ErrorIs(t, err, boom)
	})
}
