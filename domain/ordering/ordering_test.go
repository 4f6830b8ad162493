package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetween_BothEmpty(t *testing.T) {
	key, err := Between("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKey, key)
}

func TestBetween_OnlyAfter(t *testing.T) {
	key, err := Between("", "1000")
	require.NoError(t, err)
	assert.Equal(t, "999", key)
}

func TestBetween_OnlyBefore(t *testing.T) {
	key, err := Between("1000", "")
	require.NoError(t, err)
	assert.Equal(t, "1001", key)
}

func TestBetween_Mean(t *testing.T) {
	key, err := Between("1000", "2000")
	require.NoError(t, err)
	assert.Equal(t, "1500", key)
}

func TestBetween_Inversion(t *testing.T) {
	// Inversions are the caller's responsibility; the function still must
	// be deterministic rather than erroring out.
	key, err := Between("2000", "1000")
	require.NoError(t, err)
	assert.Equal(t, "1500", key)
}

func TestBetween_InvalidKey(t *testing.T) {
	_, err := Between("not-a-number", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestBetween_BisectionDepth(t *testing.T) {
	before, after := "0", "1"
	seen := map[string]bool{before: true, after: true}
	for i := 0; i < 40; i++ {
		mid, err := Between(before, after)
		require.NoError(t, err)
		require.False(t, seen[mid], "collision at bisection depth %d", i)
		seen[mid] = true
		after = mid
	}
}

func TestRebalance(t *testing.T) {
	keys := Rebalance(5)
	require.Len(t, keys, 5)
	seen := map[string]bool{}
	for _, k := range keys {
		require.False(t, seen[k])
		seen[k] = true
	}
}
