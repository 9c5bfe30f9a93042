package ordernumber_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/ordernumber"
)

func TestSequenceStartsAtOne(t *testing.T) {
	got, err := ordernumber.Next(2025, "")
	require.NoError(t, err)
	assert.Equal(t, "2025/0001", got)
}

func TestSequenceIsStrictlyIncreasing(t *testing.T) {
	last := ""
	for i := 1; i <= 25; i++ {
		next, err := ordernumber.Next(2025, last)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("2025/%04d", i), next)
		assert.True(t, ordernumber.Valid(next))
		if last != "" {
			assert.Greater(t, next, last)
		}
		last = next
	}
}

func TestNewYearResetsSequence(t *testing.T) {
	got, err := ordernumber.Next(2026, "2025/0417")
	require.NoError(t, err)
	assert.Equal(t, "2026/0001", got)
}

func TestNextRejectsMalformedInput(t *testing.T) {
	_, err := ordernumber.Next(2025, "2025/01")
	assert.Error(t, err)
}

func TestSequenceExhaustion(t *testing.T) {
	_, err := ordernumber.Next(2025, "2025/9999")
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, ordernumber.Valid("2025/0001"))
	assert.False(t, ordernumber.Valid("2025-0001"))
	assert.False(t, ordernumber.Valid("25/0001"))
	assert.False(t, ordernumber.Valid("2025/001"))
}
