package cardgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidDetails(t *testing.T) {
	gen := NewLocalGenerator()

	details, err := gen.Generate(context.Background(), "Alice Anderson")
	require.NoError(t, err)

	assert.Len(t, details.CardNumber, 16)
	assert.True(t, LuhnValid(details.CardNumber), "card number %s fails the Luhn check", details.CardNumber)
	assert.Len(t, details.CVV, 3)
	assert.Len(t, details.Barcode, 8)

	expiry, err := time.Parse("01/06", details.ExpiryDate)
	require.NoError(t, err)
	wanted := time.Now().AddDate(1, 0, 0)
	assert.Equal(t, wanted.Year()%100, expiry.Year()%100)
	assert.Equal(t, wanted.Month(), expiry.Month())
}

func TestGenerateDistinctCards(t *testing.T) {
	gen := NewLocalGenerator()

	first, err := gen.Generate(context.Background(), "Alice Anderson")
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), "Bob Brown")
	require.NoError(t, err)

	assert.NotEqual(t, first.CardNumber, second.CardNumber)
}

func TestGenerateHonorsCancelledContext(t *testing.T) {
	gen := NewLocalGenerator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "Alice Anderson")
	assert.Error(t, err)
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, LuhnValid("4539148803436467"))
	assert.False(t, LuhnValid("4539148803436468"))
	assert.False(t, LuhnValid("4539a48803436467"))
}
