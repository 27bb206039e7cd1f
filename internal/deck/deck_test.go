package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := New(randutil.New(42))

	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		c, err := d.DealOne()
		require.NoError(t, err)
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
	assert.Equal(t, 0, d.CardsRemaining())
}

func TestDealPastEndFails(t *testing.T) {
	d := New(randutil.New(1))

	_, err := d.Deal(50)
	require.NoError(t, err)

	_, err = d.Deal(3)
	assert.ErrorIs(t, err, ErrExhausted)

	// A failed deal consumes nothing
	assert.Equal(t, 2, d.CardsRemaining())
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := New(randutil.New(99))
	b := New(randutil.New(99))

	ca, err := a.Deal(52)
	require.NoError(t, err)
	cb, err := b.Deal(52)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestParseRoundTrip(t *testing.T) {
	for _, label := range []string{"AS", "TD", "2C", "KH", "9S"} {
		c, err := Parse(label)
		require.NoError(t, err)
		assert.Equal(t, label, c.String())
	}

	_, err := Parse("XX")
	assert.Error(t, err)
	_, err = Parse("A")
	assert.Error(t, err)
}
