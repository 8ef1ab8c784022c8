package pollmint

import (
	"testing"

	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FirstWriterWins(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	r := s.registry

	_, found, err := r.GetTokenAddress(42, schema.OptionA)
	require.NoError(t, err)
	assert.False(t, found)

	stored, err := r.SetTokenAddress(schema.TokenRegistryEntry{PollID: 42, Option: schema.OptionA, CoinName: "Pizza", Address: "0xaaa"})
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", stored.Address)

	stored, err = r.SetTokenAddress(schema.TokenRegistryEntry{PollID: 42, Option: schema.OptionA, CoinName: "Pizza-2", Address: "0xbbb"})
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", stored.Address)

	entry, found, err := r.GetTokenAddress(42, schema.OptionA)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0xaaa", entry.Address)
	assert.Equal(t, "42:A", registryKey(entry.PollID, entry.Option))

	// the name belongs to 42:A
	_, err = r.SetTokenAddress(schema.TokenRegistryEntry{PollID: 43, Option: schema.OptionB, CoinName: "Pizza", Address: "0xccc"})
	assert.Error(t, err)

	byName, found, err := r.GetByCoinName("Pizza")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(42), byName.PollID)

	list, err := r.List(42)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCoinText(t *testing.T) {
	assert.Equal(t, "Pineapple Pizza", coinNameFor("  pineapple   PIZZA!! "))
	assert.Equal(t, "PINEAPPL", coinSymbolFor("Pineapple Pizza"))
	assert.Equal(t, "Poll Coin", coinNameFor("🍕🍕"))
	assert.Equal(t, "POLL", coinSymbolFor("!!!"))
	assert.Len(t, []rune(coinNameFor("a very long option text that keeps going and going")), 32)

	name, symbol := withSuffix("Pizza", "PIZZA", 1)
	assert.Equal(t, "Pizza", name)
	assert.Equal(t, "PIZZA", symbol)
	name, symbol = withSuffix("Pineapple", "PINEAPPL", 12)
	assert.Equal(t, "Pineapple-12", name)
	assert.Equal(t, "PINEAP12", symbol)

	preview := coinPreview(&schema.Poll{ID: 3, OptionA: "cats", OptionB: "dogs"}, schema.OptionB)
	assert.Equal(t, "dogs", preview.OptionText)
	assert.Equal(t, "Dogs", preview.CoinName)
	assert.Equal(t, "DOGS", preview.CoinSymbol)
}
