package pollmint

import (
	"sync"
	"testing"

	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AddCredits(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	l := s.ledger

	credits, err := l.GetCredits(testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(0), credits)

	for _, n := range []int64{1, 5, 10} {
		before, _ := l.GetCredits(testWallet)
		require.NoError(t, l.AddCredits(testWallet, n))
		after, _ := l.GetCredits(testWallet)
		assert.Equal(t, before+n, after)
	}

	// wallets are case insensitive
	upper, err := l.GetCredits("0x000000000000000000000000000000000000ABC1")
	require.NoError(t, err)
	assert.Equal(t, int64(16), upper)

	assert.True(t, schema.IsKind(l.AddCredits(testWallet, 0), schema.KindInvalidParams))
	assert.True(t, schema.IsKind(l.AddCredits(" ", 1), schema.KindInvalidWalletAddress))
}

func TestLedger_DeductCredits(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	l := s.ledger
	require.NoError(t, l.AddCredits(testWallet, 3))

	err := l.DeductCredits(testWallet, 4)
	assert.True(t, schema.IsKind(err, schema.KindInsufficientCredits))
	credits, _ := l.GetCredits(testWallet)
	assert.Equal(t, int64(3), credits)

	require.NoError(t, l.DeductCredits(testWallet, 3))
	credits, _ = l.GetCredits(testWallet)
	assert.Equal(t, int64(0), credits)

	err = l.DeductCredits(testWallet2, 1)
	assert.True(t, schema.IsKind(err, schema.KindInsufficientCredits))
}

func TestLedger_ConcurrentDeduct(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	l := s.ledger
	require.NoError(t, l.AddCredits(testWallet, 5))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.DeductCredits(testWallet, 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	credits, _ := l.GetCredits(testWallet)
	assert.Equal(t, int64(0), credits)
}

func TestLedger_RefundOnce(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	l := s.ledger

	applied, err := l.Refund(testWallet, 1, voteRef(7, "alice"))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = l.Refund(testWallet, 1, voteRef(7, "alice"))
	require.NoError(t, err)
	assert.False(t, applied)

	credits, _ := l.GetCredits(testWallet)
	assert.Equal(t, int64(1), credits)

	history, err := l.History(testWallet, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, schema.ReasonRefund, history[0].Reason)
}
