package pollmint

import (
	"context"
	"testing"

	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanTreasury(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	reader.addPayment(testWallet, 1_000_000, 10)
	reader.addPayment(testWallet2, 2_000_000, 12)
	reader.addPayment(testWallet, 5_000_000, 50)

	credited, err := s.verifier.ScanTreasury(context.Background(), 1, 20, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, credited)

	c1, _ := s.ledger.GetCredits(testWallet)
	c2, _ := s.ledger.GetCredits(testWallet2)
	assert.Equal(t, int64(3), c1)
	assert.Equal(t, int64(6), c2)

	// rescanning is harmless
	credited, err = s.verifier.ScanTreasury(context.Background(), 1, 20, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, credited)
}

func TestMonitorTreasuryJob(t *testing.T) {
	reader := newFakeReader()
	reader.head = 100
	s := newTestPollmint(t, reader, nil)

	s.monitorTreasury()
	cursor, err := s.wdb.GetCursor(schema.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cursor)

	reader.addPayment(testWallet, 2_000_000, 99) // before the cursor, ignored
	reader.addPayment(testWallet, 1_000_000, 103)
	reader.mu.Lock()
	reader.head = 105
	reader.mu.Unlock()

	s.monitorTreasury()
	cursor, err = s.wdb.GetCursor(schema.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, uint64(105), cursor)
	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(3), credits)
}
