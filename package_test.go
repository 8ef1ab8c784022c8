package pollmint

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackages_Purchase(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := reader.addPayment(testWallet, 10_000_000, 10) // 10 USDT, two packages of 10 polls

	pkg, err := s.packages.Purchase(context.Background(), "alice", h, testWallet)
	require.NoError(t, err)
	assert.Equal(t, schema.PackageActive, pkg.Status)
	assert.Equal(t, int64(20), pkg.TotalPolls)
	assert.Equal(t, int64(20), pkg.RemainingPolls)
	assert.Equal(t, "10", pkg.PaymentAmount)

	_, err = s.packages.Purchase(context.Background(), "alice", h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindAlreadyProcessed))

	// a package payment never turns into credits
	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(0), credits)
	_, err = s.verifier.VerifyPayment(context.Background(), h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindAlreadyProcessed))
}

func TestPackages_BelowPrice(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := reader.addPayment(testWallet, 4_990_000, 10)

	_, err := s.packages.Purchase(context.Background(), "alice", h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindNoValidTransfer))
	assert.False(t, s.verifier.HasProcessed(h))
	pkgs, _ := s.packages.ByUser("alice")
	assert.Len(t, pkgs, 0)
}

func TestPackages_MonitorLeavesPackagePayment(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := common.BigToHash(big.NewInt(4444))

	pkg, err := s.packages.Purchase(context.Background(), "alice", h.Hex(), testWallet)
	require.NoError(t, err)
	require.Equal(t, schema.PackagePending, pkg.Status)

	lg := transferLog(testWallet, testTreasury.Hex(), 5_000_000, 30, h)
	reader.mu.Lock()
	reader.receipts[h] = receiptOf(lg)
	reader.logs = append(reader.logs, *lg)
	reader.mu.Unlock()

	credited, err := s.verifier.ScanTreasury(context.Background(), 1, 50, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, credited)
	assert.False(t, s.verifier.HasProcessed(h.Hex()))

	pending, _ := s.packages.PendingPackages(10)
	require.Len(t, pending, 1)
	require.NoError(t, s.packages.ActivatePending(context.Background(), pending[0]))

	pkgs, err := s.packages.ByUser("alice")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, schema.PackageActive, pkgs[0].Status)
	assert.Equal(t, int64(10), pkgs[0].RemainingPolls)
	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(0), credits)
}

func TestPackages_ClaimedByAnotherUser(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	h := common.BigToHash(big.NewInt(4545)).Hex()

	_, err := s.packages.Purchase(context.Background(), "alice", h, testWallet)
	require.NoError(t, err)
	_, err = s.packages.Purchase(context.Background(), "bob", h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindAlreadyProcessed))
}

func TestPackages_PendingActivation(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := common.BigToHash(big.NewInt(4242))

	pkg, err := s.packages.Purchase(context.Background(), "alice", h.Hex(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, schema.PackagePending, pkg.Status)
	assert.Equal(t, testWallet, pkg.SenderWallet)

	pending, err := s.packages.PendingPackages(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// still unknown to the chain
	require.NoError(t, s.packages.ActivatePending(context.Background(), pending[0]))
	pending, _ = s.packages.PendingPackages(10)
	require.Len(t, pending, 1)

	lg := transferLog(testWallet, testTreasury.Hex(), 5_000_000, 30, h)
	reader.receipts[h] = receiptOf(lg)
	require.NoError(t, s.packages.ActivatePending(context.Background(), pending[0]))

	pkgs, err := s.packages.ByUser("alice")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, schema.PackageActive, pkgs[0].Status)
	assert.Equal(t, int64(10), pkgs[0].RemainingPolls)
}

func TestPackages_DropExpiredPending(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	h := common.BigToHash(big.NewInt(4343)).Hex()

	_, err := s.packages.Purchase(context.Background(), "alice", h, testWallet)
	require.NoError(t, err)
	pending, _ := s.packages.PendingPackages(10)
	require.Len(t, pending, 1)

	pending[0].PurchasedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.packages.ActivatePending(context.Background(), pending[0]))
	pkgs, _ := s.packages.ByUser("alice")
	assert.Len(t, pkgs, 0)
}
