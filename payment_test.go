package pollmint

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPayment(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := reader.addPayment(testWallet, 2_000_000, 10) // 2.00 USDT

	credits, err := s.verifier.VerifyPayment(context.Background(), h, testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(6), credits)

	bal, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(6), bal)
	assert.True(t, s.verifier.HasProcessed(h))

	ptx, err := s.wdb.GetProcessedTx(normalizeTxHashMust(t, h))
	require.NoError(t, err)
	assert.Equal(t, "2", ptx.UsdtAmount)
	assert.Equal(t, int64(6), ptx.CreditsGranted)
	assert.Equal(t, schema.PurposeCredits, ptx.Purpose)
	assert.Equal(t, 1, s.publisher.(*recordPublisher).count(PaymentTopic))
}

func TestVerifyPayment_Replay(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := reader.addPayment(testWallet, 1_000_000, 10)

	_, err := s.verifier.VerifyPayment(context.Background(), h, testWallet)
	require.NoError(t, err)
	calls := reader.receiptCalls()

	_, err = s.verifier.VerifyPayment(context.Background(), h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindAlreadyProcessed))
	assert.Equal(t, calls, reader.receiptCalls(), "replay guard runs before the rpc")

	bal, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(3), bal)
}

func TestVerifyPayment_ConcurrentReplay(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := reader.addPayment(testWallet, 1_000_000, 10)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.verifier.VerifyPayment(context.Background(), h, testWallet)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.True(t, schema.IsKind(err, schema.KindAlreadyProcessed))
		}
	}
	assert.Equal(t, 1, ok)
	bal, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(3), bal)
}

func TestVerifyPayment_Rejections(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	ctx := context.Background()

	_, err := s.verifier.VerifyPayment(ctx, "0x1234", testWallet)
	assert.True(t, schema.IsKind(err, schema.KindInvalidParams))

	unknown := common.BigToHash(big.NewInt(99)).Hex()
	_, err = s.verifier.VerifyPayment(ctx, unknown, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindTransactionNotFound))

	_, err = s.verifier.VerifyPayment(ctx, unknown, "not-a-wallet")
	assert.True(t, schema.IsKind(err, schema.KindInvalidWalletAddress))

	// sent by someone else
	h := reader.addPayment(testWallet2, 5_000_000, 11)
	_, err = s.verifier.VerifyPayment(ctx, h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindNoValidTransfer))

	// too small for one credit
	h = reader.addPayment(testWallet, 100_000, 12)
	_, err = s.verifier.VerifyPayment(ctx, h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindNoValidTransfer))

	// reverted
	h = reader.addPayment(testWallet, 5_000_000, 13)
	reader.receipts[common.HexToHash(h)].Status = types.ReceiptStatusFailed
	_, err = s.verifier.VerifyPayment(ctx, h, testWallet)
	assert.True(t, schema.IsKind(err, schema.KindNoValidTransfer))

	bal, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(0), bal)
	assert.False(t, s.verifier.HasProcessed(h))
}

func TestVerifyPayment_RpcError(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := reader.addPayment(testWallet, 1_000_000, 10)
	reader.err = errors.New("connection refused")

	_, err := s.verifier.VerifyPayment(context.Background(), h, testWallet)
	assert.Equal(t, schema.KindInternal, schema.KindOf(err))
	assert.False(t, s.verifier.HasProcessed(h))
}

func TestVerifyPayment_SumsTransfers(t *testing.T) {
	reader := newFakeReader()
	s := newTestPollmint(t, reader, nil)
	h := common.BigToHash(big.NewInt(7777))
	reader.receipts[h] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			transferLog(testWallet, testTreasury.Hex(), 500_000, 20, h),
			transferLog(testWallet, testTreasury.Hex(), 500_000, 20, h),
			transferLog(testWallet, testWallet2, 9_000_000, 20, h),
		},
	}

	credits, err := s.verifier.VerifyPayment(context.Background(), h.Hex(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(3), credits)
}

func normalizeTxHashMust(t *testing.T, h string) string {
	n, err := normalizeTxHash(h)
	require.NoError(t, err)
	return n
}
