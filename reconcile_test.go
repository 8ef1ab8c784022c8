package pollmint

import (
	"context"
	"testing"
	"time"

	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingVote casts a paid vote whose deployment outcome is unknown.
func pendingVote(t *testing.T) (*Pollmint, *fakeBackend, *schema.GeneratedCoin) {
	b := newFakeBackend(schema.ChainBase)
	b.deployErr = context.DeadlineExceeded
	b.deployTx = "0xslow"
	s := newTestPollmint(t, newFakeReader(), nil, b)
	poll := insertPoll(t, s, schema.Poll{MemeCoinMode: true})
	require.NoError(t, s.ledger.AddCredits(testWallet, 1))

	resp, err := s.voter.Vote(context.Background(), paidVote(poll.ID, "alice", schema.OptionA))
	require.NoError(t, err)
	require.Equal(t, schema.RewardPending, resp.RewardStatus)
	return s, b, resp.Coin
}

func ageCoin(t *testing.T, s *Pollmint, coin *schema.GeneratedCoin, age time.Duration) schema.GeneratedCoin {
	require.NoError(t, s.wdb.Db.Model(&schema.GeneratedCoin{}).Where("id = ?", coin.ID).
		UpdateColumn("updated_at", time.Now().Add(-age)).Error)
	stored, err := s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	require.NoError(t, err)
	return *stored
}

func TestReconcile_Confirmed(t *testing.T) {
	s, b, coin := pendingVote(t)
	b.status["0xslow"] = schema.TxResult{Status: schema.TxConfirmed, TokenAddress: "0xtoken"}

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, time.Minute)))

	stored, err := s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	require.NoError(t, err)
	assert.Equal(t, schema.CoinCreated, stored.Status)
	assert.Equal(t, "0xtoken", stored.CoinAddress)

	entry, found, err := s.registry.GetTokenAddress(coin.PollID, coin.Option)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "0xtoken", entry.Address)

	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(0), credits)
}

func TestReconcile_FailedRefundsOnce(t *testing.T) {
	s, b, coin := pendingVote(t)
	b.status["0xslow"] = schema.TxResult{Status: schema.TxFailed}
	aged := ageCoin(t, s, coin, time.Minute)

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), aged))
	// a stale copy of the same pending coin settles nothing
	require.NoError(t, s.voter.ReconcileCoin(context.Background(), aged))

	stored, err := s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	require.NoError(t, err)
	assert.Equal(t, schema.CoinFailed, stored.Status)
	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(1), credits)
	assert.True(t, s.wdb.ExistVote("alice", coin.PollID))
}

func TestReconcile_ConfirmedAfterRegistryTaken(t *testing.T) {
	s, b, coin := pendingVote(t)
	_, err := s.registry.SetTokenAddress(schema.TokenRegistryEntry{
		PollID:     coin.PollID,
		Option:     coin.Option,
		CoinName:   "Rival",
		CoinSymbol: "RIVAL",
		Address:    "0xfirst",
		Blockchain: schema.ChainBase,
	})
	require.NoError(t, err)
	b.status["0xslow"] = schema.TxResult{Status: schema.TxConfirmed, TokenAddress: "0xsecond"}

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, time.Minute)))

	stored, err := s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	require.NoError(t, err)
	assert.Equal(t, schema.CoinCreated, stored.Status)
	assert.Equal(t, "0xsecond", stored.CoinAddress)
	entry, found, err := s.registry.GetTokenAddress(coin.PollID, coin.Option)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "0xfirst", entry.Address)
}

func TestReconcile_ConfirmedWithoutAddress(t *testing.T) {
	s, b, coin := pendingVote(t)
	b.status["0xslow"] = schema.TxResult{Status: schema.TxConfirmed}

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, time.Minute)))

	stored, err := s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	require.NoError(t, err)
	assert.Equal(t, schema.CoinFailed, stored.Status)
	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(1), credits)
}

func TestReconcile_StillPending(t *testing.T) {
	s, _, coin := pendingVote(t)

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, time.Minute)))
	stored, _ := s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	assert.Equal(t, schema.CoinPending, stored.Status)

	pending, err := s.voter.PendingCoins(30*time.Second, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, 2*time.Hour)))
	stored, _ = s.wdb.GetCoin(coin.UserID, coin.PollID, coin.Option)
	assert.Equal(t, schema.CoinFailed, stored.Status)
	credits, _ := s.ledger.GetCredits(testWallet)
	assert.Equal(t, int64(1), credits)
}

func TestReconcile_NeverBroadcast(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil, newFakeBackend(schema.ChainBase))
	coin := &schema.GeneratedCoin{
		UserID: "bob", PollID: 3, Option: schema.OptionB, Blockchain: schema.ChainBase,
		Kind: schema.CoinKindDeploy, Status: schema.CoinPending, CreditWallet: testWallet2,
	}
	ok, err := s.wdb.InsertCoin(coin)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, time.Minute)))
	stored, _ := s.wdb.GetCoin("bob", 3, schema.OptionB)
	assert.Equal(t, schema.CoinPending, stored.Status)

	require.NoError(t, s.voter.ReconcileCoin(context.Background(), ageCoin(t, s, coin, 20*time.Minute)))
	stored, _ = s.wdb.GetCoin("bob", 3, schema.OptionB)
	assert.Equal(t, schema.CoinFailed, stored.Status)
	credits, _ := s.ledger.GetCredits(testWallet2)
	assert.Equal(t, int64(1), credits)
}
