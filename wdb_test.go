package pollmint

import (
	"testing"

	"github.com/everFinance/pollmint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWdb_Votes(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	poll := insertPoll(t, s, schema.Poll{})

	ok, err := s.wdb.InsertVote(nil, &schema.Vote{UserID: "alice", PollID: poll.ID, Option: schema.OptionA})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.wdb.InsertVote(nil, &schema.Vote{UserID: "alice", PollID: poll.ID, Option: schema.OptionB})
	require.NoError(t, err)
	assert.False(t, ok)

	vote, err := s.wdb.GetVote("alice", poll.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.OptionA, vote.Option)
	assert.False(t, s.wdb.ExistVote("bob", poll.ID))

	require.NoError(t, s.wdb.IncrPollVotes(nil, poll.ID, schema.OptionA))
	require.NoError(t, s.wdb.IncrPollVotes(nil, poll.ID, schema.OptionB))
	require.NoError(t, s.wdb.IncrPollVotes(nil, poll.ID, schema.OptionB))
	stored, err := s.wdb.GetPoll(poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.VotesA)
	assert.Equal(t, int64(2), stored.VotesB)

	_, err = s.wdb.GetPoll(poll.ID + 1)
	assert.ErrorIs(t, err, schema.ErrNotExist)
}

func TestWdb_ProcessedTx(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	ptx := &schema.ProcessedTransaction{TxHash: "0x01", FromWallet: testWallet, CreditsGranted: 3}

	ok, err := s.wdb.InsertProcessedTx(nil, ptx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.wdb.InsertProcessedTx(nil, &schema.ProcessedTransaction{TxHash: "0x01"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, s.wdb.ExistProcessedTx("0x01"))
	assert.False(t, s.wdb.ExistProcessedTx("0x02"))
	stored, err := s.wdb.GetProcessedTx("0x01")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.CreditsGranted)
}

func TestWdb_CoinsAndCursor(t *testing.T) {
	s := newTestPollmint(t, newFakeReader(), nil)
	coin := &schema.GeneratedCoin{UserID: "alice", PollID: 1, Option: schema.OptionA, Status: schema.CoinPending}
	ok, err := s.wdb.InsertCoin(coin)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.wdb.InsertCoin(&schema.GeneratedCoin{UserID: "alice", PollID: 1, Option: schema.OptionA})
	require.NoError(t, err)
	assert.False(t, ok)

	settled, err := s.wdb.SettleCoin(nil, coin.ID, map[string]interface{}{"status": schema.CoinCreated})
	require.NoError(t, err)
	assert.True(t, settled)
	settled, err = s.wdb.SettleCoin(nil, coin.ID, map[string]interface{}{"status": schema.CoinFailed})
	require.NoError(t, err)
	assert.False(t, settled)

	coins, err := s.wdb.GetCoinsByPoll(1)
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, schema.CoinCreated, coins[0].Status)

	cursor, err := s.wdb.GetCursor(schema.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cursor)
	require.NoError(t, s.wdb.SaveCursor(schema.ChainBase, 10))
	require.NoError(t, s.wdb.SaveCursor(schema.ChainBase, 20))
	cursor, err = s.wdb.GetCursor(schema.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), cursor)
}
