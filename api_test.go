package pollmint

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	pcommon "github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, reader *fakeReader, backends ...CoinBackend) *Pollmint {
	gin.SetMode(gin.TestMode)
	s := newTestPollmint(t, reader, nil, backends...)
	s.registerRoutes()
	return s
}

func doRequest(s *Pollmint, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		by, _ := json.Marshal(body)
		buf.Write(by)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) schema.RespErr {
	res := schema.RespErr{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestApi_VerifyPayment(t *testing.T) {
	reader := newFakeReader()
	s := newTestApi(t, reader)
	h := reader.addPayment(testWallet, 2_000_000, 10)
	req := schema.ReqVerifyPayment{TxHash: h, SenderWallet: testWallet}

	w := doRequest(s, http.MethodPost, "/api/verify-payment", req, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := schema.RespVerifyPayment{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, int64(6), res.Credits)

	w = doRequest(s, http.MethodPost, "/api/verify-payment", req, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, schema.KindAlreadyProcessed, decodeErr(t, w).Kind)

	w = doRequest(s, http.MethodPost, "/api/verify-payment",
		schema.ReqVerifyPayment{TxHash: common.BigToHash(big.NewInt(1)).Hex(), SenderWallet: testWallet}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, schema.KindTransactionNotFound, decodeErr(t, w).Kind)

	w = doRequest(s, http.MethodGet, "/api/credits/"+testWallet, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	credits := schema.RespCredits{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &credits))
	assert.Equal(t, int64(6), credits.Credits)
}

func TestApi_AddCredits(t *testing.T) {
	s := newTestApi(t, newFakeReader())
	req := schema.ReqAddCredits{WalletAddress: testWallet, Credits: 4}

	w := doRequest(s, http.MethodPost, "/api/admin/add-credits", req, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doRequest(s, http.MethodPost, "/api/admin/add-credits", req, map[string]string{pcommon.HeaderAdminKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodPost, "/api/admin/add-credits", req, map[string]string{pcommon.HeaderAdminKey: testAdminKey})
	require.Equal(t, http.StatusOK, w.Code)
	res := schema.RespCredits{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(4), res.Credits)
}

func TestApi_Vote(t *testing.T) {
	b := newFakeBackend(schema.ChainBase)
	s := newTestApi(t, newFakeReader(), b)
	poll := insertPoll(t, s, schema.Poll{MemeCoinMode: true, OptionA: "Pineapple pizza"})
	path := "/api/polls/" + itoa(poll.ID) + "/vote"
	alice := map[string]string{pcommon.HeaderUserID: "alice"}

	w := doRequest(s, http.MethodPost, path, schema.ReqVote{Option: "A"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodPost, path, schema.ReqVote{Option: "A"}, alice)
	require.Equal(t, http.StatusBadRequest, w.Code)
	choice := schema.RespWalletChoice{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &choice))
	assert.True(t, choice.RequiresWalletChoice)
	assert.Equal(t, schema.KindWalletChoiceRequired, choice.Kind)
	assert.Equal(t, "Pineapple Pizza", choice.CoinPreview.CoinName)

	w = doRequest(s, http.MethodPost, path, schema.ReqVote{Option: "A", WalletAddress: testWallet}, alice)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, schema.KindInsufficientCredits, decodeErr(t, w).Kind)

	require.NoError(t, s.ledger.AddCredits(testWallet, 1))
	w = doRequest(s, http.MethodPost, path, schema.ReqVote{Option: "A", WalletAddress: testWallet}, alice)
	require.Equal(t, http.StatusOK, w.Code)
	res := schema.RespVote{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, schema.RewardCreated, res.RewardStatus)
	assert.Equal(t, int64(0), res.RemainingCredits)

	w = doRequest(s, http.MethodPost, path, schema.ReqVote{Option: "B", WalletAddress: testWallet}, alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(s, http.MethodGet, "/api/tokens/"+itoa(poll.ID)+"/a", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(s, http.MethodGet, "/api/tokens/"+itoa(poll.ID)+"/B", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(s, http.MethodGet, "/api/coins/alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	coins := make([]schema.GeneratedCoin, 0)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &coins))
	assert.Len(t, coins, 1)

	w = doRequest(s, http.MethodPost, "/api/polls/abc/vote", schema.ReqVote{Option: "A"}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(s, http.MethodGet, "/api/polls/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApi_PackagePending(t *testing.T) {
	s := newTestApi(t, newFakeReader())
	req := schema.ReqPurchasePackage{TxHash: common.BigToHash(big.NewInt(77)).Hex(), SenderWallet: testWallet}

	w := doRequest(s, http.MethodPost, "/api/packages/purchase", req, map[string]string{pcommon.HeaderUserID: "alice"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(s, http.MethodGet, "/api/packages/alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pkgs := make([]schema.MemeCoinPackage, 0)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pkgs))
	require.Len(t, pkgs, 1)
	assert.Equal(t, schema.PackagePending, pkgs[0].Status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
