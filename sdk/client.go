package sdk

import (
	"fmt"

	"github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/schema"
	"gopkg.in/h2non/gentleman.v2"
)

type Client struct {
	SCli *gentleman.Client
}

func New(pollmintUrl string) *Client {
	return &Client{
		SCli: gentleman.New().URL(pollmintUrl),
	}
}

func (c *Client) GetCredits(wallet string) (int64, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/api/credits/%s", wallet))
	res := schema.RespCredits{}
	if err := send(req, &res); err != nil {
		return 0, err
	}
	return res.Credits, nil
}

func (c *Client) VerifyPayment(txHash, senderWallet string) (schema.RespVerifyPayment, error) {
	req := c.SCli.Post()
	req.Path("/api/verify-payment")
	req.JSON(schema.ReqVerifyPayment{TxHash: txHash, SenderWallet: senderWallet})
	res := schema.RespVerifyPayment{}
	err := send(req, &res)
	return res, err
}

func (c *Client) AddCredits(adminKey, wallet string, credits int64) (int64, error) {
	req := c.SCli.Post()
	req.Path("/api/admin/add-credits")
	req.SetHeader(common.HeaderAdminKey, adminKey)
	req.JSON(schema.ReqAddCredits{WalletAddress: wallet, Credits: credits})
	res := schema.RespCredits{}
	if err := send(req, &res); err != nil {
		return 0, err
	}
	return res.Credits, nil
}

func (c *Client) CreatePoll(userID string, poll schema.ReqCreatePoll) (*schema.Poll, error) {
	req := c.SCli.Post()
	req.Path("/api/polls")
	req.SetHeader(common.HeaderUserID, userID)
	req.JSON(poll)
	res := &schema.Poll{}
	err := send(req, res)
	return res, err
}

func (c *Client) GetPoll(pollID uint) (*schema.Poll, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/api/polls/%d", pollID))
	res := &schema.Poll{}
	err := send(req, res)
	return res, err
}

// Vote returns *schema.Error with KindWalletChoiceRequired when the poll
// mints and no wallet was given; use Preview to show the coin first.
func (c *Client) Vote(userID string, pollID uint, vote schema.ReqVote) (*schema.RespVote, error) {
	req := c.SCli.Post()
	req.Path(fmt.Sprintf("/api/polls/%d/vote", pollID))
	req.SetHeader(common.HeaderUserID, userID)
	req.JSON(vote)
	res := &schema.RespVote{}
	err := send(req, res)
	return res, err
}

func (c *Client) Preview(pollID uint, option string) (schema.CoinPreview, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/api/polls/%d/preview/%s", pollID, option))
	res := schema.CoinPreview{}
	err := send(req, &res)
	return res, err
}

func (c *Client) GetToken(pollID uint, option string) (*schema.TokenRegistryEntry, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/api/tokens/%d/%s", pollID, option))
	res := &schema.TokenRegistryEntry{}
	err := send(req, res)
	return res, err
}

func (c *Client) GetCoins(userID string) ([]schema.GeneratedCoin, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/api/coins/%s", userID))
	res := make([]schema.GeneratedCoin, 0)
	err := send(req, &res)
	return res, err
}

func (c *Client) PurchasePackage(userID, txHash, senderWallet string) (*schema.MemeCoinPackage, error) {
	req := c.SCli.Post()
	req.Path("/api/packages/purchase")
	req.SetHeader(common.HeaderUserID, userID)
	req.JSON(schema.ReqPurchasePackage{TxHash: txHash, SenderWallet: senderWallet})
	res := &schema.MemeCoinPackage{}
	err := send(req, res)
	return res, err
}

func (c *Client) GetPackages(userID string) ([]schema.MemeCoinPackage, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/api/packages/%s", userID))
	res := make([]schema.MemeCoinPackage, 0)
	err := send(req, &res)
	return res, err
}

func (c *Client) CompleteBattle(userID string, pollID uint, winner string) (*schema.BattleCompletion, error) {
	req := c.SCli.Post()
	req.Path(fmt.Sprintf("/api/polls/%d/battle/complete", pollID))
	req.SetHeader(common.HeaderUserID, userID)
	req.JSON(schema.ReqBattleComplete{Winner: winner})
	res := &schema.BattleCompletion{}
	err := send(req, res)
	return res, err
}

// send decodes a non-2xx body into *schema.Error so callers can switch on Kind.
func send(req *gentleman.Request, out interface{}) error {
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		re := schema.RespErr{}
		if err := resp.JSON(&re); err != nil || re.Kind == "" {
			return fmt.Errorf("resp failed.http code: %d, errMsg:%s", resp.StatusCode, resp.String())
		}
		return schema.NewError(re.Kind, "%s", re.Err)
	}
	return resp.JSON(out)
}
