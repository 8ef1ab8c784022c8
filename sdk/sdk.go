package sdk

import (
	"github.com/everFinance/pollmint/schema"
)

// SDK binds a Client to one user and their wallets.
type SDK struct {
	Cli          *Client
	UserID       string
	Wallet       string
	CreditWallet string
}

func NewSDK(pollmintUrl, userID, wallet string) *SDK {
	return &SDK{
		Cli:    New(pollmintUrl),
		UserID: userID,
		Wallet: wallet,
	}
}

func (s *SDK) Credits() (int64, error) {
	return s.Cli.GetCredits(s.creditWallet())
}

// TopUp submits a usdt transfer hash sent from the credit wallet.
func (s *SDK) TopUp(txHash string) (int64, error) {
	res, err := s.Cli.VerifyPayment(txHash, s.creditWallet())
	if err != nil {
		return 0, err
	}
	return res.Credits, nil
}

func (s *SDK) Vote(pollID uint, option string) (*schema.RespVote, error) {
	return s.Cli.Vote(s.UserID, pollID, schema.ReqVote{
		Option:        option,
		WalletAddress: s.Wallet,
		CreditWallet:  s.CreditWallet,
	})
}

func (s *SDK) DemoVote(pollID uint, option string) (*schema.RespVote, error) {
	return s.Cli.Vote(s.UserID, pollID, schema.ReqVote{
		Option:   option,
		DemoMode: true,
	})
}

func (s *SDK) Coins() ([]schema.GeneratedCoin, error) {
	return s.Cli.GetCoins(s.UserID)
}

func (s *SDK) creditWallet() string {
	if s.CreditWallet != "" {
		return s.CreditWallet
	}
	return s.Wallet
}
