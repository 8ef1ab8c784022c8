package schema

type RespErr struct {
	Err  string `json:"error"`
	Kind Kind   `json:"kind,omitempty"`
}

func (r RespErr) Error() string {
	return r.Err
}

type ReqVote struct {
	Option        string `json:"option"`
	WalletAddress string `json:"walletAddress"`
	// CreditWallet pays the vote credit; defaults to WalletAddress.
	CreditWallet string `json:"creditWallet"`
	DemoMode     bool   `json:"demoMode"`
}

type CoinPreview struct {
	Option     string `json:"option"`
	PollID     uint   `json:"pollId"`
	OptionText string `json:"optionText"`
	CoinName   string `json:"coinName"`
	CoinSymbol string `json:"coinSymbol"`
}

type RespWalletChoice struct {
	RespErr
	RequiresWalletChoice bool        `json:"requiresWalletChoice"`
	CoinPreview          CoinPreview `json:"coinPreview"`
}

const (
	RewardNone    = "none"
	RewardCreated = "created"
	RewardPending = "pending"
	RewardFailed  = "failed"
)

type RespVote struct {
	Vote             Vote           `json:"vote"`
	Poll             Poll           `json:"poll"`
	Coin             *GeneratedCoin `json:"coin,omitempty"`
	CreditsUsed      int64          `json:"creditsUsed"`
	RemainingCredits int64          `json:"remainingCredits"`
	RewardStatus     string         `json:"rewardStatus"`
	RewardError      string         `json:"rewardError,omitempty"`
	RewardErrorKind  Kind           `json:"rewardErrorKind,omitempty"`
	CreditRefunded   bool           `json:"creditRefunded"`
}

type ReqVerifyPayment struct {
	TxHash       string `json:"txHash"`
	SenderWallet string `json:"senderWallet"`
}

type RespVerifyPayment struct {
	Success bool   `json:"success"`
	Credits int64  `json:"credits"`
	Message string `json:"message"`
}

type ReqAddCredits struct {
	WalletAddress string `json:"walletAddress"`
	Credits       int64  `json:"credits"`
}

type RespCredits struct {
	Wallet  string `json:"wallet"`
	Credits int64  `json:"credits"`
}

type ReqCreatePoll struct {
	Question     string `json:"question"`
	OptionA      string `json:"optionA"`
	OptionB      string `json:"optionB"`
	MemeCoinMode bool   `json:"memeCoinMode"`
	Blockchain   string `json:"blockchain"`
}

type ReqPurchasePackage struct {
	TxHash       string `json:"txHash"`
	SenderWallet string `json:"senderWallet"`
}

type ReqBattleComplete struct {
	Winner string `json:"winner"`
}
