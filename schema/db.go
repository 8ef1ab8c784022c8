package schema

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChainBase   = "base"
	ChainSolana = "solana"

	OptionA = "A"
	OptionB = "B"

	// GeneratedCoin status
	CoinCreated = "created"
	CoinPending = "pending"
	CoinFailed  = "failed"

	// GeneratedCoin kind, which chain operation produced the coin
	CoinKindDeploy = "deploy"
	CoinKindMint   = "mint"
	CoinKindDemo   = "demo"

	// MemeCoinPackage status
	PackageActive  = "active"
	PackagePending = "pending"
	PackageUsedUp  = "used_up"

	// ProcessedTransaction purpose
	PurposeCredits = "credits"
	PurposePackage = "package"

	// CreditEntry reason
	ReasonPayment = "payment"
	ReasonVote    = "vote"
	ReasonRefund  = "refund"
	ReasonAdmin   = "admin"

	DemoWallet          = "demo-wallet"
	DemoAddrPrefix      = "demo-"
	VoteCreditCost      = int64(1)
	DefaultUsdtDecimals = 6
)

type CreditBalance struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Wallet    string    `gorm:"size:128;uniqueIndex" json:"wallet"` // lower case
	Credits   int64     `json:"credits"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreditEntry is the audit trail of balance changes; (reason, ref) applies at most once.
type CreditEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Wallet    string    `gorm:"size:128;index:idx_entry_wallet" json:"wallet"`
	Delta     int64     `json:"delta"`
	Reason    string    `gorm:"size:32;uniqueIndex:uk_entry_cause" json:"reason"`
	Ref       string    `gorm:"size:191;uniqueIndex:uk_entry_cause" json:"ref"`
}

type ProcessedTransaction struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"createdAt"`
	TxHash         string         `gorm:"size:128;uniqueIndex" json:"txHash"` // lower case
	FromWallet     string         `gorm:"size:128" json:"fromWallet"`
	ToWallet       string         `gorm:"size:128" json:"toWallet"`
	UsdtAmount     string         `json:"usdtAmount"` // decimal string, token units
	CreditsGranted int64          `json:"creditsGranted"`
	BlockNumber    uint64         `json:"blockNumber"`
	Chain          string         `json:"chain"`
	Purpose        string         `json:"purpose"`
	Transfers      datatypes.JSON `json:"transfers"`
}

type Poll struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatorID    string    `gorm:"size:128;index" json:"creatorId"`
	Question     string    `json:"question"`
	OptionA      string    `json:"optionA"`
	OptionB      string    `json:"optionB"`
	VotesA       int64     `json:"votesA"`
	VotesB       int64     `json:"votesB"`
	MemeCoinMode bool      `json:"memeCoinMode"`
	Blockchain   string    `json:"blockchain"` // "base" or "solana"
}

func (p Poll) OptionText(option string) string {
	if option == OptionA {
		return p.OptionA
	}
	return p.OptionB
}

type Vote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `gorm:"size:128;uniqueIndex:uk_vote_user_poll" json:"userId"`
	PollID    uint      `gorm:"uniqueIndex:uk_vote_user_poll" json:"pollId"`
	Option    string    `gorm:"size:1" json:"option"`
	Wallet    string    `gorm:"size:128" json:"wallet"`
}

type GeneratedCoin struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	UserID          string    `gorm:"size:128;uniqueIndex:uk_coin_key" json:"userId"`
	PollID          uint      `gorm:"uniqueIndex:uk_coin_key" json:"pollId"`
	Option          string    `gorm:"size:1;uniqueIndex:uk_coin_key" json:"option"`
	VoteID          uint      `json:"voteId"`
	CoinName        string    `json:"coinName"`
	CoinSymbol      string    `json:"coinSymbol"`
	CoinAddress     string    `json:"coinAddress"`
	UserWallet      string    `json:"userWallet"`
	TransactionHash string    `json:"transactionHash"`
	Blockchain      string    `json:"blockchain"`
	Kind            string    `json:"kind"`                 // "deploy", "mint", "demo"
	Status          string    `gorm:"index" json:"status"` // "created", "pending", "failed"
	ErrMsg          string    `json:"errMsg,omitempty"`
	CreditWallet    string    `json:"-"` // refunded when the reward fails
}

// TokenRegistryEntry maps a poll option to its deployed token; first writer wins.
type TokenRegistryEntry struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	PollID       uint      `gorm:"uniqueIndex:uk_registry_option" json:"pollId"`
	Option       string    `gorm:"size:1;uniqueIndex:uk_registry_option" json:"option"`
	CoinName     string    `gorm:"size:191;uniqueIndex" json:"coinName"`
	CoinSymbol   string    `json:"coinSymbol"`
	Address      string    `json:"address"`
	Blockchain   string    `json:"blockchain"`
	DeployTxHash string    `json:"deployTxHash"`
}

type MemeCoinPackage struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PurchasedAt    time.Time `gorm:"autoCreateTime" json:"purchasedAt"`
	UserID         string    `gorm:"size:128;index" json:"userId"`
	Status         string    `gorm:"index" json:"status"` // "active", "pending", "used_up"
	TotalPolls     int64     `json:"totalPolls"`
	UsedPolls      int64     `json:"usedPolls"`
	RemainingPolls int64     `json:"remainingPolls"`
	PaymentTxHash  string    `gorm:"size:128;uniqueIndex" json:"paymentTxHash"`
	SenderWallet   string    `gorm:"size:128" json:"senderWallet"`
	PaymentAmount  string    `json:"paymentAmount"`
}

type BattleCompletion struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completedAt"`
	PollID      uint      `gorm:"uniqueIndex:uk_battle_poll_user" json:"pollId"`
	UserID      string    `gorm:"size:128;uniqueIndex:uk_battle_poll_user" json:"userId"`
	Winner      string    `gorm:"size:1" json:"winner"`
}

// MonitorCursor is the last treasury block scanned by the wallet monitor.
type MonitorCursor struct {
	Chain     string `gorm:"primarykey;size:32"`
	Block     uint64
	UpdatedAt time.Time
}
