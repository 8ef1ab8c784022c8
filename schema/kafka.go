package schema

type KafkaVote struct {
	VoteID       uint   `json:"voteId"`
	PollID       uint   `json:"pollId"`
	UserID       string `json:"userId"`
	Option       string `json:"option"`
	RewardStatus string `json:"rewardStatus"`
	Refunded     bool   `json:"refunded"`
}

type KafkaCoin struct {
	PollID      uint   `json:"pollId"`
	UserID      string `json:"userId"`
	Option      string `json:"option"`
	CoinName    string `json:"coinName"`
	CoinAddress string `json:"coinAddress"`
	Blockchain  string `json:"blockchain"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	TxHash      string `json:"txHash"`
}

type KafkaPayment struct {
	TxHash     string `json:"txHash"`
	From       string `json:"from"`
	UsdtAmount string `json:"usdtAmount"`
	Credits    int64  `json:"credits"`
	Purpose    string `json:"purpose"`
}
