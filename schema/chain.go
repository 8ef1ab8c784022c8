package schema

import "errors"

const (
	TxConfirmed = "confirmed"
	TxPending   = "pending"
	TxFailed    = "failed"
)

type DeployResult struct {
	TokenAddress string
	TxHash       string
}

// TxResult is the settled state of a previously broadcast transaction.
// TokenAddress is filled for deployments once known.
type TxResult struct {
	Status       string
	TokenAddress string
}

// Transfer is a decoded ERC-20 Transfer event.
type Transfer struct {
	Token    string `json:"token"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   string `json:"amount"` // raw integer units
	LogIndex uint   `json:"logIndex"`
}

// ErrTxReverted marks a broadcast transaction that definitely failed on chain.
var ErrTxReverted = errors.New("tx_reverted")
