package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/everFinance/pollmint/schema"
)

var TransferEventID = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ParseTransfer decodes an ERC-20 Transfer log.
func ParseTransfer(lg types.Log) (schema.Transfer, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != TransferEventID || len(lg.Data) != 32 {
		return schema.Transfer{}, false
	}
	return schema.Transfer{
		Token:    strings.ToLower(lg.Address.Hex()),
		From:     strings.ToLower(common.BytesToAddress(lg.Topics[1].Bytes()).Hex()),
		To:       strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex()),
		Amount:   new(big.Int).SetBytes(lg.Data).String(),
		LogIndex: lg.Index,
	}, true
}

// ParseTransfers returns the Transfer events emitted by token in a receipt.
func ParseTransfers(logs []*types.Log, token common.Address) []schema.Transfer {
	res := make([]schema.Transfer, 0, len(logs))
	for _, lg := range logs {
		if lg == nil || lg.Address != token || lg.Removed {
			continue
		}
		if tr, ok := ParseTransfer(*lg); ok {
			res = append(res, tr)
		}
	}
	return res
}

// AddressTopic left-pads an address into a log topic.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
