package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	pcommon "github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/schema"
	"github.com/shopspring/decimal"
)

var log = pcommon.NewLog("evm")

const (
	factoryABI = `[
		{"type":"function","name":"createToken","stateMutability":"nonpayable",
		 "inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
		 "outputs":[{"name":"token","type":"address"}]},
		{"type":"event","name":"TokenCreated","anonymous":false,
		 "inputs":[{"name":"token","type":"address","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"name","type":"string","indexed":false},{"name":"symbol","type":"string","indexed":false}]}
	]`
	tokenABI = `[
		{"type":"function","name":"mint","stateMutability":"nonpayable",
		 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
	]`

	TokenDecimals         = 18
	DefaultConfirmTimeout = 90 * time.Second
)

// Client is the subset of ethclient.Client the backend talks to.
type Client interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Backend deploys and mints meme coins through a token factory contract.
type Backend struct {
	chain          string
	client         Client
	key            *ecdsa.PrivateKey
	operator       common.Address
	chainID        *big.Int
	factoryAddr    common.Address
	factory        *bind.BoundContract
	factoryAbi     abi.ABI
	tokenAbi       abi.ABI
	confirmTimeout time.Duration
}

func Dial(ctx context.Context, rpcUrl string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, rpcUrl)
}

func NewBackend(client Client, privateKeyHex string, chainID int64, factory string) (*Backend, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	if !common.IsHexAddress(factory) {
		return nil, fmt.Errorf("invalid factory address: %s", factory)
	}
	fAbi, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, err
	}
	tAbi, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, err
	}
	factoryAddr := common.HexToAddress(factory)
	return &Backend{
		chain:          schema.ChainBase,
		client:         client,
		key:            key,
		operator:       crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		factoryAddr:    factoryAddr,
		factory:        bind.NewBoundContract(factoryAddr, fAbi, client, client, client),
		factoryAbi:     fAbi,
		tokenAbi:       tAbi,
		confirmTimeout: DefaultConfirmTimeout,
	}, nil
}

func (b *Backend) SetConfirmTimeout(d time.Duration) {
	b.confirmTimeout = d
}

func (b *Backend) Chain() string {
	return b.chain
}

func (b *Backend) OperatorAddress() string {
	return b.operator.Hex()
}

func (b *Backend) ValidateAddress(addr string) bool {
	return common.IsHexAddress(addr) && common.HexToAddress(addr) != (common.Address{})
}

// NativeBalance returns the operator balance in ETH.
func (b *Backend) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	wei, err := b.client.BalanceAt(ctx, b.operator, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

// Deploy creates a token through the factory and delivers one whole token to `to`.
// A returned TxHash with an error that is not schema.ErrTxReverted means the outcome is unknown.
func (b *Backend) Deploy(ctx context.Context, name, symbol, to string) (schema.DeployResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.confirmTimeout)
	defer cancel()

	opts, err := b.transactOpts(ctx)
	if err != nil {
		return schema.DeployResult{}, err
	}
	tx, err := b.factory.Transact(opts, "createToken", name, symbol, common.HexToAddress(to), oneToken())
	if err != nil {
		return schema.DeployResult{}, fmt.Errorf("send createToken: %w", err)
	}
	res := schema.DeployResult{TxHash: tx.Hash().Hex()}
	log.Info("createToken sent", "txHash", res.TxHash, "name", name, "symbol", symbol)

	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		return res, fmt.Errorf("wait createToken mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return res, fmt.Errorf("createToken %s: %w", res.TxHash, schema.ErrTxReverted)
	}
	addr, ok := b.tokenFromReceipt(receipt)
	if !ok {
		return res, fmt.Errorf("TokenCreated event not found in %s", res.TxHash)
	}
	res.TokenAddress = addr
	return res, nil
}

// MintTo mints one whole token of an existing deployment to `to`.
func (b *Backend) MintTo(ctx context.Context, token, to string) (string, error) {
	if !common.IsHexAddress(token) {
		return "", fmt.Errorf("invalid token address: %s", token)
	}
	ctx, cancel := context.WithTimeout(ctx, b.confirmTimeout)
	defer cancel()

	opts, err := b.transactOpts(ctx)
	if err != nil {
		return "", err
	}
	contract := bind.NewBoundContract(common.HexToAddress(token), b.tokenAbi, b.client, b.client, b.client)
	tx, err := contract.Transact(opts, "mint", common.HexToAddress(to), oneToken())
	if err != nil {
		return "", fmt.Errorf("send mint: %w", err)
	}
	txHash := tx.Hash().Hex()
	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		return txHash, fmt.Errorf("wait mint mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, fmt.Errorf("mint %s: %w", txHash, schema.ErrTxReverted)
	}
	return txHash, nil
}

func (b *Backend) TxStatus(ctx context.Context, txHash string) (schema.TxResult, error) {
	receipt, err := b.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return schema.TxResult{Status: schema.TxPending}, nil
	}
	if err != nil {
		return schema.TxResult{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return schema.TxResult{Status: schema.TxFailed}, nil
	}
	res := schema.TxResult{Status: schema.TxConfirmed}
	if addr, ok := b.tokenFromReceipt(receipt); ok {
		res.TokenAddress = addr
	}
	return res, nil
}

func (b *Backend) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(b.key, b.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func (b *Backend) tokenFromReceipt(receipt *types.Receipt) (string, bool) {
	eventID := b.factoryAbi.Events["TokenCreated"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != b.factoryAddr || len(lg.Topics) < 2 || lg.Topics[0] != eventID {
			continue
		}
		return common.BytesToAddress(lg.Topics[1].Bytes()).Hex(), true
	}
	return "", false
}

func oneToken() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)
}
