package pollmint

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/everFinance/pollmint/chain/evm"
	"github.com/everFinance/pollmint/config"
	"github.com/everFinance/pollmint/schema"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultReceiptTimeout = 15 * time.Second
)

var txHashRegexp = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// EvmReader is the read side of an EVM json-rpc endpoint; *ethclient.Client satisfies it.
type EvmReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Payment is a USDT transfer from a sender to the treasury, summed over one transaction.
type Payment struct {
	TxHash      string
	From        string
	Amount      decimal.Decimal // whole USDT
	BlockNumber uint64
	Transfers   []schema.Transfer
}

type PaymentVerifier struct {
	wdb       *Wdb
	ledger    *Ledger
	conf      *config.Config
	reader    EvmReader
	publisher Publisher

	chain        string
	usdt         common.Address
	treasury     common.Address
	usdtDecimals int32
	timeout      time.Duration
}

func NewPaymentVerifier(wdb *Wdb, ledger *Ledger, conf *config.Config, reader EvmReader, publisher Publisher,
	usdtContract, treasury string, usdtDecimals int32) *PaymentVerifier {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &PaymentVerifier{
		wdb:          wdb,
		ledger:       ledger,
		conf:         conf,
		reader:       reader,
		publisher:    publisher,
		chain:        schema.ChainBase,
		usdt:         common.HexToAddress(usdtContract),
		treasury:     common.HexToAddress(treasury),
		usdtDecimals: usdtDecimals,
		timeout:      DefaultReceiptTimeout,
	}
}

func normalizeTxHash(txHash string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(txHash))
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	if !txHashRegexp.MatchString(h) {
		return "", schema.NewError(schema.KindInvalidParams, "invalid tx hash %q", txHash)
	}
	return h, nil
}

// HasProcessed is the replay guard's cheap check; RecordProcessed is the authoritative one.
func (p *PaymentVerifier) HasProcessed(txHash string) bool {
	h, err := normalizeTxHash(txHash)
	if err != nil {
		return false
	}
	return p.wdb.ExistProcessedTx(h)
}

// RecordProcessed inserts the hash inside tx; a second record of the same hash fails with AlreadyProcessed.
func (p *PaymentVerifier) RecordProcessed(tx *gorm.DB, ptx *schema.ProcessedTransaction) error {
	ok, err := p.wdb.InsertProcessedTx(tx, ptx)
	if err != nil {
		return err
	}
	if !ok {
		return schema.NewError(schema.KindAlreadyProcessed, "transaction %s already processed", ptx.TxHash)
	}
	return nil
}

// VerifyPayment credits the sender for a USDT transfer to the treasury, exactly once per tx hash.
func (p *PaymentVerifier) VerifyPayment(ctx context.Context, txHash, sender string) (int64, error) {
	pay, err := p.fetchPayment(ctx, txHash, sender)
	if err != nil {
		return 0, err
	}
	credits := pay.Amount.Mul(p.conf.CreditsPerUsdt()).Floor().IntPart()
	if credits <= 0 {
		return 0, schema.NewError(schema.KindNoValidTransfer, "payment of %s USDT is below one credit", pay.Amount)
	}

	err = p.wdb.Db.Transaction(func(tx *gorm.DB) error {
		if p.wdb.ExistPackageTx(tx, pay.TxHash) {
			return schema.NewError(schema.KindAlreadyProcessed, "transaction %s pays for a package", pay.TxHash)
		}
		if err := p.RecordProcessed(tx, p.processedTx(pay, credits, schema.PurposeCredits)); err != nil {
			return err
		}
		_, err := p.ledger.credit(tx, pay.From, credits, schema.ReasonPayment, pay.TxHash)
		return err
	})
	if err != nil {
		return 0, err
	}

	metricCredits(schema.ReasonPayment, credits)
	log.Info("payment verified", "txHash", pay.TxHash, "from", pay.From, "usdt", pay.Amount, "credits", credits)
	p.publisher.Publish(PaymentTopic, schema.KafkaPayment{
		TxHash:     pay.TxHash,
		From:       pay.From,
		UsdtAmount: pay.Amount.String(),
		Credits:    credits,
		Purpose:    schema.PurposeCredits,
	})
	return credits, nil
}

// fetchPayment runs the replay guard before any rpc call, then reads the receipt.
func (p *PaymentVerifier) fetchPayment(ctx context.Context, txHash, sender string) (*Payment, error) {
	h, err := normalizeTxHash(txHash)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(sender) {
		return nil, schema.NewError(schema.KindInvalidWalletAddress, "invalid sender wallet %q", sender)
	}
	from := normalizeWallet(sender)
	if p.wdb.ExistProcessedTx(h) {
		return nil, schema.NewError(schema.KindAlreadyProcessed, "transaction %s already processed", h)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	receipt, err := p.reader.TransactionReceipt(ctx, common.HexToHash(h))
	if errors.Is(err, ethereum.NotFound) {
		return nil, schema.NewError(schema.KindTransactionNotFound, "transaction %s not found", h)
	}
	if err != nil {
		return nil, schema.WrapError(schema.KindInternal, err, "fetch receipt "+h)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, schema.NewError(schema.KindNoValidTransfer, "transaction %s reverted", h)
	}

	treasury := normalizeWallet(p.treasury.Hex())
	matched := make([]schema.Transfer, 0, 1)
	sum := new(big.Int)
	for _, tr := range evm.ParseTransfers(receipt.Logs, p.usdt) {
		if tr.From != from || tr.To != treasury {
			continue
		}
		amount, ok := new(big.Int).SetString(tr.Amount, 10)
		if !ok {
			continue
		}
		sum.Add(sum, amount)
		matched = append(matched, tr)
	}
	if len(matched) == 0 || sum.Sign() <= 0 {
		return nil, schema.NewError(schema.KindNoValidTransfer, "no USDT transfer from %s to treasury in %s", from, h)
	}

	var blockNumber uint64
	if receipt.BlockNumber != nil {
		blockNumber = receipt.BlockNumber.Uint64()
	}
	return &Payment{
		TxHash:      h,
		From:        from,
		Amount:      decimal.NewFromBigInt(sum, -p.usdtDecimals),
		BlockNumber: blockNumber,
		Transfers:   matched,
	}, nil
}

func (p *PaymentVerifier) processedTx(pay *Payment, credits int64, purpose string) *schema.ProcessedTransaction {
	transfers, _ := json.Marshal(pay.Transfers)
	return &schema.ProcessedTransaction{
		TxHash:         pay.TxHash,
		FromWallet:     pay.From,
		ToWallet:       normalizeWallet(p.treasury.Hex()),
		UsdtAmount:     pay.Amount.String(),
		CreditsGranted: credits,
		BlockNumber:    pay.BlockNumber,
		Chain:          p.chain,
		Purpose:        purpose,
		Transfers:      transfers,
	}
}
