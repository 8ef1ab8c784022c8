package solana

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	pcommon "github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/schema"
	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/shopspring/decimal"
)

var log = pcommon.NewLog("solana")

const (
	TokenDecimals         = 9
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// RPC is the part of *rpc.Client the backend uses.
type RPC interface {
	GetBalance(ctx context.Context, account solanago.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	GetAccountInfo(ctx context.Context, account solanago.PublicKey) (*rpc.GetAccountInfoResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solanago.Transaction, opts rpc.TransactionOpts) (solanago.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solanago.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// Backend creates SPL mints owned by the operator and mints to associated token accounts.
// Coin names and symbols are kept off chain.
type Backend struct {
	rpc            RPC
	operator       solanago.PrivateKey
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// NewBackend takes the operator keypair as base58 of the 64-byte secret key.
func NewBackend(client RPC, operatorKey string) (*Backend, error) {
	key, err := solanago.PrivateKeyFromBase58(operatorKey)
	if err != nil {
		return nil, fmt.Errorf("decode operator key: %w", err)
	}
	return &Backend{
		rpc:            client,
		operator:       key,
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   DefaultPollInterval,
	}, nil
}

func (b *Backend) SetConfirm(timeout, pollInterval time.Duration) {
	b.confirmTimeout = timeout
	b.pollInterval = pollInterval
}

func (b *Backend) Chain() string {
	return schema.ChainSolana
}

func (b *Backend) OperatorAddress() string {
	return b.operator.PublicKey().String()
}

func (b *Backend) ValidateAddress(addr string) bool {
	pk, err := solanago.PublicKeyFromBase58(addr)
	return err == nil && pk.IsOnCurve()
}

// NativeBalance returns the operator balance in SOL.
func (b *Backend) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	res, err := b.rpc.GetBalance(ctx, b.operator.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(res.Value), -9), nil
}

func (b *Backend) Deploy(ctx context.Context, name, symbol, to string) (schema.DeployResult, error) {
	owner, err := solanago.PublicKeyFromBase58(to)
	if err != nil {
		return schema.DeployResult{}, err
	}
	mintKey, err := solanago.NewRandomPrivateKey()
	if err != nil {
		return schema.DeployResult{}, err
	}
	mint := mintKey.PublicKey()
	res := schema.DeployResult{TokenAddress: mint.String()}

	rent, err := b.rpc.GetMinimumBalanceForRentExemption(ctx, token.MINT_SIZE, rpc.CommitmentConfirmed)
	if err != nil {
		return res, err
	}
	operator := b.operator.PublicKey()
	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return res, err
	}
	createMint, err := system.NewCreateAccountInstruction(rent, token.MINT_SIZE, solanago.TokenProgramID, operator, mint).ValidateAndBuild()
	if err != nil {
		return res, err
	}
	initMint, err := token.NewInitializeMint2InstructionBuilder().
		SetDecimals(TokenDecimals).
		SetMintAuthority(operator).
		SetMintAccount(mint).
		ValidateAndBuild()
	if err != nil {
		return res, err
	}
	createAta, err := associatedtokenaccount.NewCreateInstruction(operator, owner, mint).ValidateAndBuild()
	if err != nil {
		return res, err
	}
	mintTo, err := b.mintToInstruction(mint, ata)
	if err != nil {
		return res, err
	}

	log.Info("deploy spl mint", "mint", res.TokenAddress, "name", name, "symbol", symbol, "owner", to)
	res.TxHash, err = b.sendAndConfirm(ctx, []solanago.Instruction{createMint, initMint, createAta, mintTo}, mintKey)
	return res, err
}

func (b *Backend) MintTo(ctx context.Context, tokenAddr, to string) (string, error) {
	mint, err := solanago.PublicKeyFromBase58(tokenAddr)
	if err != nil {
		return "", err
	}
	owner, err := solanago.PublicKeyFromBase58(to)
	if err != nil {
		return "", err
	}
	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", err
	}

	ixs := make([]solanago.Instruction, 0, 2)
	_, err = b.rpc.GetAccountInfo(ctx, ata)
	switch {
	case errors.Is(err, rpc.ErrNotFound):
		createAta, err := associatedtokenaccount.NewCreateInstruction(b.operator.PublicKey(), owner, mint).ValidateAndBuild()
		if err != nil {
			return "", err
		}
		ixs = append(ixs, createAta)
	case err != nil:
		return "", fmt.Errorf("read token account %s: %w", ata, err)
	}
	mintTo, err := b.mintToInstruction(mint, ata)
	if err != nil {
		return "", err
	}
	return b.sendAndConfirm(ctx, append(ixs, mintTo))
}

func (b *Backend) TxStatus(ctx context.Context, txHash string) (schema.TxResult, error) {
	sig, err := solanago.SignatureFromBase58(txHash)
	if err != nil {
		return schema.TxResult{}, fmt.Errorf("invalid signature %q: %w", txHash, err)
	}
	st, err := b.signatureStatus(ctx, sig)
	if err != nil {
		return schema.TxResult{}, err
	}
	switch {
	case st == nil:
		return schema.TxResult{Status: schema.TxPending}, nil
	case st.Err != nil:
		return schema.TxResult{Status: schema.TxFailed}, nil
	case confirmed(st):
		return schema.TxResult{Status: schema.TxConfirmed}, nil
	default:
		return schema.TxResult{Status: schema.TxPending}, nil
	}
}

func (b *Backend) mintToInstruction(mint, ata solanago.PublicKey) (solanago.Instruction, error) {
	return token.NewMintToInstruction(oneToken(), mint, ata, b.operator.PublicKey(), nil).ValidateAndBuild()
}

// signatureStatus returns nil when the cluster does not know the signature.
func (b *Backend) signatureStatus(ctx context.Context, sig solanago.Signature) (*rpc.SignatureStatusesResult, error) {
	res, err := b.rpc.GetSignatureStatuses(ctx, true, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

// sendAndConfirm signs with the operator as fee payer plus extra signers and returns
// the signature whenever the transaction may have reached the cluster.
func (b *Backend) sendAndConfirm(ctx context.Context, ixs []solanago.Instruction, extra ...solanago.PrivateKey) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.confirmTimeout)
	defer cancel()

	latest, err := b.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", err
	}
	if latest == nil || latest.Value == nil {
		return "", errors.New("empty latest blockhash")
	}
	tx, err := solanago.NewTransaction(ixs, latest.Value.Blockhash, solanago.TransactionPayer(b.operator.PublicKey()))
	if err != nil {
		return "", err
	}
	signers := append([]solanago.PrivateKey{b.operator}, extra...)
	if _, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return "", err
	}
	sig := tx.Signatures[0]

	if _, err = b.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{PreflightCommitment: rpc.CommitmentConfirmed}); err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			// rejected in preflight, never landed
			return "", err
		}
		return sig.String(), err
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		st, err := b.signatureStatus(ctx, sig)
		if err == nil && st != nil {
			if st.Err != nil {
				return sig.String(), fmt.Errorf("transaction %s: %v: %w", sig, st.Err, schema.ErrTxReverted)
			}
			if confirmed(st) {
				return sig.String(), nil
			}
		}
		select {
		case <-ctx.Done():
			return sig.String(), fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func confirmed(st *rpc.SignatureStatusesResult) bool {
	return st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		st.ConfirmationStatus == rpc.ConfirmationStatusFinalized
}

func oneToken() uint64 {
	amount := uint64(1)
	for i := 0; i < TokenDecimals; i++ {
		amount *= 10
	}
	return amount
}
