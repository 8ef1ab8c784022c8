package pollmint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/everFinance/pollmint/config"
	"github.com/everFinance/pollmint/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameAttempts = 100
	balanceTimeout  = 10 * time.Second
)

// CoinBackend is one blockchain able to deploy meme coins and mint them to wallets.
//
// Deploy and MintTo return a transaction hash together with an error when the
// transaction was broadcast but its outcome is unknown; errors wrapping
// schema.ErrTxReverted, or carrying no hash, are definite failures.
type CoinBackend interface {
	Chain() string
	OperatorAddress() string
	ValidateAddress(addr string) bool
	NativeBalance(ctx context.Context) (decimal.Decimal, error)
	Deploy(ctx context.Context, name, symbol, to string) (schema.DeployResult, error)
	MintTo(ctx context.Context, token, to string) (string, error)
	TxStatus(ctx context.Context, txHash string) (schema.TxResult, error)
}

type MintRequest struct {
	UserID       string
	Poll         *schema.Poll
	Option       string
	Wallet       string
	CreditWallet string
	VoteID       uint
	Demo         bool
}

// Minter issues at most one coin per (user, poll, option). A pending coin row is
// written before any chain call and is the idempotency key for retries and reconciliation.
type Minter struct {
	wdb       *Wdb
	registry  *Registry
	conf      *config.Config
	backends  map[string]CoinBackend
	gas       *GasConverter
	publisher Publisher
}

func NewMinter(wdb *Wdb, registry *Registry, conf *config.Config, gas *GasConverter, publisher Publisher, backends ...CoinBackend) *Minter {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	m := &Minter{
		wdb:       wdb,
		registry:  registry,
		conf:      conf,
		backends:  make(map[string]CoinBackend),
		gas:       gas,
		publisher: publisher,
	}
	for _, b := range backends {
		if b != nil {
			m.backends[b.Chain()] = b
		}
	}
	return m
}

func (m *Minter) Backend(chain string) (CoinBackend, bool) {
	b, ok := m.backends[pollChain(chain)]
	return b, ok
}

func (m *Minter) Backends() []CoinBackend {
	res := make([]CoinBackend, 0, len(m.backends))
	for _, b := range m.backends {
		res = append(res, b)
	}
	return res
}

func pollChain(chain string) string {
	if chain == "" {
		return schema.ChainBase
	}
	return chain
}

// Mint returns the coin for the request's key, creating it on first call.
// A returned coin may still be pending when the chain outcome is not yet known.
func (m *Minter) Mint(ctx context.Context, req MintRequest) (*schema.GeneratedCoin, error) {
	if existing, err := m.wdb.GetCoin(req.UserID, req.Poll.ID, req.Option); err == nil {
		return existing, nil
	} else if !errors.Is(err, schema.ErrNotExist) {
		return nil, err
	}

	chain := pollChain(req.Poll.Blockchain)
	var backend CoinBackend
	if !req.Demo {
		var ok bool
		if backend, ok = m.backends[chain]; !ok {
			return nil, schema.NewError(schema.KindInvalidParams, "unsupported blockchain %q", chain)
		}
		if !backend.ValidateAddress(req.Wallet) {
			return nil, schema.NewError(schema.KindInvalidWalletAddress, "invalid %s wallet %q", chain, req.Wallet)
		}
	}

	name, symbol, err := m.resolveName(req.Poll, req.Option)
	if err != nil {
		return nil, err
	}
	coin := &schema.GeneratedCoin{
		UserID:       req.UserID,
		PollID:       req.Poll.ID,
		Option:       req.Option,
		VoteID:       req.VoteID,
		CoinName:     name,
		CoinSymbol:   symbol,
		UserWallet:   req.Wallet,
		Blockchain:   chain,
		Kind:         schema.CoinKindDeploy,
		Status:       schema.CoinPending,
		CreditWallet: normalizeWallet(req.CreditWallet),
	}

	var entry *schema.TokenRegistryEntry
	if req.Demo {
		coin.Kind = schema.CoinKindDemo
		coin.UserWallet = schema.DemoWallet
	} else {
		var found bool
		if entry, found, err = m.registry.GetTokenAddress(req.Poll.ID, req.Option); err != nil {
			return nil, err
		}
		if found {
			coin.Kind = schema.CoinKindMint
		}
	}

	inserted, err := m.wdb.InsertCoin(coin)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// a concurrent call owns this key
		return m.wdb.GetCoin(req.UserID, req.Poll.ID, req.Option)
	}

	switch coin.Kind {
	case schema.CoinKindDemo:
		return m.markCreated(coin, schema.DemoAddrPrefix+uuid.NewString(), "")
	case schema.CoinKindMint:
		return m.mintExisting(ctx, backend, coin, entry.Address)
	default:
		return m.deploy(ctx, backend, coin)
	}
}

func (m *Minter) deploy(ctx context.Context, backend CoinBackend, coin *schema.GeneratedCoin) (*schema.GeneratedCoin, error) {
	if err := m.ensureGas(ctx, backend); err != nil {
		return nil, m.markFailed(coin, schema.KindInsufficientGas, err)
	}

	res, err := backend.Deploy(ctx, coin.CoinName, coin.CoinSymbol, coin.UserWallet)
	if err != nil {
		if res.TxHash != "" && !errors.Is(err, schema.ErrTxReverted) {
			log.Warn("deployment outcome unknown, left pending", "err", err, "txHash", res.TxHash, "coinId", coin.ID)
			return m.markPending(coin, res.TokenAddress, res.TxHash)
		}
		return nil, m.markFailed(coin, schema.KindTokenDeploymentFailed, err)
	}

	winner, err := m.register(coin, res.TokenAddress, res.TxHash)
	if err == nil && winner.Address != res.TokenAddress {
		log.Warn("lost registry race, minting from the registered token",
			"pollId", coin.PollID, "option", coin.Option, "own", res.TokenAddress, "registered", winner.Address)
		coin.Kind = schema.CoinKindMint
		if err := m.wdb.UpdateCoin(coin.ID, map[string]interface{}{"kind": coin.Kind}); err != nil {
			return nil, err
		}
		return m.mintExisting(ctx, backend, coin, winner.Address)
	}
	return m.markCreated(coin, res.TokenAddress, res.TxHash)
}

func (m *Minter) mintExisting(ctx context.Context, backend CoinBackend, coin *schema.GeneratedCoin, token string) (*schema.GeneratedCoin, error) {
	coin.CoinAddress = token
	txHash, err := backend.MintTo(ctx, token, coin.UserWallet)
	if err != nil {
		if txHash != "" && !errors.Is(err, schema.ErrTxReverted) {
			log.Warn("mint outcome unknown, left pending", "err", err, "txHash", txHash, "coinId", coin.ID)
			return m.markPending(coin, token, txHash)
		}
		return nil, m.markFailed(coin, schema.KindMintingFailed, err)
	}
	return m.markCreated(coin, token, txHash)
}

// register writes the registry entry for a confirmed deployment and returns the stored one.
func (m *Minter) register(coin *schema.GeneratedCoin, address, txHash string) (*schema.TokenRegistryEntry, error) {
	winner, err := m.registry.SetTokenAddress(schema.TokenRegistryEntry{
		PollID:       coin.PollID,
		Option:       coin.Option,
		CoinName:     coin.CoinName,
		CoinSymbol:   coin.CoinSymbol,
		Address:      address,
		Blockchain:   coin.Blockchain,
		DeployTxHash: txHash,
	})
	if err != nil {
		log.Error("m.registry.SetTokenAddress", "err", err, "key", registryKey(coin.PollID, coin.Option))
	}
	return winner, err
}

// ensureGas makes sure the operator can pay for a deployment, converting gas when short.
func (m *Minter) ensureGas(ctx context.Context, backend CoinBackend) error {
	reserve := m.conf.DeployReserve(backend.Chain())
	bal, err := m.nativeBalance(ctx, backend)
	if err != nil {
		return fmt.Errorf("read operator balance: %w", err)
	}
	if bal.GreaterThanOrEqual(reserve) {
		return nil
	}
	log.Warn("operator balance below deploy reserve", "chain", backend.Chain(), "balance", bal, "reserve", reserve)
	if m.gas != nil {
		if err := m.gas.Convert(ctx, backend.Chain(), backend.OperatorAddress(), reserve.Sub(bal)); err != nil {
			log.Error("m.gas.Convert", "err", err, "chain", backend.Chain())
		} else if bal, err = m.nativeBalance(ctx, backend); err != nil {
			return fmt.Errorf("read operator balance: %w", err)
		}
	}
	if bal.LessThan(reserve) {
		return fmt.Errorf("operator %s holds %s %s, needs %s",
			backend.OperatorAddress(), bal, nativeSymbol(backend.Chain()), reserve)
	}
	return nil
}

// resolveName picks the option's coin name, suffixing it while another option owns the name.
func (m *Minter) resolveName(poll *schema.Poll, option string) (string, string, error) {
	preview := coinPreview(poll, option)
	for n := 1; n <= maxNameAttempts; n++ {
		name, symbol := withSuffix(preview.CoinName, preview.CoinSymbol, n)
		entry, found, err := m.registry.GetByCoinName(name)
		if err != nil {
			return "", "", err
		}
		if !found || (entry.PollID == poll.ID && entry.Option == option) {
			return name, symbol, nil
		}
	}
	return "", "", fmt.Errorf("no free coin name for %q", preview.CoinName)
}

func (m *Minter) markCreated(coin *schema.GeneratedCoin, address, txHash string) (*schema.GeneratedCoin, error) {
	coin.Status = schema.CoinCreated
	coin.CoinAddress = address
	coin.TransactionHash = txHash
	err := m.wdb.UpdateCoin(coin.ID, map[string]interface{}{
		"status":           coin.Status,
		"coin_address":     address,
		"transaction_hash": txHash,
		"user_wallet":      coin.UserWallet,
	})
	if err != nil {
		return nil, err
	}
	m.emit(coin)
	return coin, nil
}

func (m *Minter) markPending(coin *schema.GeneratedCoin, address, txHash string) (*schema.GeneratedCoin, error) {
	coin.CoinAddress = address
	coin.TransactionHash = txHash
	err := m.wdb.UpdateCoin(coin.ID, map[string]interface{}{
		"coin_address":     address,
		"transaction_hash": txHash,
	})
	if err != nil {
		return nil, err
	}
	m.emit(coin)
	return coin, nil
}

// markFailed records the failure and returns it as a tagged error.
func (m *Minter) markFailed(coin *schema.GeneratedCoin, kind schema.Kind, cause error) error {
	coin.Status = schema.CoinFailed
	coin.ErrMsg = cause.Error()
	if err := m.wdb.UpdateCoin(coin.ID, map[string]interface{}{
		"status":  coin.Status,
		"err_msg": coin.ErrMsg,
	}); err != nil {
		log.Error("m.wdb.UpdateCoin", "err", err, "coinId", coin.ID)
	}
	m.emit(coin)
	return schema.WrapError(kind, cause, fmt.Sprintf("%s reward for poll %d option %s", coin.Blockchain, coin.PollID, coin.Option))
}

func (m *Minter) emit(coin *schema.GeneratedCoin) {
	metricCoin(coin.Blockchain, coin.Kind, coin.Status)
	m.publisher.Publish(CoinTopic, schema.KafkaCoin{
		PollID:      coin.PollID,
		UserID:      coin.UserID,
		Option:      coin.Option,
		CoinName:    coin.CoinName,
		CoinAddress: coin.CoinAddress,
		Blockchain:  coin.Blockchain,
		Kind:        coin.Kind,
		Status:      coin.Status,
		TxHash:      coin.TransactionHash,
	})
}

func (m *Minter) nativeBalance(ctx context.Context, backend CoinBackend) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, balanceTimeout)
	defer cancel()
	return backend.NativeBalance(ctx)
}
