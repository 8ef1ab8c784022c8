package pollmint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/everFinance/pollmint/cache"
	"github.com/everFinance/pollmint/schema"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"
)

const (
	DefaultHttpTimeout = 15 * time.Second
	// extra usdt a provider may spend on top of the quoted price
	gasSlippage = "1.1"
)

func nativeSymbol(chain string) string {
	if chain == schema.ChainSolana {
		return "SOL"
	}
	return "ETH"
}

// PriceOracle serves usd prices of native tokens, cached locally.
type PriceOracle struct {
	cli   *gentleman.Client
	cache *cache.Cache
	// gjson path of the price in the oracle response, e.g. "price" or "data.usd"
	path string
}

func NewPriceOracle(url, path string, c *cache.Cache) *PriceOracle {
	if path == "" {
		path = "price"
	}
	return &PriceOracle{
		cli:   gentleman.New().URL(url).Use(timeout.Request(DefaultHttpTimeout)),
		cache: c,
		path:  path,
	}
}

func (o *PriceOracle) Price(symbol string) (decimal.Decimal, error) {
	if price, ok := o.cache.GetPrice(symbol); ok {
		return price, nil
	}
	return o.fetch(symbol)
}

func (o *PriceOracle) fetch(symbol string) (decimal.Decimal, error) {
	req := o.cli.Get()
	req.AddPath(fmt.Sprintf("/price/%s", symbol))
	resp, err := req.Send()
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Close()
	if !resp.Ok {
		return decimal.Zero, fmt.Errorf("price oracle status %d: %s", resp.StatusCode, resp.String())
	}
	res := gjson.Get(resp.String(), o.path)
	if !res.Exists() {
		return decimal.Zero, fmt.Errorf("price oracle response has no %q", o.path)
	}
	price, err := decimal.NewFromString(res.String())
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid price %q", res.String())
	}
	if err := o.cache.SetPrice(symbol, price); err != nil {
		log.Warn("o.cache.SetPrice", "err", err, "symbol", symbol)
	}
	return price, nil
}

// Refresh reloads prices into the cache.
func (o *PriceOracle) Refresh(symbols ...string) {
	for _, s := range symbols {
		if _, err := o.fetch(s); err != nil {
			log.Error("o.fetch(symbol)", "err", err, "symbol", s)
		}
	}
}

// GasProvider swaps or bridges value into native gas for the operator.
type GasProvider interface {
	Name() string
	Convert(ctx context.Context, chain, recipient string, amount, maxUsdt decimal.Decimal) (string, error)
}

// HTTPGasProvider calls a bridge/dex service exposing POST /convert.
type HTTPGasProvider struct {
	name string
	cli  *gentleman.Client
}

func NewHTTPGasProvider(name, url string) *HTTPGasProvider {
	return &HTTPGasProvider{
		name: name,
		cli:  gentleman.New().URL(url).Use(timeout.Request(DefaultHttpTimeout)),
	}
}

func (h *HTTPGasProvider) Name() string {
	return h.name
}

func (h *HTTPGasProvider) Convert(ctx context.Context, chain, recipient string, amount, maxUsdt decimal.Decimal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body := map[string]string{
		"chain":     chain,
		"recipient": recipient,
		"amount":    amount.String(),
	}
	if maxUsdt.IsPositive() {
		body["maxUsdt"] = maxUsdt.StringFixed(2)
	}
	req := h.cli.Post()
	req.AddPath("/convert")
	req.JSON(body)
	resp, err := req.Send()
	if err != nil {
		return "", err
	}
	defer resp.Close()
	text := resp.String()
	if !resp.Ok {
		return "", fmt.Errorf("%s status %d: %s", h.name, resp.StatusCode, text)
	}
	if !gjson.Get(text, "success").Bool() {
		return "", fmt.Errorf("%s rejected conversion: %s", h.name, gjson.Get(text, "error").String())
	}
	return gjson.Get(text, "txHash").String(), nil
}

// GasConverter tries providers in order until one succeeds.
type GasConverter struct {
	providers []GasProvider
	oracle    *PriceOracle
}

func NewGasConverter(oracle *PriceOracle, providers ...GasProvider) *GasConverter {
	return &GasConverter{providers: providers, oracle: oracle}
}

// ParseGasProviders reads "name=url,name=url".
func ParseGasProviders(s string) []GasProvider {
	res := make([]GasProvider, 0)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, url := item, item
		if kv := strings.SplitN(item, "=", 2); len(kv) == 2 {
			name, url = kv[0], kv[1]
		}
		res = append(res, NewHTTPGasProvider(name, url))
	}
	return res
}

func (g *GasConverter) Convert(ctx context.Context, chain, recipient string, amount decimal.Decimal) error {
	if len(g.providers) == 0 {
		return errors.New("no gas providers configured")
	}
	maxUsdt := decimal.Zero
	if g.oracle != nil {
		if price, err := g.oracle.Price(nativeSymbol(chain)); err == nil {
			maxUsdt = amount.Mul(price).Mul(decimal.RequireFromString(gasSlippage))
		} else {
			log.Warn("gas price unavailable, converting without a cap", "err", err, "chain", chain)
		}
	}

	errs := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		txHash, err := p.Convert(ctx, chain, recipient, amount, maxUsdt)
		if err == nil {
			log.Info("gas converted", "provider", p.Name(), "chain", chain, "amount", amount, "txHash", txHash)
			return nil
		}
		log.Warn("gas provider failed", "provider", p.Name(), "err", err)
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
	}
	return fmt.Errorf("all gas providers failed: %s", strings.Join(errs, "; "))
}
