package cache

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cache struct {
	Cache ICache
}

type ICache interface {
	Set(key string, entry []byte) error

	Get(key string) ([]byte, error)
}

func NewLocalCache(allKeysExpTime time.Duration) (*Cache, error) {
	cache, err := NewBigCache(allKeysExpTime)
	if err != nil {
		return nil, err
	}
	return &Cache{Cache: cache}, nil
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// SetPrice stores the usd price of a native token symbol, e.g. "ETH".
func (c *Cache) SetPrice(symbol string, price decimal.Decimal) error {
	return c.Cache.Set(priceKey(symbol), []byte(price.String()))
}

// GetPrice returns the cached usd price; false when missing or expired.
func (c *Cache) GetPrice(symbol string) (decimal.Decimal, bool) {
	by, err := c.Cache.Get(priceKey(symbol))
	if err != nil {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(string(by))
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}
