package config

import (
	"sync"
	"time"

	"github.com/everFinance/pollmint/config/schema"
	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Config serves runtime params stored in the database and refreshes them periodically.
type Config struct {
	wdb       *Wdb
	scheduler *gocron.Scheduler

	mu        sync.RWMutex
	param     schema.Param
	whitelist map[string]struct{}
}

func New(db *gorm.DB) *Config {
	wdb := NewWdb(db)
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}
	param, err := wdb.GetParam()
	if err != nil {
		panic(err)
	}
	return &Config{
		wdb:       wdb,
		scheduler: gocron.NewScheduler(time.UTC),
		param:     param,
		whitelist: make(map[string]struct{}),
	}
}

func (c *Config) Run() {
	go c.runJobs()
}

func (c *Config) Close() {
	c.scheduler.Stop()
}

func (c *Config) Param() schema.Param {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.param
}

// CreditsPerUsdt is the number of credits granted per whole USDT.
func (c *Config) CreditsPerUsdt() decimal.Decimal {
	return parseDecimal(c.Param().CreditsPerUsdt, schema.DefaultCreditsPerUsdt)
}

func (c *Config) PackagePriceUsdt() decimal.Decimal {
	return parseDecimal(c.Param().PackagePriceUsdt, schema.DefaultPackagePriceUsdt)
}

func (c *Config) PackagePolls() int64 {
	if n := c.Param().PackagePolls; n > 0 {
		return n
	}
	return schema.DefaultPackagePolls
}

// DeployReserve is the native balance the operator must hold before deploying on chain.
func (c *Config) DeployReserve(chain string) decimal.Decimal {
	p := c.Param()
	if chain == "solana" {
		return parseDecimal(p.SolanaDeployReserve, schema.DefaultSolanaDeployReserve)
	}
	return parseDecimal(p.BaseDeployReserve, schema.DefaultBaseDeployReserve)
}

func (c *Config) MonitorBlockRange() uint64 {
	if n := c.Param().MonitorBlockRange; n > 0 {
		return n
	}
	return schema.DefaultMonitorBlockRange
}

func (c *Config) Whitelist() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.whitelist
}

func (c *Config) SetParam(param schema.Param) error {
	if err := c.wdb.SaveParam(param); err != nil {
		return err
	}
	c.mu.Lock()
	c.param = param
	c.mu.Unlock()
	return nil
}

func parseDecimal(s, def string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.RequireFromString(def)
	}
	return d
}
