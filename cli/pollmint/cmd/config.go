package cmd

import (
	"github.com/everFinance/pollmint"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string `mapstructure:"port"`
	MetricPort string `mapstructure:"metric_port"`
	SentryDsn  string `mapstructure:"sentry_dsn"`
	Env        string `mapstructure:"env"`

	Mysql     string `mapstructure:"mysql"`
	UseSqlite bool   `mapstructure:"use_sqlite"`
	SqliteDir string `mapstructure:"sqlite_dir"`

	Base struct {
		Rpc          string `mapstructure:"rpc"`
		ChainID      int64  `mapstructure:"chain_id"`
		OperatorKey  string `mapstructure:"operator_key"`
		Factory      string `mapstructure:"factory"`
		Usdt         string `mapstructure:"usdt"`
		UsdtDecimals int32  `mapstructure:"usdt_decimals"`
		Treasury     string `mapstructure:"treasury"`
		Monitor      bool   `mapstructure:"monitor"`
	} `mapstructure:"base"`

	Solana struct {
		Rpc         string `mapstructure:"rpc"`
		OperatorKey string `mapstructure:"operator_key"`
	} `mapstructure:"solana"`

	AdminKey     string `mapstructure:"admin_key"`
	PriceOracle  string `mapstructure:"price_oracle"`
	PricePath    string `mapstructure:"price_path"`
	GasProviders string `mapstructure:"gas_providers"`
	KafkaUri     string `mapstructure:"kafka_uri"`
	RateLimit    int    `mapstructure:"rate_limit"`

	// address of a running server, used by the client commands
	Server string `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8080")
	v.SetDefault("metric_port", ":9000")
	v.SetDefault("env", "dev")
	v.SetDefault("sqlite_dir", "./data/sqlite")
	v.SetDefault("base.rpc", "https://mainnet.base.org")
	v.SetDefault("base.chain_id", 8453)
	v.SetDefault("base.usdt_decimals", 6)
	v.SetDefault("base.monitor", true)
	v.SetDefault("solana.rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("price_path", "price")
	v.SetDefault("rate_limit", 60)
	v.SetDefault("server", "http://127.0.0.1:8080")
}

func (c Config) Options() pollmint.Options {
	return pollmint.Options{
		MysqlDsn:          c.Mysql,
		SqliteDir:         c.SqliteDir,
		UseSqlite:         c.UseSqlite,
		EvmRpc:            c.Base.Rpc,
		ChainID:           c.Base.ChainID,
		OperatorKey:       c.Base.OperatorKey,
		FactoryAddr:       c.Base.Factory,
		UsdtContract:      c.Base.Usdt,
		UsdtDecimals:      c.Base.UsdtDecimals,
		Treasury:          c.Base.Treasury,
		SolanaRpc:         c.Solana.Rpc,
		SolanaOperatorKey: c.Solana.OperatorKey,
		AdminKey:          c.AdminKey,
		PriceOracleUrl:    c.PriceOracle,
		PricePath:         c.PricePath,
		GasProviders:      c.GasProviders,
		KafkaUri:          c.KafkaUri,
		EnableMonitor:     c.Base.Monitor,
		RateLimit:         c.RateLimit,
	}
}
