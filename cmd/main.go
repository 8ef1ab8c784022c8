package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/everFinance/pollmint"
	"github.com/everFinance/pollmint/common"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "pollmint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/pollmint?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},

			&cli.StringFlag{Name: "evm_rpc", Value: "https://mainnet.base.org", Usage: "base rpc url", EnvVars: []string{"EVM_RPC"}},
			&cli.Int64Flag{Name: "chain_id", Value: 8453, EnvVars: []string{"CHAIN_ID"}},
			&cli.StringFlag{Name: "operator_key", Usage: "hex private key of the base operator wallet", EnvVars: []string{"OPERATOR_KEY"}},
			&cli.StringFlag{Name: "factory", Usage: "meme coin factory contract", EnvVars: []string{"FACTORY_ADDRESS"}},
			&cli.StringFlag{Name: "usdt", Value: "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2", Usage: "usdt contract on base", EnvVars: []string{"USDT_CONTRACT"}},
			&cli.IntFlag{Name: "usdt_decimals", Value: 6, EnvVars: []string{"USDT_DECIMALS"}},
			&cli.StringFlag{Name: "treasury", Usage: "wallet receiving usdt payments", EnvVars: []string{"TREASURY_WALLET"}},

			&cli.StringFlag{Name: "solana_rpc", Value: "https://api.mainnet-beta.solana.com", EnvVars: []string{"SOLANA_RPC"}},
			&cli.StringFlag{Name: "solana_key", Usage: "base58 secret key of the solana operator", EnvVars: []string{"SOLANA_OPERATOR_KEY"}},

			&cli.StringFlag{Name: "admin_key", EnvVars: []string{"ADMIN_KEY"}},
			&cli.StringFlag{Name: "price_oracle", Usage: "native coin price api", EnvVars: []string{"PRICE_ORACLE_URL"}},
			&cli.StringFlag{Name: "price_path", Value: "price", Usage: "gjson path of the price field", EnvVars: []string{"PRICE_PATH"}},
			&cli.StringFlag{Name: "gas_providers", Usage: "name=url,name=url", EnvVars: []string{"GAS_PROVIDERS"}},
			&cli.StringFlag{Name: "kafka_uri", EnvVars: []string{"KAFKA_URI"}},
			&cli.BoolFlag{Name: "monitor", Value: true, Usage: "scan treasury transfers", EnvVars: []string{"ENABLE_MONITOR"}},
			&cli.IntFlag{Name: "rate_limit", Value: 60, Usage: "requests per minute on paid endpoints", EnvVars: []string{"RATE_LIMIT"}},

			&cli.StringFlag{Name: "sentry_dsn", EnvVars: []string{"SENTRY_DSN"}},
			&cli.StringFlag{Name: "env", Value: "dev", EnvVars: []string{"ENV"}},
			&cli.StringFlag{Name: "metric_port", Value: ":9000", EnvVars: []string{"METRIC_PORT"}},
			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	if dsn := c.String("sentry_dsn"); dsn != "" {
		if err := common.InitSentry(dsn, c.String("env")); err != nil {
			return err
		}
	}
	common.NewMetricServer(c.String("metric_port"))

	s := pollmint.New(pollmint.Options{
		MysqlDsn:          c.String("mysql"),
		SqliteDir:         c.String("sqlite_dir"),
		UseSqlite:         c.Bool("use_sqlite"),
		EvmRpc:            c.String("evm_rpc"),
		ChainID:           c.Int64("chain_id"),
		OperatorKey:       c.String("operator_key"),
		FactoryAddr:       c.String("factory"),
		UsdtContract:      c.String("usdt"),
		UsdtDecimals:      int32(c.Int("usdt_decimals")),
		Treasury:          c.String("treasury"),
		SolanaRpc:         c.String("solana_rpc"),
		SolanaOperatorKey: c.String("solana_key"),
		AdminKey:          c.String("admin_key"),
		PriceOracleUrl:    c.String("price_oracle"),
		PricePath:         c.String("price_path"),
		GasProviders:      c.String("gas_providers"),
		KafkaUri:          c.String("kafka_uri"),
		EnableMonitor:     c.Bool("monitor"),
		RateLimit:         c.Int("rate_limit"),
	})
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
