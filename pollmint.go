package pollmint

import (
	"context"
	"time"

	"github.com/everFinance/pollmint/cache"
	"github.com/everFinance/pollmint/chain/evm"
	"github.com/everFinance/pollmint/chain/solana"
	"github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/config"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
)

var log = common.NewLog("pollmint")

type Options struct {
	MysqlDsn  string
	SqliteDir string
	UseSqlite bool

	EvmRpc       string
	ChainID      int64
	OperatorKey  string // hex secp256k1 key of the base operator
	FactoryAddr  string
	UsdtContract string
	UsdtDecimals int32
	Treasury     string

	SolanaRpc         string
	SolanaOperatorKey string // base58 64-byte secret key

	AdminKey       string
	PriceOracleUrl string
	PricePath      string
	GasProviders   string // "name=url,name=url"
	KafkaUri       string

	EnableMonitor bool
	RateLimit     int // requests per minute on paid endpoints, 0 disables
}

type Pollmint struct {
	engine    *gin.Engine
	scheduler *gocron.Scheduler
	config    *config.Config
	wdb       *Wdb
	reader    EvmReader
	publisher Publisher
	oracle    *PriceOracle

	ledger   *Ledger
	verifier *PaymentVerifier
	registry *Registry
	minter   *Minter
	voter    *Voter
	packages *Packages

	adminKey      string
	enableMonitor bool
	rateLimit     int
}

func New(opts Options) *Pollmint {
	var wdb *Wdb
	if opts.UseSqlite {
		wdb = NewSqliteDb(opts.SqliteDir)
	} else {
		wdb = NewMysqlDb(opts.MysqlDsn)
	}
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ethCli, err := evm.Dial(ctx, opts.EvmRpc)
	if err != nil {
		panic(err)
	}

	backends := make([]CoinBackend, 0, 2)
	if opts.OperatorKey != "" {
		b, err := evm.NewBackend(ethCli, opts.OperatorKey, opts.ChainID, opts.FactoryAddr)
		if err != nil {
			panic(err)
		}
		backends = append(backends, b)
	}
	if opts.SolanaOperatorKey != "" {
		b, err := solana.NewBackend(solanarpc.New(opts.SolanaRpc), opts.SolanaOperatorKey)
		if err != nil {
			panic(err)
		}
		backends = append(backends, b)
	}

	var publisher Publisher = nopPublisher{}
	if opts.KafkaUri != "" {
		publisher = NewKafkaPublisher(opts.KafkaUri)
	}

	var oracle *PriceOracle
	if opts.PriceOracleUrl != "" {
		priceCache, err := cache.NewLocalCache(5 * time.Minute)
		if err != nil {
			panic(err)
		}
		oracle = NewPriceOracle(opts.PriceOracleUrl, opts.PricePath, priceCache)
	}
	var gas *GasConverter
	if providers := ParseGasProviders(opts.GasProviders); len(providers) > 0 {
		gas = NewGasConverter(oracle, providers...)
	}

	return newPollmint(wdb, ethCli, publisher, oracle, gas, opts, backends...)
}

func newPollmint(wdb *Wdb, reader EvmReader, publisher Publisher, oracle *PriceOracle, gas *GasConverter,
	opts Options, backends ...CoinBackend) *Pollmint {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if opts.UsdtDecimals == 0 {
		opts.UsdtDecimals = 6
	}
	conf := config.New(wdb.Db)
	ledger := NewLedger(wdb)
	registry := NewRegistry(wdb)
	verifier := NewPaymentVerifier(wdb, ledger, conf, reader, publisher, opts.UsdtContract, opts.Treasury, opts.UsdtDecimals)
	minter := NewMinter(wdb, registry, conf, gas, publisher, backends...)

	return &Pollmint{
		engine:        gin.Default(),
		scheduler:     gocron.NewScheduler(time.UTC),
		config:        conf,
		wdb:           wdb,
		reader:        reader,
		publisher:     publisher,
		oracle:        oracle,
		ledger:        ledger,
		verifier:      verifier,
		registry:      registry,
		minter:        minter,
		voter:         NewVoter(wdb, ledger, minter, publisher),
		packages:      NewPackages(wdb, verifier, conf, publisher),
		adminKey:      opts.AdminKey,
		enableMonitor: opts.EnableMonitor,
		rateLimit:     opts.RateLimit,
	}
}

func (s *Pollmint) Run(port string) {
	s.config.Run()
	go s.runAPI(port)
	go s.runJobs()
}

func (s *Pollmint) Close() {
	s.scheduler.Stop()
	s.config.Close()
	if kp, ok := s.publisher.(*KafkaPublisher); ok {
		kp.Close()
	}
	s.wdb.Close()
}
