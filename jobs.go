package pollmint

import (
	"context"
	"sync"
	"time"

	"github.com/everFinance/pollmint/schema"
	"github.com/panjf2000/ants/v2"
)

const (
	jobWorkers        = 8
	reconcileBatch    = 50
	reconcileMinAge   = 30 * time.Second
	monitorJobTimeout = 2 * time.Minute
)

func (s *Pollmint) runJobs() {
	if s.enableMonitor {
		s.scheduler.Every(15).Seconds().SingletonMode().Do(s.monitorTreasury)
	}
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.reconcileCoins)
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.activatePackages)
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.updateOperatorBalances)
	if s.oracle != nil {
		s.scheduler.Every(2).Minutes().SingletonMode().Do(s.refreshPrices)
	}

	s.scheduler.StartAsync()
}

// monitorTreasury scans new blocks for treasury deposits, advancing the cursor only
// when the whole range was handled.
func (s *Pollmint) monitorTreasury() {
	ctx, cancel := context.WithTimeout(context.Background(), monitorJobTimeout)
	defer cancel()

	latest, err := s.reader.BlockNumber(ctx)
	if err != nil {
		log.Error("s.reader.BlockNumber()", "err", err)
		return
	}
	cursor, err := s.wdb.GetCursor(schema.ChainBase)
	if err != nil {
		log.Error("s.wdb.GetCursor()", "err", err)
		return
	}
	if cursor == 0 {
		// first run starts from the head instead of genesis
		if err := s.wdb.SaveCursor(schema.ChainBase, latest); err != nil {
			log.Error("s.wdb.SaveCursor()", "err", err)
		}
		return
	}
	if cursor >= latest {
		return
	}
	to := cursor + s.config.MonitorBlockRange()
	if to > latest {
		to = latest
	}

	credited, err := s.verifier.ScanTreasury(ctx, cursor+1, to, jobWorkers)
	if err != nil {
		log.Error("s.verifier.ScanTreasury()", "err", err, "from", cursor+1, "to", to)
		return
	}
	if err := s.wdb.SaveCursor(schema.ChainBase, to); err != nil {
		log.Error("s.wdb.SaveCursor()", "err", err, "block", to)
		return
	}
	if credited > 0 {
		log.Info("treasury deposits credited", "count", credited, "from", cursor+1, "to", to)
	}
}

func (s *Pollmint) reconcileCoins() {
	coins, err := s.voter.PendingCoins(reconcileMinAge, reconcileBatch)
	if err != nil {
		log.Error("s.voter.PendingCoins()", "err", err)
		return
	}
	if len(coins) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), monitorJobTimeout)
	defer cancel()
	var wg sync.WaitGroup
	p, err := ants.NewPoolWithFunc(jobWorkers, func(i interface{}) {
		defer wg.Done()
		coin := i.(schema.GeneratedCoin)
		if err := s.voter.ReconcileCoin(ctx, coin); err != nil {
			log.Error("s.voter.ReconcileCoin(coin)", "err", err, "coinId", coin.ID)
		}
	})
	if err != nil {
		log.Error("ants.NewPoolWithFunc()", "err", err)
		return
	}
	defer p.Release()

	for _, coin := range coins {
		wg.Add(1)
		if err := p.Invoke(coin); err != nil {
			wg.Done()
			log.Error("p.Invoke(coin)", "err", err, "coinId", coin.ID)
		}
	}
	wg.Wait()
}

func (s *Pollmint) activatePackages() {
	pkgs, err := s.packages.PendingPackages(reconcileBatch)
	if err != nil {
		log.Error("s.packages.PendingPackages()", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), monitorJobTimeout)
	defer cancel()
	for _, pkg := range pkgs {
		if err := s.packages.ActivatePending(ctx, pkg); err != nil {
			log.Error("s.packages.ActivatePending(pkg)", "err", err, "id", pkg.ID)
		}
	}
}

func (s *Pollmint) updateOperatorBalances() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, b := range s.minter.Backends() {
		bal, err := b.NativeBalance(ctx)
		if err != nil {
			log.Error("b.NativeBalance()", "err", err, "chain", b.Chain())
			continue
		}
		metricOperatorBalance(b.Chain(), b.OperatorAddress(), bal)
		if bal.LessThan(s.config.DeployReserve(b.Chain())) {
			log.Warn("operator balance below deploy reserve", "chain", b.Chain(), "balance", bal)
		}
	}
}

func (s *Pollmint) refreshPrices() {
	s.oracle.Refresh(nativeSymbol(schema.ChainBase), nativeSymbol(schema.ChainSolana))
}
