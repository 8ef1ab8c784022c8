package pollmint

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/everFinance/pollmint/chain/evm"
	"github.com/everFinance/pollmint/schema"
	"github.com/panjf2000/ants/v2"
)

// ScanTreasury credits the senders of USDT transfers to the treasury in blocks [from, to]
// through the same replay-guarded path as VerifyPayment. The returned error is the
// first failure that is worth retrying the range for.
func (p *PaymentVerifier) ScanTreasury(ctx context.Context, from, to uint64, workers int) (int, error) {
	logs, err := p.reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{p.usdt},
		Topics:    [][]common.Hash{{evm.TransferEventID}, nil, {evm.AddressTopic(p.treasury)}},
	})
	if err != nil {
		return 0, err
	}

	senders := make(map[string]string)
	hashes := make([]string, 0, len(logs))
	for _, lg := range logs {
		tr, ok := evm.ParseTransfer(lg)
		if !ok || lg.Removed {
			continue
		}
		h := strings.ToLower(lg.TxHash.Hex())
		if _, seen := senders[h]; seen {
			continue
		}
		senders[h] = tr.From
		hashes = append(hashes, h)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		credited int
		firstErr error
		wg       sync.WaitGroup
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			credited++
		} else if firstErr == nil {
			firstErr = err
		}
	}
	pool, err := ants.NewPoolWithFunc(workers, func(i interface{}) {
		defer wg.Done()
		h := i.(string)
		_, err := p.VerifyPayment(ctx, h, senders[h])
		switch schema.KindOf(err) {
		case schema.KindAlreadyProcessed, schema.KindNoValidTransfer:
			return
		}
		if err != nil {
			log.Error("p.VerifyPayment(monitored)", "err", err, "txHash", h)
		}
		record(err)
	})
	if err != nil {
		return 0, err
	}
	defer pool.Release()

	for _, h := range hashes {
		wg.Add(1)
		if err := pool.Invoke(h); err != nil {
			wg.Done()
			record(err)
		}
	}
	wg.Wait()
	return credited, firstErr
}
