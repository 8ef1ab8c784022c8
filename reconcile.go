package pollmint

import (
	"context"
	"time"

	"github.com/everFinance/pollmint/schema"
	"gorm.io/gorm"
)

const (
	// a pending coin without a tx hash never reached the chain
	unbroadcastTimeout = 10 * time.Minute
	// a broadcast tx the chain still does not know after this is treated as dropped
	droppedTxTimeout = time.Hour
)

// ReconcileCoin settles a pending coin from its chain status and refunds the
// vote credit when the reward turns out to have failed.
func (v *Voter) ReconcileCoin(ctx context.Context, coin schema.GeneratedCoin) error {
	if coin.Status != schema.CoinPending {
		return nil
	}
	age := time.Since(coin.UpdatedAt)
	if coin.TransactionHash == "" {
		if age > unbroadcastTimeout {
			return v.settleFailed(coin, "reward was never broadcast")
		}
		return nil
	}

	backend, ok := v.minter.Backend(coin.Blockchain)
	if !ok {
		return schema.NewError(schema.KindInvalidParams, "unsupported blockchain %q", coin.Blockchain)
	}
	res, err := backend.TxStatus(ctx, coin.TransactionHash)
	if err != nil {
		return err
	}
	switch res.Status {
	case schema.TxConfirmed:
		address := coin.CoinAddress
		if res.TokenAddress != "" {
			address = res.TokenAddress
		}
		if address == "" {
			return v.settleFailed(coin, "confirmed deployment without token address")
		}
		ok, err := v.wdb.SettleCoin(nil, coin.ID, map[string]interface{}{
			"status":       schema.CoinCreated,
			"coin_address": address,
		})
		if err != nil || !ok {
			return err
		}
		coin.Status, coin.CoinAddress = schema.CoinCreated, address
		if coin.Kind == schema.CoinKindDeploy {
			// the coin keeps its own contract; the registry keeps the first deployment
			winner, err := v.minter.register(&coin, address, coin.TransactionHash)
			if err == nil && winner.Address != address {
				log.Warn("confirmed deployment lost registry race",
					"coinId", coin.ID, "pollId", coin.PollID, "option", coin.Option, "own", address, "registered", winner.Address)
			}
		}
		v.minter.emit(&coin)
		log.Info("pending coin confirmed", "coinId", coin.ID, "txHash", coin.TransactionHash)
		return nil
	case schema.TxFailed:
		return v.settleFailed(coin, "reward transaction failed on chain")
	default:
		if age > droppedTxTimeout {
			return v.settleFailed(coin, "reward transaction dropped")
		}
		return nil
	}
}

// settleFailed marks the coin failed and refunds its credit in one transaction.
func (v *Voter) settleFailed(coin schema.GeneratedCoin, reason string) error {
	settled, refunded := false, false
	err := v.wdb.Db.Transaction(func(tx *gorm.DB) (err error) {
		settled, err = v.wdb.SettleCoin(tx, coin.ID, map[string]interface{}{
			"status":  schema.CoinFailed,
			"err_msg": reason,
		})
		if err != nil || !settled {
			return err
		}
		if coin.CreditWallet == "" {
			return nil
		}
		refunded, err = v.ledger.credit(tx, coin.CreditWallet, schema.VoteCreditCost, schema.ReasonRefund, voteRef(coin.PollID, coin.UserID))
		return err
	})
	if err != nil || !settled {
		return err
	}
	if refunded {
		metricCredits(schema.ReasonRefund, schema.VoteCreditCost)
	}
	coin.Status, coin.ErrMsg = schema.CoinFailed, reason
	v.minter.emit(&coin)
	log.Warn("pending coin failed", "coinId", coin.ID, "reason", reason, "refunded", refunded)
	return nil
}

func (v *Voter) PendingCoins(olderThan time.Duration, limit int) ([]schema.GeneratedCoin, error) {
	return v.wdb.GetPendingCoins(time.Now().Add(-olderThan), limit)
}
