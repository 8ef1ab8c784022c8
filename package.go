package pollmint

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/everFinance/pollmint/config"
	"github.com/everFinance/pollmint/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pendingPackageTimeout = time.Hour

// Packages sells meme coin poll packages for USDT; each meme coin poll a user
// creates consumes one poll from their oldest active package.
type Packages struct {
	wdb       *Wdb
	verifier  *PaymentVerifier
	conf      *config.Config
	publisher Publisher
}

func NewPackages(wdb *Wdb, verifier *PaymentVerifier, conf *config.Config, publisher Publisher) *Packages {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Packages{wdb: wdb, verifier: verifier, conf: conf, publisher: publisher}
}

// Purchase activates a package paid by txHash. The hash is claimed by a pending
// package before the receipt is read, so the treasury monitor never turns it into
// credits. A payment the chain does not know yet stays pending for the package job.
func (p *Packages) Purchase(ctx context.Context, userID, txHash, sender string) (*schema.MemeCoinPackage, error) {
	h, err := normalizeTxHash(txHash)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(sender) {
		return nil, schema.NewError(schema.KindInvalidWalletAddress, "invalid sender wallet %q", sender)
	}
	if p.wdb.ExistProcessedTx(h) {
		return nil, schema.NewError(schema.KindAlreadyProcessed, "transaction %s already processed", h)
	}
	pkg, err := p.claim(userID, h, sender)
	if err != nil {
		return nil, err
	}

	pay, err := p.verifier.fetchPayment(ctx, h, sender)
	switch {
	case err == nil:
		res, err := p.activate(userID, pay)
		if err != nil && !schema.IsKind(err, schema.KindInternal) {
			_ = p.dropPending(*pkg, err)
		}
		return res, err
	case schema.IsKind(err, schema.KindTransactionNotFound):
		return pkg, nil
	case schema.IsKind(err, schema.KindInternal):
		// left pending, the package job retries it
		return nil, err
	default:
		_ = p.dropPending(*pkg, err)
		return nil, err
	}
}

// claim writes the pending package for txHash, or returns the one the user already has.
func (p *Packages) claim(userID, txHash, sender string) (*schema.MemeCoinPackage, error) {
	pkg := &schema.MemeCoinPackage{
		UserID:        userID,
		Status:        schema.PackagePending,
		PaymentTxHash: txHash,
		SenderWallet:  normalizeWallet(sender),
	}
	if err := p.wdb.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(pkg).Error; err != nil {
		return nil, err
	}
	pkg, err := p.getByTxHash(txHash)
	if err != nil {
		return nil, err
	}
	if pkg.UserID != userID || pkg.Status != schema.PackagePending {
		return nil, schema.NewError(schema.KindAlreadyProcessed, "transaction %s already processed", txHash)
	}
	return pkg, nil
}

func (p *Packages) activate(userID string, pay *Payment) (*schema.MemeCoinPackage, error) {
	units := pay.Amount.Div(p.conf.PackagePriceUsdt()).Floor().IntPart()
	if units <= 0 {
		return nil, schema.NewError(schema.KindNoValidTransfer, "payment of %s USDT is below the package price %s", pay.Amount, p.conf.PackagePriceUsdt())
	}
	polls := units * p.conf.PackagePolls()

	err := p.wdb.Db.Transaction(func(tx *gorm.DB) error {
		if err := p.verifier.RecordProcessed(tx, p.verifier.processedTx(pay, 0, schema.PurposePackage)); err != nil {
			return err
		}
		pkg := schema.MemeCoinPackage{
			UserID:         userID,
			Status:         schema.PackageActive,
			TotalPolls:     polls,
			RemainingPolls: polls,
			PaymentTxHash:  pay.TxHash,
			PaymentAmount:  pay.Amount.String(),
			SenderWallet:   pay.From,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payment_tx_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "total_polls", "remaining_polls", "payment_amount", "sender_wallet",
			}),
		}).Create(&pkg).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info("package activated", "userId", userID, "txHash", pay.TxHash, "polls", polls)
	p.publisher.Publish(PaymentTopic, schema.KafkaPayment{
		TxHash:     pay.TxHash,
		From:       pay.From,
		UsdtAmount: pay.Amount.String(),
		Purpose:    schema.PurposePackage,
	})
	return p.getByTxHash(pay.TxHash)
}

// ActivatePending retries a pending package; definite payment errors drop it.
func (p *Packages) ActivatePending(ctx context.Context, pkg schema.MemeCoinPackage) error {
	pay, err := p.verifier.fetchPayment(ctx, pkg.PaymentTxHash, pkg.SenderWallet)
	switch {
	case err == nil:
		if _, err = p.activate(pkg.UserID, pay); err != nil && !schema.IsKind(err, schema.KindInternal) {
			return p.dropPending(pkg, err)
		}
		return err
	case schema.IsKind(err, schema.KindTransactionNotFound):
		if time.Since(pkg.PurchasedAt) > pendingPackageTimeout {
			return p.dropPending(pkg, err)
		}
		return nil
	case schema.IsKind(err, schema.KindInternal):
		return err
	default:
		return p.dropPending(pkg, err)
	}
}

func (p *Packages) dropPending(pkg schema.MemeCoinPackage, cause error) error {
	log.Warn("drop pending package", "id", pkg.ID, "txHash", pkg.PaymentTxHash, "cause", cause)
	return p.wdb.Db.Where("id = ? AND status = ?", pkg.ID, schema.PackagePending).
		Delete(&schema.MemeCoinPackage{}).Error
}

func (p *Packages) PendingPackages(limit int) ([]schema.MemeCoinPackage, error) {
	res := make([]schema.MemeCoinPackage, 0, limit)
	err := p.wdb.Db.Where("status = ?", schema.PackagePending).Order("id asc").Limit(limit).Find(&res).Error
	return res, err
}

// Use consumes one poll inside tx, failing with NoActivePackage when none is left.
func (p *Packages) Use(tx *gorm.DB, userID string) error {
	pkg := schema.MemeCoinPackage{}
	err := tx.Where("user_id = ? AND status = ? AND remaining_polls > 0", userID, schema.PackageActive).
		Order("id asc").First(&pkg).Error
	if err == gorm.ErrRecordNotFound {
		return schema.NewError(schema.KindNoActivePackage, "user %s has no active meme coin package", userID)
	}
	if err != nil {
		return err
	}
	res := tx.Model(&schema.MemeCoinPackage{}).
		Where("id = ? AND remaining_polls > 0", pkg.ID).
		Updates(map[string]interface{}{
			"used_polls":      gorm.Expr("used_polls + 1"),
			"remaining_polls": gorm.Expr("remaining_polls - 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return schema.NewError(schema.KindNoActivePackage, "package %d was used up concurrently", pkg.ID)
	}
	return tx.Model(&schema.MemeCoinPackage{}).
		Where("id = ? AND remaining_polls = 0", pkg.ID).
		Update("status", schema.PackageUsedUp).Error
}

func (p *Packages) ByUser(userID string) ([]schema.MemeCoinPackage, error) {
	res := make([]schema.MemeCoinPackage, 0)
	err := p.wdb.Db.Where("user_id = ?", userID).Order("id desc").Find(&res).Error
	return res, err
}

func (p *Packages) getByTxHash(txHash string) (*schema.MemeCoinPackage, error) {
	pkg := &schema.MemeCoinPackage{}
	err := p.wdb.Db.Where("payment_tx_hash = ?", txHash).First(pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, schema.ErrNotExist
	}
	return pkg, err
}
