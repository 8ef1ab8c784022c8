package pollmint

import (
	"strings"

	"github.com/everFinance/pollmint/schema"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger keeps per-wallet credit balances. Every change is a single SQL statement
// guarded by the database, so concurrent callers need no in-process locking.
type Ledger struct {
	wdb *Wdb
}

func NewLedger(wdb *Wdb) *Ledger {
	return &Ledger{wdb: wdb}
}

func normalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

func (l *Ledger) GetCredits(wallet string) (int64, error) {
	return l.getCredits(l.wdb.Db, wallet)
}

func (l *Ledger) getCredits(db *gorm.DB, wallet string) (int64, error) {
	bal := schema.CreditBalance{}
	err := db.Where("wallet = ?", normalizeWallet(wallet)).First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	return bal.Credits, err
}

// AddCredits is the admin grant path; each call is a distinct entry.
func (l *Ledger) AddCredits(wallet string, n int64) error {
	err := l.wdb.Db.Transaction(func(tx *gorm.DB) error {
		_, err := l.credit(tx, wallet, n, schema.ReasonAdmin, uuid.NewString())
		return err
	})
	if err == nil {
		metricCredits(schema.ReasonAdmin, n)
	}
	return err
}

func (l *Ledger) DeductCredits(wallet string, n int64) error {
	err := l.wdb.Db.Transaction(func(tx *gorm.DB) error {
		return l.debit(tx, wallet, n, schema.ReasonVote, uuid.NewString())
	})
	if err == nil {
		metricCredits(schema.ReasonVote, -n)
	}
	return err
}

// Refund credits n back once per ref. It reports whether this call applied the refund.
func (l *Ledger) Refund(wallet string, n int64, ref string) (applied bool, err error) {
	err = l.wdb.Db.Transaction(func(tx *gorm.DB) error {
		applied, err = l.credit(tx, wallet, n, schema.ReasonRefund, ref)
		return err
	})
	if applied && err == nil {
		metricCredits(schema.ReasonRefund, n)
	}
	return
}

// credit adds n to wallet inside tx. The (reason, ref) entry makes it apply at most once;
// false means the same cause was credited before and nothing changed.
func (l *Ledger) credit(tx *gorm.DB, wallet string, n int64, reason, ref string) (bool, error) {
	if n <= 0 {
		return false, schema.NewError(schema.KindInvalidParams, "credit amount must be positive, got %d", n)
	}
	wallet = normalizeWallet(wallet)
	if wallet == "" {
		return false, schema.NewError(schema.KindInvalidWalletAddress, "empty wallet")
	}
	entry := &schema.CreditEntry{Wallet: wallet, Delta: n, Reason: reason, Ref: ref}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"credits":    gorm.Expr("credits + ?", n),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&schema.CreditBalance{Wallet: wallet, Credits: n}).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

// debit removes n from wallet inside tx, failing with InsufficientCredits and no
// side effect when the balance is lower than n.
func (l *Ledger) debit(tx *gorm.DB, wallet string, n int64, reason, ref string) error {
	if n <= 0 {
		return schema.NewError(schema.KindInvalidParams, "debit amount must be positive, got %d", n)
	}
	wallet = normalizeWallet(wallet)
	res := tx.Model(&schema.CreditBalance{}).
		Where("wallet = ? AND credits >= ?", wallet, n).
		Update("credits", gorm.Expr("credits - ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		bal, _ := l.getCredits(tx, wallet)
		return schema.NewError(schema.KindInsufficientCredits, "wallet %s has %d credits, needs %d", wallet, bal, n)
	}
	return tx.Create(&schema.CreditEntry{Wallet: wallet, Delta: -n, Reason: reason, Ref: ref}).Error
}

func (l *Ledger) History(wallet string, limit int) ([]schema.CreditEntry, error) {
	res := make([]schema.CreditEntry, 0, limit)
	err := l.wdb.Db.Where("wallet = ?", normalizeWallet(wallet)).
		Order("id desc").Limit(limit).Find(&res).Error
	return res, err
}
