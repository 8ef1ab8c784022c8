package pollmint

import (
	"path"
	"time"

	"github.com/everFinance/pollmint/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	sqliteName = "pollmint.db"
)

type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	logLevel := logger.Error
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logLevel),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

// NewSqliteDb opens a file backed store; a single connection serializes writers.
func NewSqliteDb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Silent),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	sqlDb, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDb.SetMaxOpenConns(1)
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(
		&schema.CreditBalance{}, &schema.CreditEntry{}, &schema.ProcessedTransaction{},
		&schema.Poll{}, &schema.Vote{}, &schema.GeneratedCoin{}, &schema.TokenRegistryEntry{},
		&schema.MemeCoinPackage{}, &schema.BattleCompletion{}, &schema.MonitorCursor{},
	)
}

func (w *Wdb) Close() {
	sqlDb, err := w.Db.DB()
	if err == nil {
		sqlDb.Close()
	}
}

// polls

func (w *Wdb) InsertPoll(tx *gorm.DB, poll *schema.Poll) error {
	return w.use(tx).Create(poll).Error
}

func (w *Wdb) GetPoll(pollID uint) (*schema.Poll, error) {
	return w.getPoll(w.Db, pollID)
}

func (w *Wdb) getPoll(db *gorm.DB, pollID uint) (*schema.Poll, error) {
	poll := &schema.Poll{}
	err := db.First(poll, pollID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, schema.ErrNotExist
	}
	return poll, err
}

func (w *Wdb) IncrPollVotes(tx *gorm.DB, pollID uint, option string) error {
	column := "votes_b"
	if option == schema.OptionA {
		column = "votes_a"
	}
	return w.use(tx).Model(&schema.Poll{}).Where("id = ?", pollID).
		Update(column, gorm.Expr(column+" + ?", 1)).Error
}

// votes

// InsertVote returns false when the user already voted on the poll.
func (w *Wdb) InsertVote(tx *gorm.DB, vote *schema.Vote) (bool, error) {
	res := w.use(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(vote)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (w *Wdb) GetVote(userID string, pollID uint) (*schema.Vote, error) {
	vote := &schema.Vote{}
	err := w.Db.Where("user_id = ? AND poll_id = ?", userID, pollID).First(vote).Error
	if err == gorm.ErrRecordNotFound {
		return nil, schema.ErrNotExist
	}
	return vote, err
}

func (w *Wdb) ExistVote(userID string, pollID uint) bool {
	_, err := w.GetVote(userID, pollID)
	return err == nil
}

// processed transactions

// InsertProcessedTx returns false when the hash was recorded before.
func (w *Wdb) InsertProcessedTx(tx *gorm.DB, ptx *schema.ProcessedTransaction) (bool, error) {
	res := w.use(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(ptx)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (w *Wdb) ExistProcessedTx(txHash string) bool {
	var count int64
	w.Db.Model(&schema.ProcessedTransaction{}).Where("tx_hash = ?", txHash).Count(&count)
	return count > 0
}

// ExistPackageTx reports whether a package purchase claimed the hash.
func (w *Wdb) ExistPackageTx(tx *gorm.DB, txHash string) bool {
	var count int64
	w.use(tx).Model(&schema.MemeCoinPackage{}).Where("payment_tx_hash = ?", txHash).Count(&count)
	return count > 0
}

func (w *Wdb) GetProcessedTx(txHash string) (*schema.ProcessedTransaction, error) {
	ptx := &schema.ProcessedTransaction{}
	err := w.Db.Where("tx_hash = ?", txHash).First(ptx).Error
	if err == gorm.ErrRecordNotFound {
		return nil, schema.ErrNotExist
	}
	return ptx, err
}

// coins

// InsertCoin returns false when a coin already exists for (user, poll, option).
func (w *Wdb) InsertCoin(coin *schema.GeneratedCoin) (bool, error) {
	res := w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(coin)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (w *Wdb) GetCoin(userID string, pollID uint, option string) (*schema.GeneratedCoin, error) {
	coin := &schema.GeneratedCoin{}
	err := w.Db.Where(&schema.GeneratedCoin{UserID: userID, PollID: pollID, Option: option}).First(coin).Error
	if err == gorm.ErrRecordNotFound {
		return nil, schema.ErrNotExist
	}
	return coin, err
}

func (w *Wdb) UpdateCoin(coinID uint, data map[string]interface{}) error {
	return w.Db.Model(&schema.GeneratedCoin{}).Where("id = ?", coinID).Updates(data).Error
}

// SettleCoin moves a pending coin to a final status; false if it was settled already.
func (w *Wdb) SettleCoin(tx *gorm.DB, coinID uint, data map[string]interface{}) (bool, error) {
	res := w.use(tx).Model(&schema.GeneratedCoin{}).
		Where("id = ? AND status = ?", coinID, schema.CoinPending).Updates(data)
	return res.RowsAffected == 1, res.Error
}

func (w *Wdb) GetCoinsByUser(userID string) ([]schema.GeneratedCoin, error) {
	res := make([]schema.GeneratedCoin, 0)
	err := w.Db.Where("user_id = ?", userID).Order("id desc").Find(&res).Error
	return res, err
}

func (w *Wdb) GetCoinsByPoll(pollID uint) ([]schema.GeneratedCoin, error) {
	res := make([]schema.GeneratedCoin, 0)
	err := w.Db.Where("poll_id = ?", pollID).Order("id asc").Find(&res).Error
	return res, err
}

func (w *Wdb) GetPendingCoins(updatedBefore time.Time, limit int) ([]schema.GeneratedCoin, error) {
	res := make([]schema.GeneratedCoin, 0, limit)
	err := w.Db.Where("status = ? AND updated_at < ?", schema.CoinPending, updatedBefore).
		Order("id asc").Limit(limit).Find(&res).Error
	return res, err
}

// battles

func (w *Wdb) InsertBattleCompletion(bc *schema.BattleCompletion) (bool, error) {
	res := w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(bc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (w *Wdb) GetBattleCompletion(pollID uint, userID string) (*schema.BattleCompletion, error) {
	bc := &schema.BattleCompletion{}
	err := w.Db.Where("poll_id = ? AND user_id = ?", pollID, userID).First(bc).Error
	if err == gorm.ErrRecordNotFound {
		return nil, schema.ErrNotExist
	}
	return bc, err
}

// monitor cursor

func (w *Wdb) GetCursor(chain string) (uint64, error) {
	cur := schema.MonitorCursor{}
	err := w.Db.Where("chain = ?", chain).First(&cur).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	return cur.Block, err
}

func (w *Wdb) SaveCursor(chain string, block uint64) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}},
		DoUpdates: clause.AssignmentColumns([]string{"block", "updated_at"}),
	}).Create(&schema.MonitorCursor{Chain: chain, Block: block}).Error
}

// use returns tx when composing a larger transaction.
func (w *Wdb) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return w.Db
}
