package config

import (
	"github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/config/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var log = common.NewLog("config")

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(db *gorm.DB) *Wdb {
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.Param{}, &schema.RateWhitelist{})
}

func (w *Wdb) GetParam() (param schema.Param, err error) {
	err = w.Db.First(&param, 1).Error
	if err == gorm.ErrRecordNotFound {
		return schema.DefaultParam(), nil
	}
	return
}

func (w *Wdb) SaveParam(param schema.Param) error {
	param.ID = 1
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&param).Error
}

func (w *Wdb) GetAvailableWhitelist() ([]schema.RateWhitelist, error) {
	res := make([]schema.RateWhitelist, 0)
	err := w.Db.Where("available = ?", true).Find(&res).Error
	return res, err
}
