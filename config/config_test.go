package config

import (
	"path/filepath"
	"testing"

	"github.com/everFinance/pollmint/config/schema"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "config.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	return db
}

func TestDefaults(t *testing.T) {
	c := New(newTestDb(t))
	assert.Equal(t, "3", c.CreditsPerUsdt().String())
	assert.Equal(t, int64(10), c.PackagePolls())
	assert.Equal(t, "0.01", c.DeployReserve("solana").String())
	assert.Equal(t, "0.0005", c.DeployReserve("base").String())
	assert.Equal(t, uint64(500), c.MonitorBlockRange())
}

func TestUpdateParam(t *testing.T) {
	db := newTestDb(t)
	c := New(db)

	p := schema.DefaultParam()
	p.CreditsPerUsdt = "4.5"
	assert.NoError(t, NewWdb(db).SaveParam(p))

	// not visible until the refresh job runs
	assert.Equal(t, "3", c.CreditsPerUsdt().String())
	c.updateParam()
	assert.Equal(t, "4.5", c.CreditsPerUsdt().String())

	// invalid values fall back to defaults
	p.CreditsPerUsdt = "abc"
	assert.NoError(t, c.SetParam(p))
	assert.Equal(t, "3", c.CreditsPerUsdt().String())
}

func TestUpdateWhitelist(t *testing.T) {
	db := newTestDb(t)
	c := New(db)
	assert.NoError(t, db.Create(&schema.RateWhitelist{Key: "10.0.0.1", Available: true}).Error)
	assert.NoError(t, db.Create(&schema.RateWhitelist{Key: "bob", Available: false}).Error)

	c.updateWhitelist()
	wl := c.Whitelist()
	_, ok := wl["10.0.0.1"]
	assert.True(t, ok)
	_, ok = wl["bob"]
	assert.False(t, ok)
}
