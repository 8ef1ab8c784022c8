package pollmint

import (
	"fmt"

	"github.com/everFinance/pollmint/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry maps (pollId, option) to the token deployed for it. Entries are only
// ever inserted, so once a key resolves it resolves the same way forever.
type Registry struct {
	wdb *Wdb
}

func NewRegistry(wdb *Wdb) *Registry {
	return &Registry{wdb: wdb}
}

func registryKey(pollID uint, option string) string {
	return fmt.Sprintf("%d:%s", pollID, option)
}

func (r *Registry) GetTokenAddress(pollID uint, option string) (*schema.TokenRegistryEntry, bool, error) {
	entry := &schema.TokenRegistryEntry{}
	err := r.wdb.Db.Where(&schema.TokenRegistryEntry{PollID: pollID, Option: option}).First(entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

func (r *Registry) GetByCoinName(coinName string) (*schema.TokenRegistryEntry, bool, error) {
	entry := &schema.TokenRegistryEntry{}
	err := r.wdb.Db.Where("coin_name = ?", coinName).First(entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// SetTokenAddress stores entry unless the key is taken and returns the stored entry.
// When the returned address differs from entry.Address another writer won.
func (r *Registry) SetTokenAddress(entry schema.TokenRegistryEntry) (*schema.TokenRegistryEntry, error) {
	entry.ID = 0
	if err := r.wdb.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return nil, err
	}
	stored, ok, err := r.GetTokenAddress(entry.PollID, entry.Option)
	if err != nil {
		return nil, err
	}
	if !ok {
		// the insert lost on coin_name, not on the key
		return nil, fmt.Errorf("coin name %q already registered for another option", entry.CoinName)
	}
	return stored, nil
}

func (r *Registry) List(pollID uint) ([]schema.TokenRegistryEntry, error) {
	res := make([]schema.TokenRegistryEntry, 0, 2)
	err := r.wdb.Db.Where("poll_id = ?", pollID).Find(&res).Error
	return res, err
}
