package schema

import "time"

const (
	DefaultCreditsPerUsdt      = "3"
	DefaultPackagePriceUsdt    = "5"
	DefaultPackagePolls        = 10
	DefaultBaseDeployReserve   = "0.0005" // ETH
	DefaultSolanaDeployReserve = "0.01"   // SOL
	DefaultMonitorBlockRange   = 500
)

// Param holds runtime tunables; a single row with ID 1.
type Param struct {
	ID                  uint `gorm:"primarykey"`
	CreditsPerUsdt      string
	PackagePriceUsdt    string
	PackagePolls        int64
	BaseDeployReserve   string
	SolanaDeployReserve string
	MonitorBlockRange   uint64
	UpdatedAt           time.Time
}

func DefaultParam() Param {
	return Param{
		ID:                  1,
		CreditsPerUsdt:      DefaultCreditsPerUsdt,
		PackagePriceUsdt:    DefaultPackagePriceUsdt,
		PackagePolls:        DefaultPackagePolls,
		BaseDeployReserve:   DefaultBaseDeployReserve,
		SolanaDeployReserve: DefaultSolanaDeployReserve,
		MonitorBlockRange:   DefaultMonitorBlockRange,
	}
}

type RateWhitelist struct {
	ID          uint   `gorm:"primarykey"`
	Key         string `gorm:"size:128;uniqueIndex"` // user id or ip
	Available   bool   `gorm:"index"`
	Description string
}
