package domain

import "github.com/holiman/uint256"

// GraduationRecord is written exactly once per token when its liquidity
// is migrated to the external venue. Immutable.
type GraduationRecord struct {
	TokenID               string
	ExternalPoolReference string
	EthMigrated           *uint256.Int
	TokensMigrated        *uint256.Int
	LiquidityReceiptBurned bool
	CompletedAt           int64 // unix ms
}
