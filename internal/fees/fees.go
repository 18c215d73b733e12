// Package fees computes the platform/creator split of the trade fee.
package fees

import (
	"github.com/holiman/uint256"

	"token-launch-lab/internal/curvemath"
)

// FeeSplit is the result of dividing one trade fee between the platform
// and the token creator. PlatformShare + CreatorShare always equals the
// fee exactly.
type FeeSplit struct {
	PlatformShare *uint256.Int
	CreatorShare  *uint256.Int
}

// Split divides feeAmount proportionally to platformBps/creatorBps.
// The creator share is computed by flooring division and the platform
// takes the remainder, so any rounding dust deterministically goes to
// the platform, never the creator.
func Split(feeAmount *uint256.Int, platformBps, creatorBps uint64) (FeeSplit, error) {
	totalBps := platformBps + creatorBps
	if totalBps == 0 {
		return FeeSplit{
			PlatformShare: new(uint256.Int).Set(feeAmount),
			CreatorShare:  uint256.NewInt(0),
		}, nil
	}

	creator, err := curvemath.MulDiv(feeAmount, uint256.NewInt(creatorBps), uint256.NewInt(totalBps), curvemath.RoundDown)
	if err != nil {
		return FeeSplit{}, err
	}
	platform, err := curvemath.Sub(feeAmount, creator)
	if err != nil {
		return FeeSplit{}, err
	}
	return FeeSplit{PlatformShare: platform, CreatorShare: creator}, nil
}
