package core

import (
	"math"
	"math/big"
)

var bigTenThousand = big.NewInt(10000)

// Emission schedule constants (spec.md §6). Default block time is 2
// seconds; changing any of these changes the state-root trajectory and
// must be treated as a protocol change (spec.md §9).
const (
	blockTimeSecs    = 2
	secondsPerYear   = 365 * 24 * 3600
	blocksPerYear    = secondsPerYear / blockTimeSecs
	maxSupply        = 1_000_000_000
	emissionYear1Bps = 800
	emissionFloorBps = 100
	feeValidatorsBps = 7000
)

// BlockEmissionValidators returns the validator's share of the block reward
// for height h. Height 0 yields no reward.
//
// Matches boing-tokenomics/src/lib.rs's block_emission_validators at each
// truncation point: year1PerBlock and floorPerBlock are integer-divided
// (bps multiply, then /10000, then /blocksPerYear, each truncated) before
// the decay multiply; the decayed emission is truncated back to an integer
// before the floor-max; and the final bps split is integer-divided last.
// Carrying everything in float64 until the final cast (as an earlier
// revision of this function did) silently disagrees with the original at
// non-trivial decay exponents.
func BlockEmissionValidators(height uint64) *big.Int {
	if height == 0 {
		return new(big.Int)
	}
	year := (height - 1) / blocksPerYear

	year1PerBlock := new(big.Int).Mul(big.NewInt(maxSupply), big.NewInt(emissionYear1Bps))
	year1PerBlock.Div(year1PerBlock, bigTenThousand)
	year1PerBlock.Div(year1PerBlock, big.NewInt(blocksPerYear))

	floorPerBlock := new(big.Int).Mul(big.NewInt(maxSupply), big.NewInt(emissionFloorBps))
	floorPerBlock.Div(floorPerBlock, bigTenThousand)
	floorPerBlock.Div(floorPerBlock, big.NewInt(blocksPerYear))

	decay := math.Pow(0.85, float64(year))
	emissionF := new(big.Float).Mul(new(big.Float).SetInt(year1PerBlock), big.NewFloat(decay))
	emission, _ := emissionF.Int(nil)

	if emission.Cmp(floorPerBlock) < 0 {
		emission = floorPerBlock
	}

	validatorShare := new(big.Int).Mul(emission, big.NewInt(feeValidatorsBps))
	validatorShare.Div(validatorShare, bigTenThousand)
	return validatorShare
}
