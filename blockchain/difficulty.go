// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/decred/dcrd/blockchain/standalone/v2"

	"github.com/coinbasechain/node/chaincfg"
)

// asert fixed-point polynomial coefficients approximating 2^(frac/65536) for
// frac in [0, 65536) via a cubic in frac. These are consensus-critical: any
// node on the same network must compute the identical target from the
// identical (time_diff, height_diff, prev.bits) triple, so the coefficients
// below are fixed constants, not tunables.
var (
	asertCoeffLinear = big.NewInt(195766423245049)
	asertCoeffQuad   = big.NewInt(971821376)
	asertCoeffCubic  = big.NewInt(5127)
	asertRoundingAdd = new(big.Int).Lsh(big.NewInt(1), 47)
)

// calcASERTAnchor locates the block at params.AsertAnchorHeight by walking
// back from prev and returns the (parent_time, target) pair that anchors
// every subsequent ASERT computation, per spec.md §4.5.
func calcASERTAnchor(params *chaincfg.Params, prev *blockNode) (anchorParentTime int64, anchorTarget *big.Int) {
	anchor := prev.Ancestor(params.AsertAnchorHeight)
	if anchor == nil {
		// The chain hasn't reached the anchor height yet; anchor against
		// genesis directly.
		return int64(params.GenesisBlock.Time), standalone.CompactToBig(params.GenesisBlock.Bits)
	}

	parent := anchor.parent
	if parent == nil {
		// The anchor itself is genesis; it has no parent time to anchor
		// against, so its own timestamp is used.
		return anchor.timestamp, standalone.CompactToBig(anchor.bits)
	}
	return parent.timestamp, standalone.CompactToBig(anchor.bits)
}

// calcASERTNextRequiredDifficulty computes the bits value a header whose
// parent is prev must carry, per spec.md §4.5. Heights at or below the
// anchor height carry the anchor target unchanged.
func calcASERTNextRequiredDifficulty(params *chaincfg.Params, prev *blockNode) uint32 {
	if prev == nil {
		return params.PowLimitBits
	}
	// The candidate being predicted sits at prev.height+1; the anchor
	// target is kept unchanged through that height, not through prev's
	// own height.
	if prev.height+1 <= params.AsertAnchorHeight {
		_, anchorTarget := calcASERTAnchor(params, prev)
		return standalone.BigToCompact(anchorTarget)
	}

	anchorParentTime, anchorTarget := calcASERTAnchor(params, prev)

	targetSpacing := int64(params.TargetTimespacing.Seconds())
	halfLife := int64(params.AsertHalfLife.Seconds())

	timeDiff := prev.timestamp - anchorParentTime
	heightDiff := prev.height - (params.AsertAnchorHeight - 1)

	target := asertComputeTarget(anchorTarget, targetSpacing, halfLife, timeDiff, heightDiff, params.PowLimit)
	return standalone.BigToCompact(target)
}

// asertComputeTarget is the pure-arithmetic core of ASERT: given the anchor
// target and the elapsed (time_diff, height_diff) since the anchor, it
// returns the new target, clamped to powLimit. All arithmetic is performed
// with math/big, whose words grow as needed and therefore safely exceed the
// "at least 512-bit signed integers" floor spec.md §4.5 requires for the
// intermediate multiply.
func asertComputeTarget(anchorTarget *big.Int, targetSpacing, halfLife, timeDiff, heightDiff int64, powLimit *big.Int) *big.Int {
	// exponent_fixed = ((time_diff - target_spacing*(height_diff+1)) * 65536) / half_life
	numerator := big.NewInt(timeDiff - targetSpacing*(heightDiff+1))
	numerator.Mul(numerator, big.NewInt(65536))
	exponent := new(big.Int).Quo(numerator, big.NewInt(halfLife))

	// shifts = exponent >> 16, frac = exponent & 0xffff, using floor
	// semantics (an arithmetic right shift) so frac always lands in
	// [0, 65536) even when exponent is negative.
	shifts := new(big.Int).Rsh(exponent, 16)
	frac := new(big.Int).Sub(exponent, new(big.Int).Lsh(shifts, 16))

	// factor = 65536 + ((c1*frac + c2*frac^2 + c3*frac^3 + 2^47) >> 48)
	frac2 := new(big.Int).Mul(frac, frac)
	frac3 := new(big.Int).Mul(frac2, frac)

	poly := new(big.Int).Mul(asertCoeffLinear, frac)
	poly.Add(poly, new(big.Int).Mul(asertCoeffQuad, frac2))
	poly.Add(poly, new(big.Int).Mul(asertCoeffCubic, frac3))
	poly.Add(poly, asertRoundingAdd)
	poly.Rsh(poly, 48)

	factor := new(big.Int).Add(big.NewInt(65536), poly)

	target := new(big.Int).Mul(anchorTarget, factor)

	// shifts -= 16 undoes the implicit *65536 folded into factor.
	totalShift := new(big.Int).Sub(shifts, big.NewInt(16))
	if totalShift.Sign() < 0 {
		target.Rsh(target, uint(-totalShift.Int64()))
	} else {
		target.Lsh(target, uint(totalShift.Int64()))
	}

	if target.Sign() <= 0 {
		return big.NewInt(1)
	}
	if target.Cmp(powLimit) > 0 {
		return new(big.Int).Set(powLimit)
	}
	return target
}
