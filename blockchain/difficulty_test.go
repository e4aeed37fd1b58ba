// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/decred/dcrd/blockchain/standalone/v2"

	"github.com/coinbasechain/node/chaincfg"
	"github.com/coinbasechain/node/wire"
)

func asertTestParams() *chaincfg.Params {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	return &chaincfg.Params{
		Name:              "asert-fixture",
		PowLimit:          powLimit,
		PowLimitBits:      standalone.BigToCompact(powLimit),
		TargetTimespacing: 120 * time.Second,
		AsertHalfLife:     172800 * time.Second,
		AsertAnchorHeight: 5,
	}
}

func chainToHeight(params *chaincfg.Params, height int64, spacing int64, bits uint32) *blockNode {
	var node *blockNode
	var t uint32 = 1700000000
	for h := int64(0); h <= height; h++ {
		hdr := &wire.BlockHeader{Version: 1, Time: t, Bits: bits}
		if node != nil {
			hdr.PrevBlock = node.hash
		}
		node = newBlockNode(hdr, node)
		t += uint32(spacing)
	}
	return node
}

func TestASERTAnchorHeightCarriesBitsUnchanged(t *testing.T) {
	params := asertTestParams()
	// Build a chain up to and including the anchor height; the node at or
	// below the anchor height must report powLimitBits unchanged.
	tip := chainToHeight(params, params.AsertAnchorHeight, 120, params.PowLimitBits)

	got := calcASERTNextRequiredDifficulty(params, tip)
	if got != params.PowLimitBits {
		t.Fatalf("bits at anchor height = %x, want powLimitBits %x", got, params.PowLimitBits)
	}
}

func TestASERTNilPrevReturnsPowLimit(t *testing.T) {
	params := asertTestParams()
	got := calcASERTNextRequiredDifficulty(params, nil)
	if got != params.PowLimitBits {
		t.Fatalf("bits for nil prev = %x, want powLimitBits %x", got, params.PowLimitBits)
	}
}

func TestASERTConstantSpacingHoldsTargetSteady(t *testing.T) {
	params := asertTestParams()
	spacing := int64(params.TargetTimespacing.Seconds())

	// Past the anchor, as long as every block lands exactly on the target
	// spacing the exponent term is the same constant (-spacing scaled by
	// the half-life) at every height, so required bits do not drift as the
	// chain grows.
	tip := chainToHeight(params, params.AsertAnchorHeight+20, spacing, params.PowLimitBits)
	earlier := chainToHeight(params, params.AsertAnchorHeight+10, spacing, params.PowLimitBits)

	got := calcASERTNextRequiredDifficulty(params, tip)
	want := calcASERTNextRequiredDifficulty(params, earlier)
	if got != want {
		t.Fatalf("bits after 20 steady blocks = %x, want the same bits as after 10 steady blocks %x", got, want)
	}
}

func TestASERTFastBlocksIncreaseDifficulty(t *testing.T) {
	params := asertTestParams()
	spacing := int64(params.TargetTimespacing.Seconds())

	// Blocks arriving faster than target spacing should push the next
	// target down (harder difficulty), i.e. below the anchor's target.
	tip := chainToHeight(params, params.AsertAnchorHeight+20, spacing/2, params.PowLimitBits)

	gotBits := calcASERTNextRequiredDifficulty(params, tip)
	gotTarget := standalone.CompactToBig(gotBits)
	if gotTarget.Cmp(params.PowLimit) >= 0 {
		t.Fatalf("target after fast blocks = %v, want strictly less than powLimit %v", gotTarget, params.PowLimit)
	}
}

func TestASERTComputeTargetClampsToPowLimit(t *testing.T) {
	params := asertTestParams()
	anchorTarget := new(big.Int).Set(params.PowLimit)

	// A huge positive time_diff relative to height_diff drives the
	// exponent strongly positive, which must clamp at powLimit rather
	// than overflow past it.
	target := asertComputeTarget(anchorTarget, 120, 172800, 100_000_000, 1, params.PowLimit)
	if target.Cmp(params.PowLimit) != 0 {
		t.Fatalf("clamped target = %v, want powLimit %v", target, params.PowLimit)
	}
}

func TestASERTComputeTargetNeverGoesNonPositive(t *testing.T) {
	params := asertTestParams()
	anchorTarget := big.NewInt(1000)

	// A huge negative time_diff drives the exponent strongly negative;
	// the result must floor at 1, never at or below zero.
	target := asertComputeTarget(anchorTarget, 120, 172800, -100_000_000, 1, params.PowLimit)
	if target.Sign() <= 0 {
		t.Fatalf("target = %v, want a positive floor value", target)
	}
}
