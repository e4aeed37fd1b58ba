// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/math/uint256"
)

// oneLsh256 is 1 shifted left 256 bits, used as the numerator when
// converting a target into the work it represents.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// calcWork calculates a work value from difficulty bits. The work is
// defined as the number of hashes performed to find a PoW solution on
// average, with no further scaling.
//
// block_proof = floor(2^256 / (target + 1))
func calcWork(bits uint32) *uint256.Uint256 {
	target := standalone.CompactToBig(bits)
	if target.Sign() <= 0 {
		return new(uint256.Uint256)
	}

	denominator := new(big.Int).Add(target, bigOne)
	proof := new(big.Int).Div(oneLsh256, denominator)

	work := new(uint256.Uint256)
	work.SetByteSlice(proof.Bytes())
	return work
}

// bigOne is 1 represented as a big.Int, used throughout block-work
// arithmetic to avoid repeated allocation.
var bigOne = big.NewInt(1)
