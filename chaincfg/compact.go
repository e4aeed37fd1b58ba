// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"

	"github.com/decred/dcrd/blockchain/standalone/v2"
)

// CompactToBig converts a compact-encoded difficulty target, as used in the
// block header bits field, into a big.Int target. See BigToCompact for the
// reverse conversion.
func CompactToBig(compact uint32) *big.Int {
	return standalone.CompactToBig(compact)
}

// BigToCompact converts a big.Int target into its compact representation
// using a truncation-based mantissa/exponent encoding. See CompactToBig for
// the reverse conversion.
func BigToCompact(target *big.Int) uint32 {
	return standalone.BigToCompact(target)
}
