// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"testing"
)

func TestCompactRoundTripForRepresentativeTargets(t *testing.T) {
	values := []*big.Int{
		big.NewInt(1),
		big.NewInt(0x1234),
		new(big.Int).Lsh(big.NewInt(1), 200),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1)),
	}
	for _, v := range values {
		compact := BigToCompact(v)
		got := CompactToBig(compact)
		// The compact form is a truncating mantissa/exponent encoding, so
		// the round trip need not be exact, but it must not exceed the
		// original value. How close it lands below the original is not
		// checked here.
		if got.Cmp(v) > 0 {
			t.Fatalf("CompactToBig(BigToCompact(%v)) = %v, overshoots the original value", v, got)
		}
	}
}
