// Copyright (c) 2018-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/coinbasechain/node/wire"
)

// RegNetParams returns the network parameters for the regression test
// network, used by deterministic single-process test harnesses that need
// full control over block timestamps and difficulty.
func RegNetParams() *Params {
	regNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
	powLimitBits := BigToCompact(regNetPowLimit)

	genesisBlock := wire.BlockHeader{
		Version: 1,
		Time:    1296688602, // same epoch Satoshi-style test harnesses use
		Bits:    powLimitBits,
		Nonce:   0,
	}

	params := &Params{
		Name:                 "regnet",
		Net:                  RegNet,
		DefaultPort:          "18444",
		GenesisBlock:         genesisBlock,
		PowLimit:             regNetPowLimit,
		PowLimitBits:         powLimitBits,
		TargetTimespacing:    120 * time.Second,
		AsertHalfLife:        172800 * time.Second,
		AsertAnchorHeight:    1,
		MaxFutureTime:        7200 * time.Second,
		RandomXEpochDuration: 604800,
		RandomXSeedDomainTag: "coinbasechain/randomx-seed/regnet/v1",
	}
	params.GenesisHash = genesisBlock.BlockHash()
	return params
}
