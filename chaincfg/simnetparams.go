// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/coinbasechain/node/wire"
)

// SimNetParams returns the network parameters for the simulation network,
// used for automated integration testing between processes on a single
// host. Difficulty is trivial and ASERT retargets quickly so test chains of
// meaningful length can be produced in seconds.
func SimNetParams() *Params {
	simNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
	powLimitBits := BigToCompact(simNetPowLimit)

	genesisBlock := wire.BlockHeader{
		Version: 1,
		Time:    1700000000,
		Bits:    powLimitBits,
		Nonce:   0,
	}

	params := &Params{
		Name:                 "simnet",
		Net:                  SimNet,
		DefaultPort:          "18555",
		GenesisBlock:         genesisBlock,
		PowLimit:             simNetPowLimit,
		PowLimitBits:         powLimitBits,
		TargetTimespacing:    1 * time.Second,
		AsertHalfLife:        600 * time.Second,
		AsertAnchorHeight:    1,
		MaxFutureTime:        7200 * time.Second,
		RandomXEpochDuration: 3600,
		RandomXSeedDomainTag: "coinbasechain/randomx-seed/simnet/v1",
	}
	params.GenesisHash = genesisBlock.BlockHash()
	return params
}
