// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/coinbasechain/node/wire"
)

// MainNetParams returns the network parameters for the main network.
func MainNetParams() *Params {
	// mainPowLimit is the highest proof-of-work target a mainnet block can
	// have. It is the value 2^235 - 1.
	mainPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 235), bigOne)
	powLimitBits := BigToCompact(mainPowLimit)

	// genesisBlock is not evaluated for proof of work. The only values ever
	// used elsewhere in the chain from it are the hash (used as PrevBlock
	// for height 1), the Bits (the ASERT anchor target), and the Time (the
	// ASERT anchor parent time and the base of MTP for early blocks).
	genesisBlock := wire.BlockHeader{
		Version: 1,
		Time:    1700000000, // Tue Nov 14 2023 22:13:20 UTC
		Bits:    powLimitBits,
		Nonce:   0,
	}

	params := &Params{
		Name:                 "mainnet",
		Net:                  MainNet,
		DefaultPort:          "8333",
		GenesisBlock:         genesisBlock,
		PowLimit:             mainPowLimit,
		PowLimitBits:         powLimitBits,
		TargetTimespacing:    120 * time.Second,
		AsertHalfLife:        172800 * time.Second,
		AsertAnchorHeight:    1,
		MaxFutureTime:        7200 * time.Second,
		RandomXEpochDuration: 604800,
		RandomXSeedDomainTag: "coinbasechain/randomx-seed/mainnet/v1",
	}
	params.GenesisHash = genesisBlock.BlockHash()
	return params
}
