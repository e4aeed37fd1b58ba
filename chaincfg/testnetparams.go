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

// TestNetParams returns the network parameters for the test network.
func TestNetParams() *Params {
	// testNetPowLimit is the highest proof-of-work target a testnet block
	// can have. It is the value 2^241 - 1, looser than mainnet so test
	// blocks are cheap to produce.
	testNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 241), bigOne)
	powLimitBits := BigToCompact(testNetPowLimit)

	genesisBlock := wire.BlockHeader{
		Version: 1,
		Time:    1700000000,
		Bits:    powLimitBits,
		Nonce:   0,
	}

	params := &Params{
		Name:                 "testnet",
		Net:                  TestNet,
		DefaultPort:          "18333",
		GenesisBlock:         genesisBlock,
		PowLimit:             testNetPowLimit,
		PowLimitBits:         powLimitBits,
		TargetTimespacing:    120 * time.Second,
		AsertHalfLife:        172800 * time.Second,
		AsertAnchorHeight:    1,
		MaxFutureTime:        7200 * time.Second,
		RandomXEpochDuration: 604800,
		RandomXSeedDomainTag: "coinbasechain/randomx-seed/testnet/v1",
	}
	params.GenesisHash = genesisBlock.BlockHash()
	return params
}
