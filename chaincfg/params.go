// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/coinbasechain/node/wire"
)

// bigOne is 1 represented as a big.Int. Defined here to avoid the overhead of
// creating it multiple times.
var bigOne = big.NewInt(1)

// Params defines a network by its genesis header and the consensus constants
// that govern header validation, difficulty adjustment, and PoW verification
// on it. Exactly one Params value is active for the lifetime of a node.
type Params struct {
	// Name is the name of the network.
	Name string

	// Net is the magic number used to identify this network on the wire.
	Net wire.CurrencyNet

	// DefaultPort is the default TCP port new peers listen on.
	DefaultPort string

	// DNSSeeds is the list of DNS seed hosts used to discover peers. It is
	// consulted only by the out-of-core peer discovery layer.
	DNSSeeds []string

	// GenesisBlock is the genesis header that starts the block chain.
	GenesisBlock wire.BlockHeader

	// GenesisHash is the hash of GenesisBlock, cached so every accept of a
	// claimed genesis header can be checked without recomputation.
	GenesisHash chainhash.Hash

	// PowLimit is the highest proof-of-work target (lowest difficulty) a
	// block can have on this network.
	PowLimit *big.Int

	// PowLimitBits is PowLimit in its compact representation.
	PowLimitBits uint32

	// TargetTimespacing is the desired amount of time between blocks, used
	// by the ASERT adjustment as target_spacing.
	TargetTimespacing time.Duration

	// AsertHalfLife is the ASERT exponential smoothing half-life.
	AsertHalfLife time.Duration

	// AsertAnchorHeight is the height of the ASERT anchor block. Heights at
	// or below this return the anchor target unchanged.
	AsertAnchorHeight int64

	// MaxFutureTime is how far into the network-adjusted future a block
	// timestamp may be and still be accepted.
	MaxFutureTime time.Duration

	// RandomXEpochDuration is the span of header time, in seconds, covered
	// by a single RandomX keying epoch.
	RandomXEpochDuration int64

	// RandomXSeedDomainTag is the consensus-critical domain separation
	// string mixed into the per-epoch RandomX seed derivation.
	RandomXSeedDomainTag string
}
