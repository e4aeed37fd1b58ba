// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package randomx

import (
	"strconv"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// EpochDuration is the default number of header-time seconds a single
// RandomX epoch (and therefore a single keyed VM) spans, per spec.md §4.4.
// Network params may override this for faster-epoch test networks.
const EpochDuration = 604800

// Epoch returns the epoch number that the given header-time seconds falls
// into, under the given epoch duration.
func Epoch(headerTime int64, epochDuration int64) int64 {
	return headerTime / epochDuration
}

// Seed derives the epoch keying seed as double_sha256(domain_tag +
// ascii(epoch)). The domain tag is consensus-critical and network-specific;
// two networks (or two epoch numbers) must never share a seed.
func Seed(domainTag string, epoch int64) chainhash.Hash {
	buf := append([]byte(domainTag), []byte(strconv.FormatInt(epoch, 10))...)
	return chainhash.DoubleHashH(buf)
}
