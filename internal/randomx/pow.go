// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package randomx

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/blockchain/standalone/v2"
)

// Engine exposes the two verification modes and the mining-mode hash
// computation described in spec.md §4.4, backed by an epoch-keyed VM cache.
type Engine struct {
	cache *vmCache
}

// NewEngine returns a new PoW engine for the given domain tag and epoch
// duration (seconds), with the default VM cache capacity.
func NewEngine(domainTag string, epochDuration int64) *Engine {
	return &Engine{
		cache: newVMCache(domainTag, epochDuration, DefaultCacheCapacity),
	}
}

// zeroedHeaderHash returns a copy of headerBytes (the 100-byte wire
// serialization of a block header) with the randomx_hash field, the final
// 32 bytes, zeroed — the input to both CalculateHash and
// CalculateCommitment per spec.md §4.4.
func zeroedHeaderHash(headerBytes []byte) []byte {
	out := make([]byte, len(headerBytes))
	copy(out, headerBytes)
	for i := len(out) - 32; i < len(out); i++ {
		out[i] = 0
	}
	return out
}

// hashMeetsTarget interprets hash as a 256-bit little-endian integer and
// reports whether it is <= target.
func hashMeetsTarget(hash [32]byte, target *big.Int) bool {
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = hash[31-i]
	}
	v := new(big.Int).SetBytes(be)
	return v.Cmp(target) <= 0
}

// VerifyCommitmentOnly implements spec.md §4.4's commitment-only mode: it
// checks that storedCommitment, interpreted as a 256-bit integer, meets the
// target implied by bits, without recomputing anything. This is the Layer 1
// pre-filter check and is deliberately independent of the VM cache.
func VerifyCommitmentOnly(storedCommitment [32]byte, bits uint32) bool {
	target := standalone.CompactToBig(bits)
	return hashMeetsTarget(storedCommitment, target)
}

// VerifyFull implements spec.md §4.4's full verification mode: recompute
// the RandomX hash over the zeroed-commitment header bytes, derive the
// commitment from that hash, and check it equals storedCommitment and meets
// the target. headerTime selects which epoch's VM is used.
func (e *Engine) VerifyFull(headerTime int64, headerBytes []byte, storedCommitment [32]byte, bits uint32) error {
	if !VerifyCommitmentOnly(storedCommitment, bits) {
		return fmt.Errorf("randomx: stored commitment does not meet target")
	}

	vm := e.cache.vmForTime(headerTime)
	zeroed := zeroedHeaderHash(headerBytes)
	hash := vm.CalculateHash(zeroed)
	commitment := vm.CalculateCommitment(hash, zeroed)

	if commitment != storedCommitment {
		return fmt.Errorf("randomx: commitment mismatch")
	}
	return nil
}

// Mine implements spec.md §4.4's mining mode: identical computation to
// VerifyFull, but returns the computed commitment to the caller instead of
// comparing it against a stored value. Used by out-of-scope block assembly;
// exposed here only so that boundary is a real, callable interface.
func (e *Engine) Mine(headerTime int64, headerBytes []byte) (hash [32]byte, commitment [32]byte) {
	vm := e.cache.vmForTime(headerTime)
	zeroed := zeroedHeaderHash(headerBytes)
	hash = vm.CalculateHash(zeroed)
	commitment = vm.CalculateCommitment(hash, zeroed)
	return hash, commitment
}
