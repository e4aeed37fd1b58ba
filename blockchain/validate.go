// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/coinbasechain/node/chaincfg"
	"github.com/coinbasechain/node/internal/randomx"
	"github.com/coinbasechain/node/wire"
)

// checkHeaderPowCommitment is the Layer 1 pre-filter from spec.md §4.2: it
// checks the header's stored commitment against its claimed target without
// recomputing anything, so a batch of headers can be screened cheaply
// before any of the more expensive per-header work runs.
func checkHeaderPowCommitment(header *wire.BlockHeader) error {
	if !randomx.VerifyCommitmentOnly(header.RandomXHash, header.Bits) {
		return ruleErrorf(ErrInvalidPowCommitment,
			"randomx commitment does not meet target implied by bits %08x", header.Bits)
	}
	return nil
}

// CheckHeadersBatchPowCommitment runs the Layer 1 pre-filter across an
// entire incoming headers batch, per spec.md §4.7 step 3: the sync layer
// calls this once up front so a batch containing any commitment failure is
// rejected in full, before accept_header does any per-header work.
func CheckHeadersBatchPowCommitment(headers []wire.BlockHeader) error {
	for i := range headers {
		if err := checkHeaderPowCommitment(&headers[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkHeaderContextFree is Layer 2 from spec.md §4.2: full RandomX
// verification plus the structural checks that don't require a parent.
func checkHeaderContextFree(engine *randomx.Engine, header *wire.BlockHeader) error {
	if header.Version < 1 {
		return ruleErrorf(ErrInvalidVersion, "header version %d is not >= 1", header.Version)
	}

	headerBytes := header.Bytes()
	if err := engine.VerifyFull(int64(header.Time), headerBytes, header.RandomXHash, header.Bits); err != nil {
		return ruleErrorf(ErrInvalidPow, "randomx verification failed: %v", err)
	}
	return nil
}

// checkHeaderContextual is Layer 3 from spec.md §4.2: the checks that
// require knowing the header's parent.
func checkHeaderContextual(params *chaincfg.Params, header *wire.BlockHeader, parent *blockNode, adjustedTime time.Time) error {
	mtp := parent.CalcPastMedianTime(MTPWindowSize)
	if int64(header.Time) <= mtp {
		return ruleErrorf(ErrTimeTooOld, "header time %d is not strictly greater than median time past %d",
			header.Time, mtp)
	}

	maxTime := adjustedTime.Add(params.MaxFutureTime).Unix()
	if int64(header.Time) > maxTime {
		return ruleErrorf(ErrTimeTooNew, "header time %d exceeds adjusted time + max future offset %d",
			header.Time, maxTime)
	}

	wantBits := calcASERTNextRequiredDifficulty(params, parent)
	if header.Bits != wantBits {
		return ruleErrorf(ErrBadDifficulty, "header bits %08x does not match ASERT-predicted bits %08x",
			header.Bits, wantBits)
	}

	return nil
}
