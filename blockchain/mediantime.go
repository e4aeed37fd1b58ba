// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sort"
	"sync"
	"time"
)

// MTPWindowSize is the number of preceding ancestors used to compute the
// median time past of a block, per spec.md §4.6.
const MTPWindowSize = 11

// maxMedianTimeOffset bounds how far the network-adjusted time may drift
// from the local clock, in either direction.
const maxMedianTimeOffset = 70 * time.Minute

// minMedianTimeSamples is the minimum number of peer time samples required
// before the median offset is trusted; below this, the offset is treated as
// zero.
const minMedianTimeSamples = 5

// maxMedianTimeSamples bounds the sample ring so a long-lived node with many
// historical handshakes doesn't grow this unboundedly.
const maxMedianTimeSamples = 200

// medianTime maintains a running median of (peer_reported_time -
// local_time) offsets sampled from verified peer handshakes, used to
// compute the network-adjusted current time per spec.md §4.6.
type medianTime struct {
	mtx     sync.Mutex
	offsets []int64
}

// newMedianTime returns a new, empty medianTime tracker.
func newMedianTime() *medianTime {
	return &medianTime{}
}

// AddTimeSample adds a peer-reported time sample. Samples carry no source
// identifier, so keeping a single misbehaving or duplicate-dialing peer
// from dominating the median by submitting many samples is left to the
// caller (the sync manager), which is expected to call this at most once
// per peer handshake.
func (m *medianTime) AddTimeSample(peerTime time.Time, now time.Time) {
	offset := int64(peerTime.Sub(now).Seconds())

	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.offsets = append(m.offsets, offset)
	if len(m.offsets) > maxMedianTimeSamples {
		m.offsets = m.offsets[len(m.offsets)-maxMedianTimeSamples:]
	}
}

// Offset returns the current median offset, or zero if fewer than
// minMedianTimeSamples samples have been recorded, clamped to
// +/-maxMedianTimeOffset.
func (m *medianTime) Offset() time.Duration {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if len(m.offsets) < minMedianTimeSamples {
		return 0
	}

	sorted := append([]int64(nil), m.offsets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	median := time.Duration(sorted[len(sorted)/2]) * time.Second

	if median > maxMedianTimeOffset {
		return maxMedianTimeOffset
	}
	if median < -maxMedianTimeOffset {
		return -maxMedianTimeOffset
	}
	return median
}

// AdjustedTime returns the current local time adjusted by the clamped
// median peer offset.
func (m *medianTime) AdjustedTime() time.Time {
	return time.Now().Add(m.Offset())
}
