// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

// Misbehavior penalty constants, per spec.md §4.7. A peer's score saturates
// at disconnectScore; it is never allowed to wrap or go negative.
const (
	penaltyOversizedMessage    = 20
	penaltyNonContinuous       = 20
	penaltyInvalidPow          = 100
	penaltyTooManyOrphans      = 100
	penaltyTooManyUnconnecting = 100
	penaltyLowWorkHeaders      = 10

	disconnectScore = 100

	// unconnectingDecay is how much the unconnecting-headers counter backs
	// off on any successful accept of a non-orphan header; it decays
	// rather than resets so a peer alternating between good and bad
	// batches still accumulates toward the limit.
	unconnectingDecay = 2

	// unconnectingLimit is the unconnecting-headers count at which
	// penaltyTooManyUnconnecting is applied.
	unconnectingLimit = 10

	// discouragementDuration is how long a disconnected-for-misbehavior
	// peer's address is discouraged from reconnecting.
	discouragementDuration = 24 * 60 * 60 // seconds
)

// misbehaviorReason names why a penalty was applied, used for operator
// logging when a peer is disconnected.
type misbehaviorReason string

const (
	reasonOversizedMessage    misbehaviorReason = "oversized_message"
	reasonNonContinuous       misbehaviorReason = "non_continuous_headers"
	reasonInvalidPow          misbehaviorReason = "invalid_pow"
	reasonTooManyOrphans      misbehaviorReason = "too_many_orphans"
	reasonTooManyUnconnecting misbehaviorReason = "too_many_unconnecting"
	reasonLowWorkHeaders      misbehaviorReason = "low_work_headers"
)

// IsMisbehaviorReason reports whether reason (as passed to Peer.Disconnect)
// names one of this package's scored misbehavior kinds, as opposed to a
// transport-level disconnect (read error, shutdown, handshake failure).
// The server layer uses this to decide whether a disconnect should also
// discourage the peer's address.
func IsMisbehaviorReason(reason string) bool {
	switch misbehaviorReason(reason) {
	case reasonOversizedMessage, reasonNonContinuous, reasonInvalidPow,
		reasonTooManyOrphans, reasonTooManyUnconnecting, reasonLowWorkHeaders:
		return true
	default:
		return false
	}
}
