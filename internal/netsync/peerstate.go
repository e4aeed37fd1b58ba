// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import "sync"

// peerState tracks the per-peer counters spec.md §3.6 names. It is only
// ever mutated under the owning registry's mutex.
type peerState struct {
	id                       int32
	misbehaviorScore         int32
	unconnectingHeadersCount int32
	orphansInFlight          int32
}

// peerRegistry guards the set of peerState values, strictly acquired after
// the chainstate lock when both are needed, per spec.md §5's one-way
// dependency rule.
type peerRegistry struct {
	mtx   sync.Mutex
	peers map[int32]*peerState
}

// newPeerRegistry returns a new, empty peer registry.
func newPeerRegistry() *peerRegistry {
	return &peerRegistry{peers: make(map[int32]*peerState)}
}

// register adds peerID to the registry with a fresh zero-valued state. A
// peer already present is left unchanged.
func (r *peerRegistry) register(peerID int32) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.peers[peerID]; !ok {
		r.peers[peerID] = &peerState{id: peerID}
	}
}

// unregister removes peerID from the registry, called on disconnect.
func (r *peerRegistry) unregister(peerID int32) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	delete(r.peers, peerID)
}

// applyPenalty adds penalty to peerID's misbehavior score, saturating at
// disconnectScore, and reports whether the peer has now crossed the
// disconnect threshold. A peer not present in the registry is treated as
// already disconnected: it reports true without tracking a score.
func (r *peerRegistry) applyPenalty(peerID int32, penalty int32) (score int32, shouldDisconnect bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p, ok := r.peers[peerID]
	if !ok {
		return disconnectScore, true
	}
	p.misbehaviorScore += penalty
	if p.misbehaviorScore > disconnectScore {
		p.misbehaviorScore = disconnectScore
	}
	return p.misbehaviorScore, p.misbehaviorScore >= disconnectScore
}

// score returns peerID's current misbehavior score, or 0 if unknown.
func (r *peerRegistry) score(peerID int32) int32 {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if p, ok := r.peers[peerID]; ok {
		return p.misbehaviorScore
	}
	return 0
}

// incrementUnconnecting increments peerID's unconnecting-headers counter and
// returns the new value.
func (r *peerRegistry) incrementUnconnecting(peerID int32) int32 {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	p, ok := r.peers[peerID]
	if !ok {
		return 0
	}
	p.unconnectingHeadersCount++
	return p.unconnectingHeadersCount
}

// decayUnconnecting reduces peerID's unconnecting-headers counter by
// unconnectingDecay, floored at zero.
func (r *peerRegistry) decayUnconnecting(peerID int32) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	p, ok := r.peers[peerID]
	if !ok {
		return
	}
	p.unconnectingHeadersCount -= unconnectingDecay
	if p.unconnectingHeadersCount < 0 {
		p.unconnectingHeadersCount = 0
	}
}
