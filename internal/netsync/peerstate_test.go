// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import "testing"

func TestPeerRegistryApplyPenaltySaturates(t *testing.T) {
	r := newPeerRegistry()
	r.register(1)

	score, disconnect := r.applyPenalty(1, 60)
	if disconnect {
		t.Fatal("60 should not yet trigger disconnect")
	}
	if score != 60 {
		t.Fatalf("expected score 60, got %d", score)
	}

	score, disconnect = r.applyPenalty(1, 60)
	if !disconnect {
		t.Fatal("expected disconnect once score would exceed 100")
	}
	if score != disconnectScore {
		t.Fatalf("expected score to saturate at %d, got %d", disconnectScore, score)
	}
}

func TestPeerRegistryUnknownPeerAlwaysDisconnects(t *testing.T) {
	r := newPeerRegistry()
	score, disconnect := r.applyPenalty(99, 1)
	if !disconnect {
		t.Fatal("an unregistered peer should be treated as already over threshold")
	}
	if score != disconnectScore {
		t.Fatalf("expected score %d, got %d", disconnectScore, score)
	}
}

func TestPeerRegistryUnconnectingDecayFloorsAtZero(t *testing.T) {
	r := newPeerRegistry()
	r.register(1)

	r.incrementUnconnecting(1)
	r.decayUnconnecting(1)
	r.decayUnconnecting(1)
	r.decayUnconnecting(1)

	// One increment (1) then three decays of 2 each (-6) floors at 0, never
	// goes negative.
	if got := r.peers[1].unconnectingHeadersCount; got != 0 {
		t.Fatalf("expected unconnecting count floored at 0, got %d", got)
	}
}

func TestPeerRegistryUnregisterDropsState(t *testing.T) {
	r := newPeerRegistry()
	r.register(1)
	r.applyPenalty(1, 50)
	r.unregister(1)

	if _, ok := r.peers[1]; ok {
		t.Fatal("expected peer state removed after unregister")
	}
	if got := r.score(1); got != 0 {
		t.Fatalf("expected score 0 for unknown peer, got %d", got)
	}
}

func TestPeerRegistryIncrementUnconnectingReachesLimit(t *testing.T) {
	r := newPeerRegistry()
	r.register(1)

	var last int32
	for i := 0; i < unconnectingLimit; i++ {
		last = r.incrementUnconnecting(1)
	}
	if last != unconnectingLimit {
		t.Fatalf("expected count to reach %d, got %d", unconnectingLimit, last)
	}
}
