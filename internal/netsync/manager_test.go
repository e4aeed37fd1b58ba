// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"fmt"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/coinbasechain/node/blockchain"
	"github.com/coinbasechain/node/wire"
)

// fakeChain is a minimal Chain implementation letting tests script exactly
// which headers are accepted, orphaned, or rejected without standing up a
// real BlockChain.
type fakeChain struct {
	known            map[chainhash.Hash]bool
	orphan           map[chainhash.Hash]bool
	orphanLimitPeer  int32
	duplicateInvalid map[chainhash.Hash]bool
	initialSync      bool
	belowMinimumWork bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		known:            make(map[chainhash.Hash]bool),
		orphan:           make(map[chainhash.Hash]bool),
		duplicateInvalid: make(map[chainhash.Hash]bool),
	}
}

func (f *fakeChain) AcceptHeader(header *wire.BlockHeader, peerID int32) (*blockchain.HeaderInfo, error) {
	hash := header.BlockHash()
	if f.duplicateInvalid[hash] {
		return nil, blockchain.ErrDuplicateInvalid
	}
	if f.orphan[hash] {
		return nil, &blockchain.OrphanRejection{PeerAtOrphanLimit: peerID == f.orphanLimitPeer}
	}
	f.known[hash] = true
	info := blockchain.HeaderInfo{Hash: hash, Header: *header, Valid: true}
	return &info, nil
}

func (f *fakeChain) GetBlockByHash(hash chainhash.Hash) (blockchain.HeaderInfo, bool) {
	if f.known[hash] {
		return blockchain.HeaderInfo{Hash: hash}, true
	}
	return blockchain.HeaderInfo{}, false
}

func (f *fakeChain) BuildLocator() []chainhash.Hash { return []chainhash.Hash{{}} }
func (f *fakeChain) IsInitialSync() bool            { return f.initialSync }
func (f *fakeChain) BelowMinimumChainWork() bool     { return f.belowMinimumWork }

// fakePeer records what the manager did in response to processing a batch.
type fakePeer struct {
	id               int32
	disconnected     bool
	disconnectReason string
	getHeadersCalls  int
}

func (p *fakePeer) ID() int32    { return p.id }
func (p *fakePeer) Addr() string { return fmt.Sprintf("peer-%d", p.id) }
func (p *fakePeer) SendGetHeaders(locator []chainhash.Hash, stop chainhash.Hash) error {
	p.getHeadersCalls++
	return nil
}
func (p *fakePeer) Disconnect(reason string) {
	p.disconnected = true
	p.disconnectReason = reason
}

func chainOfHeaders(n int) []*wire.BlockHeader {
	headers := make([]*wire.BlockHeader, n)
	prev := chainhash.Hash{}
	for i := 0; i < n; i++ {
		h := &wire.BlockHeader{
			Version:   1,
			PrevBlock: prev,
			Time:      uint32(100 + i),
			Bits:      0x1d00ffff,
			Nonce:     uint32(i),
		}
		headers[i] = h
		prev = h.BlockHash()
	}
	return headers
}

func TestHandleHeadersAcceptsLinkedBatch(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	headers := chainOfHeaders(3)
	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peer.disconnected {
		t.Fatal("peer should not be disconnected for a valid batch")
	}
	if mgr.peers.score(1) != 0 {
		t.Fatalf("expected zero score, got %d", mgr.peers.score(1))
	}
}

func TestHandleHeadersOversizedBatchDisconnects(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	headers := make([]*wire.BlockHeader, wire.MaxHeadersPerMsg+1)
	for i := range headers {
		headers[i] = &wire.BlockHeader{}
	}
	// Each oversized batch costs penaltyOversizedMessage (20), so the fifth
	// one brings the score to 100 and disconnects.
	for i := 0; i < 5; i++ {
		if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !peer.disconnected {
		t.Fatal("expected disconnect for oversized batch")
	}
	if peer.disconnectReason != string(reasonOversizedMessage) {
		t.Fatalf("unexpected disconnect reason: %s", peer.disconnectReason)
	}
}

func TestHandleHeadersNonContinuousScoresButDoesNotDisconnect(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	headers := chainOfHeaders(2)
	// Break linkage: second header's PrevBlock no longer matches first's hash.
	headers[1].PrevBlock = chainhash.Hash{0xff}

	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peer.disconnected {
		t.Fatal("single non-continuous batch should only cost 20, not disconnect")
	}
	if got := mgr.peers.score(1); got != penaltyNonContinuous {
		t.Fatalf("expected score %d, got %d", penaltyNonContinuous, got)
	}
}

func TestHandleHeadersNonContinuousAccumulatesToDisconnect(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	for i := 0; i < 5; i++ {
		headers := chainOfHeaders(2)
		headers[1].PrevBlock = chainhash.Hash{0xff}
		if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !peer.disconnected {
		t.Fatal("expected disconnect once score reaches 100")
	}
}

func TestHandleHeadersOrphanAtPeerLimitDisconnects(t *testing.T) {
	chain := newFakeChain()
	headers := chainOfHeaders(1)
	hash := headers[0].BlockHash()
	chain.orphan[hash] = true
	chain.orphanLimitPeer = 1

	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !peer.disconnected {
		t.Fatal("expected disconnect for too_many_orphans")
	}
	if peer.disconnectReason != string(reasonTooManyOrphans) {
		t.Fatalf("unexpected disconnect reason: %s", peer.disconnectReason)
	}
}

func TestHandleHeadersUnconnectingAccumulatesToDisconnect(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	for i := 0; i < unconnectingLimit; i++ {
		headers := chainOfHeaders(1)
		headers[0].Nonce = uint32(1000 + i) // distinct hash each time
		hash := headers[0].BlockHash()
		chain.orphan[hash] = true

		if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peer.disconnected {
			break
		}
	}
	if !peer.disconnected {
		t.Fatal("expected disconnect once unconnecting count reaches limit")
	}
	if peer.disconnectReason != string(reasonTooManyUnconnecting) {
		t.Fatalf("unexpected disconnect reason: %s", peer.disconnectReason)
	}
}

func TestHandleHeadersDuplicateBatchIsBenign(t *testing.T) {
	chain := newFakeChain()
	headers := chainOfHeaders(2)
	for _, h := range headers {
		chain.known[h.BlockHash()] = true
	}

	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peer.disconnected {
		t.Fatal("duplicate-only batch must not be penalized")
	}
	if got := mgr.peers.score(1); got != 0 {
		t.Fatalf("expected zero score for duplicate batch, got %d", got)
	}
}

func TestHandleHeadersLowWorkOutsideInitialSync(t *testing.T) {
	chain := newFakeChain()
	chain.belowMinimumWork = true
	chain.initialSync = false

	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	headers := chainOfHeaders(1)
	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.peers.score(1); got != penaltyLowWorkHeaders {
		t.Fatalf("expected score %d, got %d", penaltyLowWorkHeaders, got)
	}
}

func TestHandleHeadersLowWorkSkippedDuringInitialSync(t *testing.T) {
	chain := newFakeChain()
	chain.belowMinimumWork = true
	chain.initialSync = true

	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	headers := chainOfHeaders(1)
	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.peers.score(1); got != 0 {
		t.Fatalf("expected no penalty during initial sync, got score %d", got)
	}
}

func TestHandleHeadersFullBatchRequestsMoreWhenSyncPeer(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	if err := mgr.StartSync(peer); err != nil {
		t.Fatalf("unexpected error starting sync: %v", err)
	}
	if peer.getHeadersCalls != 1 {
		t.Fatalf("expected 1 getheaders call from StartSync, got %d", peer.getHeadersCalls)
	}

	headers := chainOfHeaders(wire.MaxHeadersPerMsg)
	if err := mgr.HandleHeadersMessage(peer, &wire.MsgHeaders{Headers: headers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peer.getHeadersCalls != 2 {
		t.Fatalf("expected follow-up getheaders call, got %d total calls", peer.getHeadersCalls)
	}
}

func TestStartSyncIsAtMostOnce(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	mgr.PeerConnected(2)
	peerA := &fakePeer{id: 1}
	peerB := &fakePeer{id: 2}

	if err := mgr.StartSync(peerA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mgr.StartSync(peerB); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peerB.getHeadersCalls != 0 {
		t.Fatal("second StartSync call should be a no-op while a sync peer is designated")
	}
	if !mgr.isSyncPeer(1) || mgr.isSyncPeer(2) {
		t.Fatal("expected peer 1 to remain the sole sync peer")
	}
}

func TestPeerDisconnectedReleasesSyncSlot(t *testing.T) {
	chain := newFakeChain()
	mgr := New(chain)
	mgr.PeerConnected(1)
	peer := &fakePeer{id: 1}

	if err := mgr.StartSync(peer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mgr.PeerDisconnected(1)
	if mgr.isSyncPeer(1) {
		t.Fatal("expected sync slot to clear on disconnect")
	}
}
