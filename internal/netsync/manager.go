// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netsync implements spec.md §4.7's header-sync state machine: a
// per-peer misbehavior scorer driving disconnect/discouragement decisions,
// and the headers-message processing loop that feeds accepted headers into
// the chainstate orchestrator.
package netsync

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/coinbasechain/node/blockchain"
	"github.com/coinbasechain/node/wire"
)

// syncStallTimeout is how long the manager waits for a headers reply after
// issuing a getheaders to the designated sync peer before clearing the slot
// so that a later StartSync call can designate another peer, per spec.md
// §4.7's last paragraph.
const syncStallTimeout = 60 * time.Second

// Chain is the narrow chainstate surface the manager needs. blockchain.BlockChain
// satisfies it directly; tests substitute a fake.
type Chain interface {
	AcceptHeader(header *wire.BlockHeader, peerID int32) (*blockchain.HeaderInfo, error)
	GetBlockByHash(hash chainhash.Hash) (blockchain.HeaderInfo, bool)
	BuildLocator() []chainhash.Hash
	IsInitialSync() bool
	BelowMinimumChainWork() bool
}

// Manager drives header sync and peer misbehavior scoring. The zero value
// is not usable; construct with New.
type Manager struct {
	chain    Chain
	peers    *peerRegistry
	syncPeer int32 // atomic; 0 means "no sync peer designated"

	syncStart     atomic.Int64 // unix nanos; 0 when no sync in flight
	lastHeadersAt atomic.Int64 // unix nanos of the last headers message received
}

// New constructs a Manager driving header sync against chain.
func New(chain Chain) *Manager {
	return &Manager{
		chain: chain,
		peers: newPeerRegistry(),
	}
}

// PeerConnected registers a newly handshaken peer for misbehavior tracking.
func (m *Manager) PeerConnected(peerID int32) {
	m.peers.register(peerID)
}

// PeerDisconnected drops a peer's tracked state, and releases the sync-peer
// slot if it belonged to this peer.
func (m *Manager) PeerDisconnected(peerID int32) {
	m.peers.unregister(peerID)
	atomic.CompareAndSwapInt32(&m.syncPeer, peerID, 0)
}

// StartSync attempts to designate peer as the sync peer via compare-exchange
// from 0, and if it succeeds, sends the initial getheaders request.
func (m *Manager) StartSync(peer Peer) error {
	if !atomic.CompareAndSwapInt32(&m.syncPeer, 0, peer.ID()) {
		return nil
	}
	m.syncStart.Store(time.Now().UnixNano())
	m.lastHeadersAt.Store(time.Now().UnixNano())

	locator := m.chain.BuildLocator()
	if err := peer.SendGetHeaders(locator, chainhash.Hash{}); err != nil {
		atomic.CompareAndSwapInt32(&m.syncPeer, peer.ID(), 0)
		return err
	}
	return nil
}

// CheckSyncStall clears the sync-peer slot if no headers have arrived
// within syncStallTimeout of the last getheaders request, per spec.md
// §4.7. Callers should invoke this periodically (e.g. from a ticker); the
// next StartSync call then picks a fresh peer.
func (m *Manager) CheckSyncStall() {
	peerID := atomic.LoadInt32(&m.syncPeer)
	if peerID == 0 {
		return
	}
	last := time.Unix(0, m.lastHeadersAt.Load())
	if time.Since(last) > syncStallTimeout {
		atomic.CompareAndSwapInt32(&m.syncPeer, peerID, 0)
	}
}

// isSyncPeer reports whether peerID currently holds the sync-peer slot.
func (m *Manager) isSyncPeer(peerID int32) bool {
	return atomic.LoadInt32(&m.syncPeer) == peerID
}

// penalize applies a misbehavior penalty and, if the peer has crossed the
// disconnect threshold, tears down the connection and logs why.
func (m *Manager) penalize(peer Peer, penalty int32, reason misbehaviorReason) {
	score, disconnect := m.peers.applyPenalty(peer.ID(), penalty)
	log.Warnf("peer %d (%s): misbehavior %s, score now %d", peer.ID(), peer.Addr(), reason, score)
	if disconnect {
		log.Warnf("peer %d (%s): disconnecting and discouraging for %s", peer.ID(), peer.Addr(), reason)
		peer.Disconnect(string(reason))
	}
}

// HandleHeadersMessage processes an incoming headers batch per spec.md
// §4.7 steps 1-6, applying misbehavior penalties and driving acceptance
// into the chain. It returns an error only for conditions the caller needs
// to know about beyond penalty/disconnect bookkeeping (currently none are
// fatal to the manager itself; disconnects are signaled through peer).
func (m *Manager) HandleHeadersMessage(peer Peer, msg *wire.MsgHeaders) error {
	m.lastHeadersAt.Store(time.Now().UnixNano())

	headers := msg.Headers
	if len(headers) > wire.MaxHeadersPerMsg {
		m.penalize(peer, penaltyOversizedMessage, reasonOversizedMessage)
		return nil
	}
	if len(headers) == 0 {
		return nil
	}

	// Step 2: consecutive linkage.
	for i := 1; i < len(headers); i++ {
		if headers[i].PrevBlock != headers[i-1].BlockHash() {
			m.penalize(peer, penaltyNonContinuous, reasonNonContinuous)
			return nil
		}
	}

	// Step 3: Layer 1 batch pre-filter.
	flat := make([]wire.BlockHeader, len(headers))
	for i, h := range headers {
		flat[i] = *h
	}
	if err := blockchain.CheckHeadersBatchPowCommitment(flat); err != nil {
		m.penalize(peer, penaltyInvalidPow, reasonInvalidPow)
		return nil
	}

	var (
		newlyAccepted  int
		onlyDuplicates = true
		madeProgress   bool
	)

	for _, h := range headers {
		hash := h.BlockHash()
		_, alreadyKnown := m.chain.GetBlockByHash(hash)

		_, err := m.chain.AcceptHeader(h, peer.ID())
		switch {
		case err == nil:
			if !alreadyKnown {
				newlyAccepted++
				onlyDuplicates = false
			}
			madeProgress = true
			m.peers.decayUnconnecting(peer.ID())

		case errors.Is(err, blockchain.ErrDuplicateInvalid):
			// Already known, just not as a valid entry; benign to redeliver.

		default:
			var orphanErr *blockchain.OrphanRejection
			if errors.As(err, &orphanErr) {
				onlyDuplicates = false
				if orphanErr.PeerAtOrphanLimit {
					m.penalize(peer, penaltyTooManyOrphans, reasonTooManyOrphans)
					return nil
				}
				if !madeProgress && hash == headers[0].BlockHash() {
					count := m.peers.incrementUnconnecting(peer.ID())
					if count >= unconnectingLimit {
						m.penalize(peer, penaltyTooManyUnconnecting, reasonTooManyUnconnecting)
						return nil
					}
				}
				continue
			}
			onlyDuplicates = false
		}
	}

	// Step 6: a batch delivering only already-known, valid_tree headers is
	// benign; no penalty regardless of the above accounting.
	if onlyDuplicates {
		return nil
	}

	// Step 4 (low-work spam): evaluated once per batch, against the tip
	// state left after processing every header in it.
	if newlyAccepted > 0 && !m.chain.IsInitialSync() && m.chain.BelowMinimumChainWork() {
		m.penalize(peer, penaltyLowWorkHeaders, reasonLowWorkHeaders)
		return nil
	}

	// Step 5: a full batch means there may be more; keep pulling if we're
	// still the sync peer.
	if len(headers) == wire.MaxHeadersPerMsg && m.isSyncPeer(peer.ID()) {
		locator := m.chain.BuildLocator()
		if err := peer.SendGetHeaders(locator, chainhash.Hash{}); err != nil {
			return err
		}
		m.lastHeadersAt.Store(time.Now().UnixNano())
	}

	return nil
}
