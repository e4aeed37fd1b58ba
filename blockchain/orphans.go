// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/coinbasechain/node/wire"
)

// Orphan pool bounds, per spec.md §3.4. A header is an orphan when its
// parent hash is unknown to the index; orphans are held only long enough
// for the sync manager to fetch their missing ancestors.
const (
	maxOrphanHeaders     = 1000
	maxOrphanHeadersPerPeer = 50
	orphanExpiry         = 600 * time.Second
)

// orphanHeader is a header held in the orphan pool pending discovery of its
// parent, tagged with the peer it arrived from and when it was received.
type orphanHeader struct {
	header   wire.BlockHeader
	peerID   int32
	received time.Time
}

// orphanPool tracks headers whose parent is not yet known to the block
// index, indexed both by the orphan's own hash and by the (missing)
// parent hash so a newly accepted header can look up and drain its
// waiting children in O(children) rather than scanning the whole pool.
type orphanPool struct {
	orphans      map[chainhash.Hash]*orphanHeader
	byParent     map[chainhash.Hash][]chainhash.Hash
	countPerPeer map[int32]int
}

// newOrphanPool returns a new, empty orphan pool.
func newOrphanPool() *orphanPool {
	return &orphanPool{
		orphans:      make(map[chainhash.Hash]*orphanHeader),
		byParent:     make(map[chainhash.Hash][]chainhash.Hash),
		countPerPeer: make(map[int32]int),
	}
}

// count returns the total number of orphans currently held.
func (p *orphanPool) count() int {
	return len(p.orphans)
}

// countForPeer returns the number of orphans currently attributed to the
// given peer.
func (p *orphanPool) countForPeer(peerID int32) int {
	return p.countPerPeer[peerID]
}

// haveOrphan returns whether the given hash is already present in the pool.
func (p *orphanPool) haveOrphan(hash *chainhash.Hash) bool {
	_, ok := p.orphans[*hash]
	return ok
}

// TryAdd inserts header into the orphan pool attributed to peerID. If the
// pool is at its global capacity, the oldest orphans are evicted to make
// room rather than rejecting the new arrival; the per-peer cap, by
// contrast, drops the new header outright rather than evicting someone
// else's entries, per spec.md §4.3's try_add_orphan contract. It returns
// false when the header was dropped for being over the per-peer cap; the
// caller (chainstate) translates that into the too_many_orphans signal.
func (p *orphanPool) TryAdd(header *wire.BlockHeader, peerID int32, now time.Time) bool {
	hash := header.BlockHash()
	if p.haveOrphan(&hash) {
		return true
	}
	if p.countPerPeer[peerID] >= maxOrphanHeadersPerPeer {
		return false
	}

	for len(p.orphans) >= maxOrphanHeaders {
		oldest := p.oldestHash()
		if oldest == nil {
			break
		}
		p.remove(*oldest)
	}

	p.orphans[hash] = &orphanHeader{
		header:   *header,
		peerID:   peerID,
		received: now,
	}
	p.byParent[header.PrevBlock] = append(p.byParent[header.PrevBlock], hash)
	p.countPerPeer[peerID]++
	return true
}

// oldestHash returns the hash of the orphan with the earliest arrival time,
// or nil if the pool is empty.
func (p *orphanPool) oldestHash() *chainhash.Hash {
	var oldest *chainhash.Hash
	var oldestTime time.Time
	for h, o := range p.orphans {
		if oldest == nil || o.received.Before(oldestTime) {
			h := h
			oldest = &h
			oldestTime = o.received
		}
	}
	return oldest
}

// remove deletes the orphan identified by hash from every index, if present.
func (p *orphanPool) remove(hash chainhash.Hash) {
	orphan, ok := p.orphans[hash]
	if !ok {
		return
	}
	delete(p.orphans, hash)
	p.countPerPeer[orphan.peerID]--
	if p.countPerPeer[orphan.peerID] <= 0 {
		delete(p.countPerPeer, orphan.peerID)
	}

	siblings := p.byParent[orphan.header.PrevBlock]
	for i, sib := range siblings {
		if sib == hash {
			siblings[i] = siblings[len(siblings)-1]
			siblings = siblings[:len(siblings)-1]
			break
		}
	}
	if len(siblings) == 0 {
		delete(p.byParent, orphan.header.PrevBlock)
	} else {
		p.byParent[orphan.header.PrevBlock] = siblings
	}
}

// Children returns the headers of every orphan directly waiting on
// parentHash, without removing them from the pool; the caller removes each
// one as it successfully attaches it to the index.
func (p *orphanPool) Children(parentHash chainhash.Hash) []wire.BlockHeader {
	hashes := p.byParent[parentHash]
	if len(hashes) == 0 {
		return nil
	}
	out := make([]wire.BlockHeader, 0, len(hashes))
	for _, h := range hashes {
		if orphan, ok := p.orphans[h]; ok {
			out = append(out, orphan.header)
		}
	}
	return out
}

// RemoveChild removes a single resolved orphan by its own hash, used by the
// caller once it has processed that child (successfully or not) out of the
// slice returned by Children.
func (p *orphanPool) RemoveChild(hash chainhash.Hash) {
	p.remove(hash)
}

// ExpireOlderThan removes every orphan received before the given cutoff and
// returns how many were evicted. The sync manager calls this periodically so
// orphans whose ancestors never arrive don't occupy pool capacity forever.
func (p *orphanPool) ExpireOlderThan(cutoff time.Time) int {
	var expired []chainhash.Hash
	for hash, orphan := range p.orphans {
		if orphan.received.Before(cutoff) {
			expired = append(expired, hash)
		}
	}
	for _, hash := range expired {
		p.remove(hash)
	}
	return len(expired)
}
