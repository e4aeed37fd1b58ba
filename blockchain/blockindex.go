// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
	"github.com/jrick/bitset"

	"github.com/coinbasechain/node/wire"
)

// blockStatus is a bitset of flags describing the validation state of a
// blockNode. It is backed by jrick/bitset rather than a bare integer so the
// bit positions are named and the zero value ("unknown") is unambiguous.
type blockStatus struct {
	bits bitset.Bytes
}

// Status flag bit positions. The highest level reachable by a headers-only
// node is statusValidTree; statusValidHeader alone means the context-free
// checks passed but contextual (parent-dependent) checks have not yet run.
const (
	statusBitValidHeader = iota
	statusBitValidTree
	statusBitFailedValid
	statusBitFailedChild
)

// newBlockStatus returns the zero blockStatus: no flags set.
func newBlockStatus() blockStatus {
	return blockStatus{bits: bitset.NewBytes(8)}
}

func (s blockStatus) has(bit int) bool { return s.bits.Get(bit) }
func (s blockStatus) set(bit int)      { s.bits.Set(bit) }

// Uint32 packs the status bits into a single word for persistence, per the
// header store record format of spec.md §6.3.
func (s blockStatus) Uint32() uint32 {
	var v uint32
	for i := 0; i < len(s.bits) && i < 4; i++ {
		v |= uint32(s.bits[i]) << (8 * uint(i))
	}
	return v
}

// statusFromUint32 unpacks a status word read from the header store back
// into a blockStatus.
func statusFromUint32(v uint32) blockStatus {
	s := newBlockStatus()
	for i := 0; i < len(s.bits) && i < 4; i++ {
		s.bits[i] = byte(v >> (8 * uint(i)))
	}
	return s
}

// KnownValid returns whether the node has been fully validated for a
// headers-only chain, i.e. holds statusValidTree.
func (s blockStatus) KnownValid() bool { return s.has(statusBitValidTree) }

// KnownInvalid returns whether the node or one of its ancestors is known to
// have failed validation.
func (s blockStatus) KnownInvalid() bool {
	return s.has(statusBitFailedValid) || s.has(statusBitFailedChild)
}

// setValidHeader marks context-free validation as having passed.
func (s *blockStatus) setValidHeader() { s.set(statusBitValidHeader) }

// setValidTree marks the node (and implicitly, by invariant, every
// ancestor) as fully validated.
func (s *blockStatus) setValidTree() { s.set(statusBitValidTree) }

// setFailedValid marks the node itself as having failed validation.
func (s *blockStatus) setFailedValid() { s.set(statusBitFailedValid) }

// setFailedChild marks the node as descending from a failed ancestor.
func (s *blockStatus) setFailedChild() { s.set(statusBitFailedChild) }

// blockNode represents a header in the tree of known headers. Each node has
// exactly one owning entry in a blockIndex, keyed by its hash, and a single
// back-reference to its parent node (nil only for genesis). Nodes are never
// copied or moved once created; the index holds pointers.
type blockNode struct {
	parent *blockNode
	hash   chainhash.Hash
	height int64

	// workSum is the cumulative chain work from genesis through this node,
	// i.e. parent.workSum + block_proof(bits).
	workSum *uint256.Uint256

	// Inline copies of the header fields needed after the header itself is
	// no longer retained in memory (e.g. once evicted from a header cache).
	version      int32
	minerAddress [wire.MinerAddrSize]byte
	timestamp    int64
	bits         uint32
	nonce        uint32
	randomXHash  [wire.RandomXHashSize]byte

	status blockStatus
}

// newBlockNode returns a new block node for the given header, linked to the
// given parent node. The caller is responsible for ensuring header actually
// descends from parent and that the genesis case (parent == nil) is only
// used once. Height and chain work are derived, never re-derived later.
func newBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	node := &blockNode{
		hash:         header.BlockHash(),
		parent:       parent,
		version:      header.Version,
		minerAddress: header.MinerAddress,
		timestamp:    int64(header.Time),
		bits:         header.Bits,
		nonce:        header.Nonce,
		randomXHash:  header.RandomXHash,
		status:       newBlockStatus(),
	}

	proof := calcWork(header.Bits)
	if parent != nil {
		node.height = parent.height + 1
		node.workSum = new(uint256.Uint256).Add(parent.workSum, proof)
	} else {
		node.height = 0
		node.workSum = proof
	}
	return node
}

// Header reconstructs the wire encoding of the node's header from the
// node's in-memory fields and parent linkage.
func (node *blockNode) Header() wire.BlockHeader {
	var prevHash chainhash.Hash
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return wire.BlockHeader{
		Version:      node.version,
		PrevBlock:    prevHash,
		MinerAddress: node.minerAddress,
		Time:         uint32(node.timestamp),
		Bits:         node.bits,
		Nonce:        node.nonce,
		RandomXHash:  node.randomXHash,
	}
}

// Ancestor returns the ancestor of node at the given height. It returns nil
// if the height is negative or greater than node's own height.
func (node *blockNode) Ancestor(height int64) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for n != nil && n.height != height {
		n = n.parent
	}
	return n
}

// RelativeAncestor returns the ancestor of node distance blocks before it.
// It is equivalent to node.Ancestor(node.height - distance).
func (node *blockNode) RelativeAncestor(distance int64) *blockNode {
	return node.Ancestor(node.height - distance)
}

// CalcPastMedianTime calculates the median time of the previous windowSize
// blocks ending with (and including) node. Fewer blocks are used near the
// beginning of the chain.
func (node *blockNode) CalcPastMedianTime(windowSize int) int64 {
	timestamps := make([]int64, 0, windowSize)
	iter := node
	for i := 0; i < windowSize && iter != nil; i++ {
		timestamps = append(timestamps, iter.timestamp)
		iter = iter.parent
	}

	// Insertion sort; windowSize is always small (11 per spec).
	for i := 1; i < len(timestamps); i++ {
		for j := i; j > 0 && timestamps[j-1] > timestamps[j]; j-- {
			timestamps[j-1], timestamps[j] = timestamps[j], timestamps[j-1]
		}
	}

	return timestamps[len(timestamps)/2]
}

// blockIndex provides facilities for keeping track of an in-memory tree of
// blocks, keyed by hash, and efficiently performing ancestor queries. All
// access to the index is expected to occur under the chainstate lock held by
// the owning BlockChain; blockIndex itself holds an additional mutex only to
// make that contract explicit and to allow read-only callers (RPC) to take
// a narrower lock than the full chainstate lock when they only need a
// lookup.
type blockIndex struct {
	mtx   sync.RWMutex
	index map[chainhash.Hash]*blockNode
}

// newBlockIndex returns a new, empty block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index: make(map[chainhash.Hash]*blockNode),
	}
}

// HaveBlock returns whether or not the block index contains the provided
// hash.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.mtx.RLock()
	_, ok := bi.index[*hash]
	bi.mtx.RUnlock()
	return ok
}

// LookupNode returns the block node identified by the provided hash. It
// returns nil if there is no entry for the hash.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.mtx.RLock()
	node := bi.index[*hash]
	bi.mtx.RUnlock()
	return node
}

// AddNode adds the provided node to the block index. Duplicate inserts of an
// already-indexed hash are a programmer error; callers (chainstate) dedupe
// before calling AddNode.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.mtx.Lock()
	bi.index[node.hash] = node
	bi.mtx.Unlock()
}

// NodeCount returns the number of nodes in the index. Used by tests and
// diagnostics only.
func (bi *blockIndex) NodeCount() int {
	bi.mtx.RLock()
	n := len(bi.index)
	bi.mtx.RUnlock()
	return n
}

// Snapshot returns a slice of every node currently in the index. The slice
// is a point-in-time copy of the map's values; the nodes themselves are
// shared, live pointers.
func (bi *blockIndex) Snapshot() []*blockNode {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	nodes := make([]*blockNode, 0, len(bi.index))
	for _, n := range bi.index {
		nodes = append(nodes, n)
	}
	return nodes
}
