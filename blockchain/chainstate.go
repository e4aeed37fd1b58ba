// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"

	"github.com/coinbasechain/node/chaincfg"
	"github.com/coinbasechain/node/internal/randomx"
	"github.com/coinbasechain/node/wire"
)

// maxTipAge is how stale the active tip's timestamp may be before
// IsInitialSync reports the node is still catching up to the network.
const maxTipAge = 24 * time.Hour

// OrphanRejection is the error AcceptHeader returns when a header's parent
// is not present in the index. PeerAtOrphanLimit reports whether the
// delivering peer was already at its per-peer orphan cap and the header
// was therefore dropped outright rather than queued, which the sync layer
// uses to decide whether to apply the too_many_orphans penalty (spec.md
// §4.3, §4.7).
type OrphanRejection struct {
	PeerAtOrphanLimit bool
}

// Error satisfies the error interface.
func (e *OrphanRejection) Error() string {
	if e.PeerAtOrphanLimit {
		return "orphan header dropped: peer at per-peer orphan limit"
	}
	return "orphan header: parent not yet known"
}

// Is allows errors.Is(err, ErrOrphanHeader) to match any *OrphanRejection.
func (e *OrphanRejection) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == ErrOrphanHeader
}

// HeaderInfo is the value type returned by the chainstate's read queries
// (spec.md §6.4), carrying just enough to answer RPC-shaped questions
// without leaking the internal blockNode pointer type outside the package.
type HeaderInfo struct {
	Hash    chainhash.Hash
	Height  int64
	Header  wire.BlockHeader
	Valid   bool
	Invalid bool
}

func nodeToInfo(n *blockNode) HeaderInfo {
	return HeaderInfo{
		Hash:    n.hash,
		Height:  n.height,
		Header:  n.Header(),
		Valid:   n.status.KnownValid(),
		Invalid: n.status.KnownInvalid(),
	}
}

// BlockChain is the chainstate orchestrator of spec.md §4.3: the single
// serialization point for every operation that reads or mutates the block
// index, active chain, orphan table, failed set, or best-known header.
//
// Every exported method that touches chainstate takes chainLock once at
// its own top and never again; internal helpers (acceptHeader,
// activateBestChain, processOrphanChildren) assume the lock is already
// held and call each other directly rather than re-locking, which is what
// gives the orchestrator its re-entrant-in-effect behavior (spec.md §9)
// without requiring a literal recursive mutex.
type BlockChain struct {
	chainParams *chaincfg.Params
	powEngine   *randomx.Engine
	medianTime  *medianTime

	suspiciousReorgDepth int64
	minimumChainWork     *uint256.Uint256

	chainLock sync.Mutex

	index      *blockIndex
	view       *chainView
	orphans    *orphanPool
	failed     map[chainhash.Hash]struct{}
	bestHeader *blockNode

	// drainingOrphans is set while processOrphanChildren runs, so the
	// acceptHeader calls it makes do not start a nested drain of their own.
	drainingOrphans bool

	nextSubID   uint64
	subscribers []notifySubscription
}

// Option configures optional BlockChain behavior at construction time.
type Option func(*BlockChain)

// WithSuspiciousReorgDepth sets the reorg-depth threshold beyond which
// ActivateBestChain halts and surfaces an operator-visible error instead of
// mutating the active chain, per spec.md §4.3. Zero (the default) disables
// the check.
func WithSuspiciousReorgDepth(depth int64) Option {
	return func(b *BlockChain) { b.suspiciousReorgDepth = depth }
}

// WithMinimumChainWork sets the threshold below which a fully-drained
// headers batch is treated as low-work spam by the sync layer (spec.md
// §4.7). It is stored on BlockChain because it is a network-configured
// consensus-adjacent parameter, but it's read, not enforced, here.
func WithMinimumChainWork(work *uint256.Uint256) Option {
	return func(b *BlockChain) { b.minimumChainWork = work }
}

// New constructs a BlockChain for the given network parameters and PoW
// engine, and accepts the network's genesis header as the first entry.
func New(params *chaincfg.Params, engine *randomx.Engine, opts ...Option) (*BlockChain, error) {
	b := &BlockChain{
		chainParams: params,
		powEngine:   engine,
		medianTime:  newMedianTime(),
		index:       newBlockIndex(),
		view:        newChainView(nil),
		orphans:     newOrphanPool(),
		failed:      make(map[chainhash.Hash]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	genesis := params.GenesisBlock
	if _, err := b.acceptHeader(&genesis, 0); err != nil {
		return nil, fmt.Errorf("blockchain: failed to accept genesis header: %w", err)
	}
	return b, nil
}

// MedianTime returns the network-adjusted time tracker so callers (the
// sync manager processing version handshakes) can feed it peer time
// samples.
func (b *BlockChain) MedianTime() *medianTime {
	return b.medianTime
}

// AcceptHeader implements spec.md §4.3's accept_header operation.
func (b *BlockChain) AcceptHeader(header *wire.BlockHeader, peerID int32) (*HeaderInfo, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node, err := b.acceptHeader(header, peerID)
	if err != nil {
		return nil, err
	}
	info := nodeToInfo(node)
	return &info, nil
}

func (b *BlockChain) acceptHeader(header *wire.BlockHeader, peerID int32) (*blockNode, error) {
	hash := header.BlockHash()

	if existing := b.index.LookupNode(&hash); existing != nil {
		if existing.status.KnownInvalid() {
			return nil, ruleErrorf(ErrDuplicateInvalid, "header %s previously failed validation", hash)
		}
		return existing, nil
	}

	// Reject cheaply, before running any PoW verification, if the parent
	// is already known to have failed. This subsumes spec.md §4.3 step 6
	// (mark failed_child and store): since this check always fires first,
	// a new entry descending from a known-failed parent is never reached
	// by step 6's later branch, so no separate failed_child insert path
	// exists here.
	if !isZeroHash(header.PrevBlock) {
		if parent := b.index.LookupNode(&header.PrevBlock); parent != nil && parent.status.KnownInvalid() {
			return nil, ruleErrorf(ErrInvalidAncestor, "parent %s is marked failed", header.PrevBlock)
		}
	}

	// The genesis header is trusted data embedded in the network params,
	// not a claim a peer makes: it is accepted on hash match alone, with
	// none of the PoW or contextual layers run against it, since it has
	// no parent to derive a target or median time from and predates the
	// PoW scheme entirely.
	isGenesis := isZeroHash(header.PrevBlock)
	if isGenesis {
		if hash != b.chainParams.GenesisHash {
			return nil, ruleErrorf(ErrBadGenesis, "genesis hash mismatch: got %s want %s",
				hash, b.chainParams.GenesisHash)
		}
	} else {
		if err := checkHeaderPowCommitment(header); err != nil {
			return nil, err
		}
	}

	var parent *blockNode
	if !isGenesis {
		parent = b.index.LookupNode(&header.PrevBlock)
		if parent == nil {
			added := b.orphans.TryAdd(header, peerID, time.Now())
			return nil, &OrphanRejection{PeerAtOrphanLimit: !added}
		}

		if err := checkHeaderContextFree(b.powEngine, header); err != nil {
			b.storeFailed(header, parent)
			return nil, err
		}

		if err := checkHeaderContextual(b.chainParams, header, parent, b.medianTime.AdjustedTime()); err != nil {
			b.storeFailed(header, parent)
			return nil, err
		}
	}

	node := newBlockNode(header, parent)
	node.status.setValidHeader()
	node.status.setValidTree()
	b.index.AddNode(node)

	b.refreshBestHeader()
	b.activateBestChain()
	b.processOrphanChildren(hash)

	return node, nil
}

// storeFailed inserts header into the index marked failed_valid, and
// records its hash in the failed set, per spec.md §4.3 steps 7-8.
func (b *BlockChain) storeFailed(header *wire.BlockHeader, parent *blockNode) {
	node := newBlockNode(header, parent)
	node.status.setFailedValid()
	b.index.AddNode(node)
	b.failed[node.hash] = struct{}{}
}

// isZeroHash reports whether h is the all-zero hash used to mark the
// genesis header's (nonexistent) parent.
func isZeroHash(h chainhash.Hash) bool {
	return h == (chainhash.Hash{})
}

// processOrphanChildren implements spec.md §4.3's process_orphan_children:
// every orphan directly waiting on parentHash is drained and resubmitted,
// iteratively rather than recursively so a long orphan chain can't exhaust
// the stack.
func (b *BlockChain) processOrphanChildren(parentHash chainhash.Hash) {
	// A drain already in progress queues every header it accepts itself,
	// so the call made from that header's acceptHeader returns at once.
	if b.drainingOrphans {
		return
	}
	b.drainingOrphans = true
	defer func() { b.drainingOrphans = false }()

	pending := []chainhash.Hash{parentHash}
	for len(pending) > 0 {
		hash := pending[0]
		pending = pending[1:]

		children := b.orphans.Children(hash)
		for _, child := range children {
			childHash := child.BlockHash()
			b.orphans.RemoveChild(childHash)

			header := child
			if _, err := b.acceptHeader(&header, 0); err == nil {
				pending = append(pending, childHash)
			}
		}
	}
}

// refreshBestHeader recomputes the best-known-header pointer: the
// maximum-chain_work entry that is valid_tree and not known-invalid, ties
// broken by lowest hash value, per spec.md §4.3 step 1 (activate_best_chain
// candidate selection) which this also feeds.
func (b *BlockChain) refreshBestHeader() {
	b.bestHeader = b.findBestCandidate()
}

func (b *BlockChain) findBestCandidate() *blockNode {
	var best *blockNode
	for _, n := range b.index.Snapshot() {
		if !n.status.KnownValid() || n.status.KnownInvalid() {
			continue
		}
		if best == nil {
			best = n
			continue
		}
		switch cmp := n.workSum.Cmp(best.workSum); {
		case cmp > 0:
			best = n
		case cmp == 0 && bytes.Compare(n.hash[:], best.hash[:]) < 0:
			best = n
		}
	}
	return best
}

// activateBestChain implements spec.md §4.3's activate_best_chain.
func (b *BlockChain) activateBestChain() {
	candidate := b.findBestCandidate()
	if candidate == nil {
		return
	}

	tip := b.view.tipUnlocked()
	if tip == candidate {
		return
	}

	if tip != nil {
		fork := b.view.findFork(candidate)
		if fork == nil {
			log.Warnf("no common ancestor between active tip %s and candidate %s; refusing to reorganize",
				tip.hash, candidate.hash)
			return
		}

		reorgDepth := tip.height - fork.height
		if b.suspiciousReorgDepth > 0 && reorgDepth > b.suspiciousReorgDepth {
			log.Errorf("refusing reorg of depth %d (exceeds suspicious-reorg threshold %d) from %s to %s",
				reorgDepth, b.suspiciousReorgDepth, tip.hash, candidate.hash)
			return
		}

		// Disconnecting and connecting headers-only entries is pure
		// bookkeeping: every node walked here is already valid_tree, so
		// unlike a full-block chain there is no connect step that can
		// fail partway through and require rolling back the
		// disconnected side.
		for n := tip; n != nil && n != fork; n = n.parent {
			b.notify(&Notification{Type: NTBlockDisconnected, Info: nodeToInfo(n)})
		}

		var toConnect []*blockNode
		for n := candidate; n != nil && n != fork; n = n.parent {
			toConnect = append(toConnect, n)
		}
		for i := len(toConnect) - 1; i >= 0; i-- {
			b.notify(&Notification{Type: NTBlockConnected, Info: nodeToInfo(toConnect[i])})
		}
	}

	b.view.setTip(candidate)
	b.notify(&Notification{Type: NTChainTipChanged, Info: nodeToInfo(candidate)})
}

// InvalidateBlock implements spec.md §4.3's invalidate_block operator
// command.
func (b *BlockChain) InvalidateBlock(hash chainhash.Hash) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node := b.index.LookupNode(&hash)
	if node == nil {
		return ruleErrorf(ErrInvalidAncestor, "cannot invalidate unknown block %s", hash)
	}

	node.status.setFailedValid()
	b.failed[hash] = struct{}{}

	for _, n := range b.index.Snapshot() {
		if n.height > node.height && n.Ancestor(node.height) == node {
			n.status.setFailedChild()
			b.failed[n.hash] = struct{}{}
		}
	}

	b.refreshBestHeader()
	b.activateBestChain()
	return nil
}

// GetTip returns the header at the current active-chain tip.
func (b *BlockChain) GetTip() (HeaderInfo, bool) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	tip := b.view.tipUnlocked()
	if tip == nil {
		return HeaderInfo{}, false
	}
	return nodeToInfo(tip), true
}

// GetBlockByHash looks up a header by hash, whether or not it is on the
// active chain.
func (b *BlockChain) GetBlockByHash(hash chainhash.Hash) (HeaderInfo, bool) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node := b.index.LookupNode(&hash)
	if node == nil {
		return HeaderInfo{}, false
	}
	return nodeToInfo(node), true
}

// GetBlockByHeight looks up the active-chain header at the given height.
func (b *BlockChain) GetBlockByHeight(height int64) (HeaderInfo, bool) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node := b.view.at(height)
	if node == nil {
		return HeaderInfo{}, false
	}
	return nodeToInfo(node), true
}

// GetBestHeader returns the highest-chain_work known-valid header, which
// may not be on the active chain if activation halted (e.g. a suspicious
// reorg).
func (b *BlockChain) GetBestHeader() (HeaderInfo, bool) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if b.bestHeader == nil {
		return HeaderInfo{}, false
	}
	return nodeToInfo(b.bestHeader), true
}

// IsInitialSync reports whether the active tip's timestamp is old enough
// that the node should still be considered catching up to the network,
// rather than current.
func (b *BlockChain) IsInitialSync() bool {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	tip := b.view.tipUnlocked()
	if tip == nil {
		return true
	}
	return time.Since(time.Unix(tip.timestamp, 0)) > maxTipAge
}

// BuildLocator implements spec.md §3.3's locator() against the current
// active-chain tip.
func (b *BlockChain) BuildLocator() []chainhash.Hash {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	nodes := b.view.locator(nil)
	hashes := make([]chainhash.Hash, len(nodes))
	for i, n := range nodes {
		hashes[i] = n.hash
	}
	return hashes
}

// HaveOrphan reports whether hash is currently held in the orphan pool.
func (b *BlockChain) HaveOrphan(hash chainhash.Hash) bool {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()
	return b.orphans.haveOrphan(&hash)
}

// OrphanCount returns the total number of orphans currently held.
func (b *BlockChain) OrphanCount() int {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()
	return b.orphans.count()
}

// OrphanCountForPeer returns the number of orphans currently attributed to
// peerID.
func (b *BlockChain) OrphanCountForPeer(peerID int32) int {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()
	return b.orphans.countForPeer(peerID)
}

// ExpireOrphans evicts orphans older than spec.md §3.4's 600-second limit.
// The sync manager calls this periodically.
func (b *BlockChain) ExpireOrphans() int {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()
	return b.orphans.ExpireOlderThan(time.Now().Add(-orphanExpiry))
}

// BelowMinimumChainWork reports whether the active tip's chain_work is below
// the configured minimum_chain_work threshold. It always returns false when
// no threshold was configured via WithMinimumChainWork.
func (b *BlockChain) BelowMinimumChainWork() bool {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if b.minimumChainWork == nil {
		return false
	}
	tip := b.view.tipUnlocked()
	if tip == nil {
		return true
	}
	return tip.workSum.Cmp(b.minimumChainWork) < 0
}
