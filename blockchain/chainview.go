// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "sync"

// chainView provides a flat, height-indexed view of the block nodes on the
// currently active chain. Position i holds the ancestor at height i of the
// tip, so ancestor lookups by height are O(1) instead of O(height) walks of
// parent pointers.
type chainView struct {
	mtx   sync.RWMutex
	nodes []*blockNode
}

// newChainView returns a new chain view rooted at the given tip, or an
// empty view when tip is nil.
func newChainView(tip *blockNode) *chainView {
	c := &chainView{}
	c.setTip(tip)
	return c
}

// genesis returns the genesis block for the chain view, or nil if the view
// is empty.
func (c *chainView) genesis() *blockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[0]
}

// tip returns the current tip block for the chain view, or nil if the view
// is empty.
func (c *chainView) tip() *blockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.tipUnlocked()
}

func (c *chainView) tipUnlocked() *blockNode {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[len(c.nodes)-1]
}

// setTip sets the chain view to use the provided block node as the current
// tip and rebuilds the height-indexed ancestor slice accordingly. It does
// not perform any validation; callers must ensure the candidate's ancestry
// is sound. BlockChain.activateBestChain and Load pass their candidate
// straight through without walking its ancestry first.
func (c *chainView) setTip(node *blockNode) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if node == nil {
		c.nodes = nil
		return
	}

	needed := node.height + 1
	if int64(cap(c.nodes)) < needed {
		nodes := make([]*blockNode, needed)
		copy(nodes, c.nodes)
		c.nodes = nodes
	} else {
		c.nodes = c.nodes[:needed]
	}

	for n := node; n != nil; n = n.parent {
		c.nodes[n.height] = n
	}
}

// height returns the height of the tip, or -1 if the view is empty.
func (c *chainView) height() int64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return int64(len(c.nodes)) - 1
}

// at returns the ancestor block node at the provided height, or nil if no
// such height exists on this view.
func (c *chainView) at(height int64) *blockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if height < 0 || height >= int64(len(c.nodes)) {
		return nil
	}
	return c.nodes[height]
}

// contains returns whether or not the chain view contains the passed block
// node, i.e. whether it is an ancestor of (or equal to) the tip.
func (c *chainView) contains(node *blockNode) bool {
	return c.at(node.height) == node
}

// findFork returns the final common block between the chain view and the
// passed node, walking back from node until it reaches a height contained
// in the view, then confirming identity at that height. It returns nil if
// the two have no common ancestor (e.g. a different genesis), rather than
// asserting, since that is reachable for headers delivered by a malicious
// or simply buggy peer advertising an unrelated chain.
func (c *chainView) findFork(node *blockNode) *blockNode {
	if node == nil {
		return nil
	}

	c.mtx.RLock()
	tipHeight := int64(len(c.nodes)) - 1
	c.mtx.RUnlock()

	// Walk node back to at most the view's tip height so both pointers
	// advance at the same rate from then on.
	if node.height > tipHeight {
		node = node.Ancestor(tipHeight)
	}

	for node != nil && !c.contains(node) {
		node = node.parent
	}
	return node
}

// locator returns a block locator: hashes starting at the tip, stepping
// back by one for the first ten entries, then doubling the step until
// genesis, which is always the final entry. The total length is bounded by
// MaxBlockLocatorHashes (101).
func (c *chainView) locator(node *blockNode) []*blockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	if node == nil {
		node = c.tipUnlocked()
	}
	if node == nil {
		return nil
	}

	// If node isn't on this view, walk back to the most recent ancestor
	// that is, so the locator is always expressed in terms of the active
	// chain the peer being asked can actually resolve against.
	if int64(len(c.nodes)) <= node.height || c.nodes[node.height] != node {
		node = node.Ancestor(min64(node.height, int64(len(c.nodes))-1))
		for node != nil && (node.height >= int64(len(c.nodes)) || c.nodes[node.height] != node) {
			node = node.parent
		}
	}

	var locator []*blockNode
	step := int64(1)
	for node != nil {
		locator = append(locator, node)
		if node.height == 0 {
			break
		}

		height := node.height - step
		if height < 0 {
			height = 0
		}

		node = node.Ancestor(height)

		if len(locator) > 10 {
			step *= 2
		}
	}
	return locator
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
