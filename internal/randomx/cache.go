// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package randomx

import (
	"sync"

	"github.com/decred/dcrd/lru"
)

// DefaultCacheCapacity is the default number of epoch-keyed VMs retained
// simultaneously, per spec.md §4.4.
const DefaultCacheCapacity = 2

// vmCache is a bounded LRU of epoch-keyed VMs. A short-held mutex guards
// cache mutation only (lookups that miss and then construct a VM); the VM's
// own hash computation happens outside this lock entirely, per spec.md §4.4
// and the concurrency model in §5.
type vmCache struct {
	domainTag     string
	epochDuration int64

	mtx   sync.Mutex
	cache *lru.Map[int64, *VM]
}

// newVMCache returns a new cache keyed to the given domain tag and epoch
// duration (seconds), holding up to capacity VMs at once.
func newVMCache(domainTag string, epochDuration int64, capacity uint32) *vmCache {
	return &vmCache{
		domainTag:     domainTag,
		epochDuration: epochDuration,
		cache:         lru.NewMap[int64, *VM](capacity),
	}
}

// vmForTime returns the VM for the epoch containing headerTime, constructing
// and caching it if not already present. The global cache mutex is held
// only long enough to check/insert; the (possibly newly constructed) VM is
// returned for the caller to use lock-free.
func (c *vmCache) vmForTime(headerTime int64) *VM {
	epoch := Epoch(headerTime, c.epochDuration)

	c.mtx.Lock()
	if vm, ok := c.cache.Get(epoch); ok {
		c.mtx.Unlock()
		return vm
	}
	c.mtx.Unlock()

	// Construct outside the lock: VM construction in this substitute core
	// is cheap, but a reference RandomX VM's scratchpad allocation is not,
	// and spec.md §4.4/§9 requires the global mutex be released before the
	// (potentially expensive) construction and hash work.
	seed := Seed(c.domainTag, epoch)
	vm := newVM(epoch, seed)

	c.mtx.Lock()
	if existing, ok := c.cache.Get(epoch); ok {
		c.mtx.Unlock()
		return existing
	}
	c.cache.Add(epoch, vm)
	c.mtx.Unlock()

	return vm
}
