// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// NotificationType identifies the kind of chainstate event a Notification
// carries.
type NotificationType int

// Notification types fired synchronously from within activateBestChain,
// per spec.md §9's design notes.
const (
	// NTBlockConnected fires for each header newly connected to the
	// active chain, in order from the fork point to the new tip.
	NTBlockConnected NotificationType = iota

	// NTBlockDisconnected fires for each header removed from the active
	// chain during a reorg, in order from the old tip down to the fork
	// point.
	NTBlockDisconnected

	// NTChainTipChanged fires once, after the tip pointer itself moves.
	NTChainTipChanged
)

// Notification is the event value delivered to subscribers.
type Notification struct {
	Type NotificationType
	Info HeaderInfo
}

// NotificationCallback receives chainstate notifications. Per spec.md §9,
// callbacks run synchronously with the chainstate lock held; they MUST do
// minimal work and MUST NOT call back into the BlockChain (including
// Unsubscribe), which would deadlock against the non-reentrant chainLock.
type NotificationCallback func(*Notification)

type notifySubscription struct {
	id uint64
	cb NotificationCallback
}

// Subscribe registers a callback to receive every future notification and
// returns an unsubscribe function, the RAII-handle pattern spec.md §9
// calls for.
func (b *BlockChain) Subscribe(cb NotificationCallback) (unsubscribe func()) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	id := b.nextSubID
	b.nextSubID++
	b.subscribers = append(b.subscribers, notifySubscription{id: id, cb: cb})

	return func() {
		b.chainLock.Lock()
		defer b.chainLock.Unlock()
		for i, s := range b.subscribers {
			if s.id == id {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// notify dispatches n to every subscriber in registration order. Callers
// must already hold chainLock.
func (b *BlockChain) notify(n *Notification) {
	for _, s := range b.subscribers {
		s.cb(n)
	}
}
