// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// Peer is the narrow surface the sync manager needs from a connected peer.
// The actual connection lifecycle, handshake, and message framing live in
// internal/server; this package only needs to send requests and ask for a
// disconnect.
type Peer interface {
	// ID returns the peer's process-local identifier.
	ID() int32

	// Addr returns the peer's network address, used for logging and
	// discouragement.
	Addr() string

	// SendGetHeaders requests headers starting after locator, stopping at
	// stopHash (the zero hash for "as many as you have").
	SendGetHeaders(locator []chainhash.Hash, stopHash chainhash.Hash) error

	// Disconnect tears down the connection, recording reason for logging.
	Disconnect(reason string)
}
