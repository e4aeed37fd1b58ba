// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/coinbasechain/node/wire"
)

// protocolVersion is the version this node speaks and advertises in its
// version message.
const protocolVersion = 1

// handshakeTimeout bounds how long a newly connected peer has to complete
// version/verack before being dropped, per spec.md §5's 60-second
// handshake deadline.
const handshakeTimeout = 60 * time.Second

// idleTimeout is the inactivity deadline spec.md §5 assigns connections
// once handshaken.
const idleTimeout = 20 * time.Minute

// pingInterval is how often an established peer is pinged to keep the
// inactivity deadline from tripping on an otherwise-healthy, quiet link.
const pingInterval = 2 * time.Minute

// handlers is the narrow set of callbacks a Peer drives back into the
// server: header batches and disconnect notification. Splitting this out
// keeps Peer testable without a full Server.
type handlers struct {
	onHeaders    func(p *Peer, msg *wire.MsgHeaders)
	onDisconnect func(p *Peer, reason string)
}

// Peer wraps a single connection, performing the version/verack handshake
// and dispatching inbound messages. It implements netsync.Peer.
type Peer struct {
	id      int32
	addr    string
	conn    net.Conn
	net     wire.CurrencyNet
	inbound bool

	h handlers

	sendQueue chan wire.Message
	quit      chan struct{}
	closeOnce sync.Once
}

func newPeer(id int32, conn net.Conn, net wire.CurrencyNet, inbound bool, h handlers) *Peer {
	return &Peer{
		id:        id,
		addr:      conn.RemoteAddr().String(),
		conn:      conn,
		net:       net,
		inbound:   inbound,
		h:         h,
		sendQueue: make(chan wire.Message, 64),
		quit:      make(chan struct{}),
	}
}

// ID returns the peer's process-local identifier.
func (p *Peer) ID() int32 { return p.id }

// Addr returns the peer's remote network address.
func (p *Peer) Addr() string { return p.addr }

// SendGetHeaders queues a getheaders request.
func (p *Peer) SendGetHeaders(locator []chainhash.Hash, stopHash chainhash.Hash) error {
	msg := &wire.MsgGetHeaders{ProtocolVersion: protocolVersion, HashStop: stopHash}
	for i := range locator {
		h := locator[i]
		if err := msg.AddBlockLocatorHash(&h); err != nil {
			return err
		}
	}
	return p.queue(msg)
}

// Disconnect tears down the connection. Safe to call more than once and
// from any goroutine.
func (p *Peer) Disconnect(reason string) {
	p.closeOnce.Do(func() {
		log.Infof("peer %d (%s): disconnecting: %s", p.id, p.addr, reason)
		close(p.quit)
		p.conn.Close()
		if p.h.onDisconnect != nil {
			p.h.onDisconnect(p, reason)
		}
	})
}

func (p *Peer) queue(msg wire.Message) error {
	select {
	case p.sendQueue <- msg:
		return nil
	case <-p.quit:
		return fmt.Errorf("peer %d: send queue closed", p.id)
	}
}

// run performs the handshake then services the connection until it closes.
// startHeight is advertised in this node's version message.
func (p *Peer) run(startHeight int32) error {
	if err := p.handshake(startHeight); err != nil {
		p.Disconnect(fmt.Sprintf("handshake failed: %v", err))
		return err
	}

	go p.writeLoop()
	p.readLoop()
	return nil
}

func (p *Peer) handshake(startHeight int32) error {
	p.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer p.conn.SetDeadline(time.Time{})

	local := &wire.NetAddress{}
	remote := &wire.NetAddress{}
	version := &wire.MsgVersion{
		ProtocolVersion: protocolVersion,
		Timestamp:       time.Now().Unix(),
		AddrRecv:        *remote,
		AddrFrom:        *local,
		Nonce:           uint64(p.id),
		UserAgent:       "/coinbasechain:0.1.0/",
		StartHeight:     startHeight,
	}
	if _, err := wire.WriteMessageN(p.conn, version, protocolVersion, p.net); err != nil {
		return err
	}

	gotVersion, gotVerAck := false, false
	for !gotVersion || !gotVerAck {
		_, msg, _, err := wire.ReadMessageN(p.conn, protocolVersion, p.net)
		if err != nil {
			return err
		}
		switch msg.(type) {
		case *wire.MsgVersion:
			if gotVersion {
				return fmt.Errorf("duplicate version message")
			}
			gotVersion = true
			if _, err := wire.WriteMessageN(p.conn, &wire.MsgVerAck{}, protocolVersion, p.net); err != nil {
				return err
			}
		case *wire.MsgVerAck:
			gotVerAck = true
		default:
			return fmt.Errorf("unexpected message %T before handshake completed", msg)
		}
	}
	return nil
}

func (p *Peer) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-p.sendQueue:
			p.conn.SetWriteDeadline(time.Now().Add(idleTimeout))
			if _, err := wire.WriteMessageN(p.conn, msg, protocolVersion, p.net); err != nil {
				p.Disconnect(fmt.Sprintf("write error: %v", err))
				return
			}
		case <-ticker.C:
			ping := &wire.MsgPing{Nonce: uint64(time.Now().UnixNano())}
			if _, err := wire.WriteMessageN(p.conn, ping, protocolVersion, p.net); err != nil {
				p.Disconnect(fmt.Sprintf("write error: %v", err))
				return
			}
		case <-p.quit:
			return
		}
	}
}

func (p *Peer) readLoop() {
	for {
		p.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		_, msg, _, err := wire.ReadMessageN(p.conn, protocolVersion, p.net)
		if err != nil {
			p.Disconnect(fmt.Sprintf("read error: %v", err))
			return
		}

		switch m := msg.(type) {
		case *wire.MsgHeaders:
			if p.h.onHeaders != nil {
				p.h.onHeaders(p, m)
			}
		case *wire.MsgPing:
			_ = p.queue(&wire.MsgPong{Nonce: m.Nonce})
		case *wire.MsgPong:
			// no-op; receipt alone resets the read deadline above.
		case *wire.MsgGetHeaders:
			// Headers-serving is out of scope for this node's initial
			// sync role; acknowledge by doing nothing rather than
			// misbehaving-penalizing a peer for asking.
		default:
			log.Debugf("peer %d (%s): ignoring unhandled message %T", p.id, p.addr, msg)
		}

		select {
		case <-p.quit:
			return
		default:
		}
	}
}
