// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package server is the thin connmgr/addrmgr wiring layer that drives
// internal/netsync: it accepts inbound connections, dials outbound ones,
// performs the wire handshake, and feeds decoded headers batches into the
// sync manager. Everything consensus-shaped lives in blockchain; this
// package only owns connection lifecycle.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/addrmgr/v2"
	"github.com/decred/dcrd/connmgr/v3"

	"github.com/coinbasechain/node/chaincfg"
	"github.com/coinbasechain/node/internal/netsync"
	"github.com/coinbasechain/node/internal/peerstore"
	"github.com/coinbasechain/node/wire"
)

// Config bundles what Server needs to start accepting and dialing peers.
type Config struct {
	Params      *chaincfg.Params
	Chain       netsync.Chain
	Listeners   []net.Listener
	Discouraged *peerstore.Store

	// TargetOutbound is how many outbound connections connmgr maintains.
	TargetOutbound uint32
	// StartHeight is advertised in this node's version message; for a
	// headers-only node this is the active chain height, not a block count.
	StartHeight func() int32
}

// Server owns the peer set and drives header sync over it.
type Server struct {
	cfg     Config
	syncMgr *netsync.Manager

	connManager *connmgr.ConnManager
	addrManager *addrmgr.AddrManager

	nextPeerID int32 // atomic

	mtx   sync.Mutex
	peers map[int32]*Peer

	quit chan struct{}
}

// New constructs a Server; dataDir holds the address-manager's peers file.
func New(cfg Config, dataDir string) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		peers:  make(map[int32]*Peer),
		quit:   make(chan struct{}),
	}
	s.syncMgr = netsync.New(cfg.Chain)

	s.addrManager = addrmgr.New(dataDir, net.LookupIP)

	connCfg := &connmgr.Config{
		Listeners:       cfg.Listeners,
		OnAccept:        s.onAccept,
		TargetOutbound:  cfg.TargetOutbound,
		RetryDuration:   10 * time.Second,
		OnConnection:    s.onConnection,
		OnDisconnection: s.onDisconnection,
		GetNewAddress:   s.getNewAddress,
		Dial:            net.Dial,
	}
	cm, err := connmgr.New(connCfg)
	if err != nil {
		return nil, fmt.Errorf("server: constructing connection manager: %w", err)
	}
	s.connManager = cm

	return s, nil
}

// Run starts the address manager and connection manager and blocks until
// ctx is canceled or Stop is called.
func (s *Server) Run(ctx context.Context) {
	s.addrManager.Start()
	go s.syncStallLoop()
	s.connManager.Run(ctx)
}

// syncStallLoop periodically checks for a stalled sync peer per spec.md
// §4.7, clearing the slot so the next StartSync call picks a new peer.
func (s *Server) syncStallLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.syncMgr.CheckSyncStall()
		case <-s.quit:
			return
		}
	}
}

// Stop cooperatively shuts down every connection and the connection and
// address managers, per spec.md §5's shutdown contract.
func (s *Server) Stop() {
	close(s.quit)

	s.mtx.Lock()
	for _, p := range s.peers {
		p.Disconnect("shutdown")
	}
	s.mtx.Unlock()

	s.connManager.Stop()
	s.addrManager.Stop()
}

func (s *Server) isDiscouraged(addr string) bool {
	if s.cfg.Discouraged == nil {
		return false
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	discouraged, err := s.cfg.Discouraged.IsDiscouraged(host)
	if err != nil {
		log.Warnf("server: checking discouragement for %s: %v", host, err)
		return false
	}
	return discouraged
}

func (s *Server) discourage(addr string) {
	if s.cfg.Discouraged == nil {
		return
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if err := s.cfg.Discouraged.Discourage(host, 24*time.Hour); err != nil {
		log.Warnf("server: discouraging %s: %v", host, err)
	}
}

func (s *Server) onAccept(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	if s.isDiscouraged(addr) {
		log.Debugf("server: rejecting inbound from discouraged address %s", addr)
		conn.Close()
		return
	}
	s.addPeer(conn, true)
}

func (s *Server) onConnection(_ *connmgr.ConnReq, conn net.Conn) {
	s.addPeer(conn, false)
}

func (s *Server) onDisconnection(_ *connmgr.ConnReq) {}

func (s *Server) addPeer(conn net.Conn, inbound bool) {
	id := atomic.AddInt32(&s.nextPeerID, 1)

	p := newPeer(id, conn, s.cfg.Params.Net, inbound, handlers{
		onHeaders:    s.handleHeaders,
		onDisconnect: s.removePeer,
	})

	s.mtx.Lock()
	s.peers[id] = p
	s.mtx.Unlock()

	s.syncMgr.PeerConnected(id)

	startHeight := int32(0)
	if s.cfg.StartHeight != nil {
		startHeight = s.cfg.StartHeight()
	}

	go func() {
		if err := p.run(startHeight); err != nil {
			log.Debugf("peer %d (%s): run exited: %v", id, p.Addr(), err)
		}
	}()

	go func() {
		// A freshly connected peer is a reasonable sync-peer candidate;
		// StartSync is a no-op if another peer already holds the slot.
		if err := s.syncMgr.StartSync(p); err != nil {
			log.Debugf("peer %d (%s): starting sync: %v", id, p.Addr(), err)
		}
	}()
}

func (s *Server) removePeer(p *Peer, reason string) {
	s.mtx.Lock()
	delete(s.peers, p.id)
	s.mtx.Unlock()
	s.syncMgr.PeerDisconnected(p.id)

	if netsync.IsMisbehaviorReason(reason) {
		s.discourage(p.Addr())
	}
}

func (s *Server) handleHeaders(p *Peer, msg *wire.MsgHeaders) {
	if err := s.syncMgr.HandleHeadersMessage(p, msg); err != nil {
		log.Warnf("peer %d (%s): processing headers: %v", p.id, p.Addr(), err)
	}
}

func (s *Server) getNewAddress() (net.Addr, error) {
	ka := s.addrManager.GetAddress()
	if ka == nil {
		return nil, fmt.Errorf("server: no addresses available")
	}
	addr := ka.NetAddress()
	return &net.TCPAddr{IP: addr.IP, Port: int(addr.Port)}, nil
}
