// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc implements the narrow, typed websocket query surface spec.md
// §6.4 describes: get_tip, get_block_by_hash, get_block_by_height,
// get_best_header, is_initial_sync, build_locator, and an authenticated
// invalidate_block operator command. It is not a general JSON-RPC
// dispatcher.
package rpc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/gorilla/websocket"

	"github.com/coinbasechain/node/blockchain"
)

// Chain is the chainstate surface the RPC server queries. blockchain.BlockChain
// satisfies it directly.
type Chain interface {
	GetTip() (blockchain.HeaderInfo, bool)
	GetBlockByHash(hash chainhash.Hash) (blockchain.HeaderInfo, bool)
	GetBlockByHeight(height int64) (blockchain.HeaderInfo, bool)
	GetBestHeader() (blockchain.HeaderInfo, bool)
	IsInitialSync() bool
	BuildLocator() []chainhash.Hash
	InvalidateBlock(hash chainhash.Hash) error
}

// request is the envelope every inbound websocket message must match.
type request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the envelope every outbound websocket message matches.
type response struct {
	ID     uint64      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Server exposes Chain over a websocket connection. authToken is the bearer
// token the invalidate_block command must carry in its params; queries are
// unauthenticated.
type Server struct {
	chain         Chain
	authToken     string
	upgrader      websocket.Upgrader
	writeDeadline time.Duration
}

// New constructs a Server. authToken gates invalidate_block; an empty
// token disables that command entirely rather than accepting it open.
func New(chain Chain, authToken string) *Server {
	return &Server{
		chain:         chain,
		authToken:     authToken,
		writeDeadline: 10 * time.Second,
	}
}

// ServeHTTP upgrades the connection and serves requests until the client
// disconnects or sends a malformed frame.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("rpc: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("rpc: read error: %v", err)
			}
			return
		}

		resp := s.dispatch(req)
		conn.SetWriteDeadline(time.Now().Add(s.writeDeadline))
		if err := conn.WriteJSON(resp); err != nil {
			log.Debugf("rpc: write error: %v", err)
			return
		}
	}
}

func (s *Server) dispatch(req request) response {
	switch req.Method {
	case "get_tip":
		info, ok := s.chain.GetTip()
		return s.result(req.ID, info, ok)
	case "get_best_header":
		info, ok := s.chain.GetBestHeader()
		return s.result(req.ID, info, ok)
	case "is_initial_sync":
		return response{ID: req.ID, Result: s.chain.IsInitialSync()}
	case "build_locator":
		return response{ID: req.ID, Result: s.chain.BuildLocator()}

	case "get_block_by_hash":
		var params struct {
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, "malformed params")
		}
		hash, err := chainhash.NewHashFromStr(params.Hash)
		if err != nil {
			return errResponse(req.ID, "malformed hash")
		}
		info, ok := s.chain.GetBlockByHash(*hash)
		return s.result(req.ID, info, ok)

	case "get_block_by_height":
		var params struct {
			Height int64 `json:"height"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, "malformed params")
		}
		info, ok := s.chain.GetBlockByHeight(params.Height)
		return s.result(req.ID, info, ok)

	case "invalidate_block":
		if s.authToken == "" {
			return errResponse(req.ID, "invalidate_block is disabled")
		}
		var params struct {
			Hash  string `json:"hash"`
			Token string `json:"token"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, "malformed params")
		}
		if params.Token != s.authToken {
			return errResponse(req.ID, "unauthorized")
		}
		hash, err := chainhash.NewHashFromStr(params.Hash)
		if err != nil {
			return errResponse(req.ID, "malformed hash")
		}
		if err := s.chain.InvalidateBlock(*hash); err != nil {
			return errResponse(req.ID, err.Error())
		}
		return response{ID: req.ID, Result: "ok"}

	default:
		return errResponse(req.ID, "unknown method: "+req.Method)
	}
}

func (s *Server) result(id uint64, info blockchain.HeaderInfo, ok bool) response {
	if !ok {
		return errResponse(id, "not found")
	}
	return response{ID: id, Result: info}
}

func errResponse(id uint64, msg string) response {
	return response{ID: id, Error: msg}
}
