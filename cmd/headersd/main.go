// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command headersd wires together the header-index chainstate, the
// header-sync peer-to-peer manager, and a read-mostly RPC surface into a
// single running node. It intentionally does not build or validate full
// blocks: headers are the only consensus object this node tracks.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/decred/dcrd/math/uint256"

	"github.com/coinbasechain/node/blockchain"
	"github.com/coinbasechain/node/chaincfg"
	"github.com/coinbasechain/node/internal/peerstore"
	"github.com/coinbasechain/node/internal/randomx"
	"github.com/coinbasechain/node/internal/rpc"
	"github.com/coinbasechain/node/internal/server"
)

// saveInterval is how often the active header index is flushed to disk
// while the node runs, independent of the save-on-shutdown pass.
const saveInterval = 10 * time.Minute

// headerStoreFilename is the on-disk name of the persisted header index
// within a network's data directory.
const headerStoreFilename = "headers.dat"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "headersd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return err
	}
	useLoggers()
	setLogLevels(cfg.DebugLevel)

	netDataDir := filepath.Join(cfg.DataDir, cfg.params.Name)
	if err := os.MkdirAll(netDataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	engine := randomx.NewEngine(cfg.params.RandomXSeedDomainTag, cfg.params.RandomXEpochDuration)

	opts, err := chainOptions(cfg)
	if err != nil {
		return err
	}

	headerStorePath := filepath.Join(netDataDir, headerStoreFilename)
	chain, err := openChain(headerStorePath, cfg.params, engine, opts)
	if err != nil {
		return err
	}

	discouraged, err := peerstore.Open(filepath.Join(netDataDir, "discouraged"))
	if err != nil {
		return fmt.Errorf("opening discouragement store: %w", err)
	}
	defer discouraged.Close()

	listeners, err := bindListeners(cfg.Listen)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Params:         cfg.params,
		Chain:          chain,
		Listeners:      listeners,
		Discouraged:    discouraged,
		TargetOutbound: uint32(cfg.MaxPeers),
		StartHeight: func() int32 {
			info, ok := chain.GetTip()
			if !ok {
				return 0
			}
			return int32(info.Height)
		},
	}, netDataDir)
	if err != nil {
		return fmt.Errorf("constructing server: %w", err)
	}

	rpcSrv := rpc.New(chain, cfg.RPCAuthToken)
	httpSrv := &http.Server{Addr: cfg.RPCListen, Handler: rpcSrv}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Run(ctx)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("rpc: serve failed: %v", err)
		}
	}()

	go periodicSave(ctx, chain, headerStorePath)

	waitForShutdown()

	log.Info("headersd: shutting down")
	cancel()
	srv.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	if err := chain.SaveToFile(headerStorePath); err != nil {
		log.Errorf("headersd: saving header store on shutdown: %v", err)
	}
	return nil
}

// chainOptions translates config into blockchain.Option values.
func chainOptions(cfg *config) ([]blockchain.Option, error) {
	var opts []blockchain.Option
	if cfg.SuspiciousReorg > 0 {
		opts = append(opts, blockchain.WithSuspiciousReorgDepth(cfg.SuspiciousReorg))
	}
	if cfg.MinimumWork != "" {
		raw, err := hex.DecodeString(cfg.MinimumWork)
		if err != nil {
			return nil, fmt.Errorf("parsing --minimumchainwork: %w", err)
		}
		work := new(uint256.Uint256)
		work.SetByteSlice(raw)
		opts = append(opts, blockchain.WithMinimumChainWork(work))
	}
	return opts, nil
}

// openChain loads a previously persisted header index if one exists,
// otherwise constructs a fresh chain seeded with only the network's
// genesis header.
func openChain(path string, params *chaincfg.Params, engine *randomx.Engine, opts []blockchain.Option) (*blockchain.BlockChain, error) {
	if _, err := os.Stat(path); err == nil {
		chain, err := blockchain.LoadFromFile(path, params, engine, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading header store %s: %w", path, err)
		}
		return chain, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("statting header store %s: %w", path, err)
	}

	chain, err := blockchain.New(params, engine, opts...)
	if err != nil {
		return nil, fmt.Errorf("constructing fresh chain: %w", err)
	}
	return chain, nil
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

// bindListeners opens a TCP listener on the single configured address. An
// empty address means the node dials out only and never accepts inbound
// connections.
func bindListeners(addr string) ([]net.Listener, error) {
	if addr == "" {
		return nil, nil
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return []net.Listener{l}, nil
}

// periodicSave flushes the header index to disk on saveInterval, per the
// "save on shutdown, and periodically" persistence contract, until ctx is
// canceled.
func periodicSave(ctx context.Context, chain *blockchain.BlockChain, path string) {
	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := chain.SaveToFile(path); err != nil {
				log.Errorf("headersd: periodic save: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
