// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/coinbasechain/node/blockchain"
	"github.com/coinbasechain/node/internal/netsync"
	"github.com/coinbasechain/node/internal/randomx"
	"github.com/coinbasechain/node/internal/rpc"
	"github.com/coinbasechain/node/internal/server"
)

// logRotator writes logged output to roll-over log files.
var logRotator *rotator.Rotator

const logFileMaxSize = 10 * 1024 // 10 MB, in KiB as rotator.New takes it

// initLogRotator initializes the logging rotator to write logs to the file
// specified, rolling over the log file as it reaches a set size, matching
// the teacher's logging convention.
func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, logFileMaxSize, false, 10)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var backendLog = slog.NewBackend(logWriter{})

var (
	log       = backendLog.Logger("MAIN")
	chainLog  = backendLog.Logger("CHNS")
	syncLog   = backendLog.Logger("SYNC")
	rpcLog    = backendLog.Logger("RPCS")
	serverLog = backendLog.Logger("SRVR")
	powLog    = backendLog.Logger("POWX")
)

// subsystemLoggers maps each subsystem identifier to its logger so
// setLogLevels can look them up by name.
var subsystemLoggers = map[string]slog.Logger{
	"MAIN": log,
	"CHNS": chainLog,
	"SYNC": syncLog,
	"RPCS": rpcLog,
	"SRVR": serverLog,
	"POWX": powLog,
}

// useLoggers wires every subsystem logger into its package, mirroring the
// teacher's single wiring point for all of log.go's UseLogger calls.
func useLoggers() {
	blockchain.UseLogger(chainLog)
	netsync.UseLogger(syncLog)
	rpc.UseLogger(rpcLog)
	server.UseLogger(serverLog)
	randomx.UseLogger(powLog)
}

// setLogLevels sets the logging level for every registered subsystem.
// Invalid levels default to info.
func setLogLevels(levelStr string) {
	level, ok := slog.LevelFromString(levelStr)
	if !ok {
		level = slog.LevelInfo
	}
	for _, l := range subsystemLoggers {
		l.SetLevel(level)
	}
}
