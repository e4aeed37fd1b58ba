// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/coinbasechain/node/chaincfg"
)

const (
	defaultConfigFilename = "headersd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogFilename    = "headersd.log"
	defaultListenPort     = "8433"
	defaultRPCListen      = "127.0.0.1:8434"
	defaultMaxPeers       = 32
)

// config defines the configuration options for headersd, populated from
// the command line and an optional config file per the teacher's go-flags
// convention.
type config struct {
	HomeDir        string `short:"A" long:"appdata" description:"Directory to store data"`
	ConfigFile     string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir        string `short:"b" long:"datadir" description:"Directory to store headers and peer data"`
	LogDir         string `long:"logdir" description:"Directory to log output"`
	Listen         string `long:"listen" description:"Address to listen for incoming p2p connections"`
	RPCListen      string `long:"rpclisten" description:"Address to listen for RPC connections"`
	RPCAuthToken   string `long:"rpcauthtoken" description:"Bearer token required for invalidate_block over RPC"`
	MaxPeers       int    `long:"maxpeers" description:"Maximum number of outbound peers"`
	TestNet        bool   `long:"testnet" description:"Use the test network"`
	SimNet         bool   `long:"simnet" description:"Use the simulation test network"`
	RegNet         bool   `long:"regnet" description:"Use the regression test network"`
	MinimumWork    string `long:"minimumchainwork" description:"Hex-encoded minimum accumulated chain work below which headers batches are treated as spam"`
	SuspiciousReorg int64  `long:"suspiciousreorgdepth" description:"Reorg depth beyond which the node halts rather than reorganizing (0 disables the check)"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}"`

	params *chaincfg.Params
}

// defaultConfig returns a config with every field at its default value,
// before command-line/config-file parsing overrides them.
func defaultConfig() *config {
	homeDir := defaultHomeDir()
	return &config{
		HomeDir:    homeDir,
		ConfigFile: filepath.Join(homeDir, defaultConfigFilename),
		DataDir:    filepath.Join(homeDir, defaultDataDirname),
		LogDir:     homeDir,
		Listen:     ":" + defaultListenPort,
		RPCListen:  defaultRPCListen,
		MaxPeers:   defaultMaxPeers,
		DebugLevel: defaultLogLevel,
	}
}

// defaultHomeDir resolves the platform's conventional application data
// directory, falling back to the current directory if undiscoverable.
func defaultHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".headersd")
	}
	return "."
}

// loadConfig parses command-line flags (and, if present, a config file),
// resolves the selected network's chaincfg.Params, and validates the
// result. It follows the teacher's precedence: flags override config file
// values, which override defaults.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	preCfg := *cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := preParser.Parse(); err != nil {
		return nil, err
	}
	if preCfg.ConfigFile != "" {
		cfg.ConfigFile = preCfg.ConfigFile
	}

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		parser := flags.NewIniParser(flags.NewParser(cfg, flags.Default))
		if err := parser.ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("headersd: parsing config file %s: %w", cfg.ConfigFile, err)
		}
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	numNets := 0
	cfg.params = chaincfg.MainNetParams()
	if cfg.TestNet {
		numNets++
		cfg.params = chaincfg.TestNetParams()
	}
	if cfg.SimNet {
		numNets++
		cfg.params = chaincfg.SimNetParams()
	}
	if cfg.RegNet {
		numNets++
		cfg.params = chaincfg.RegNetParams()
	}
	if numNets > 1 {
		return nil, fmt.Errorf("headersd: testnet, simnet, and regnet are mutually exclusive")
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	return cfg, nil
}

// cleanAndExpandPath expands a leading ~ to the user's home directory and
// cleans the result, matching the teacher's path-handling convention.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
