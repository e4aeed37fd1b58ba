// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"

	"github.com/coinbasechain/node/chaincfg"
	"github.com/coinbasechain/node/internal/randomx"
	"github.com/coinbasechain/node/wire"
)

// Header store format constants, per spec.md §4.8 / §6.3.
const (
	headerStoreMagic   = "HEAD"
	headerStoreVersion = 1
)

// SaveToFile writes the full header tree to path atomically: the new
// content is written to a temp file in the same directory, fsynced, then
// renamed over path, so a crash mid-write never leaves a truncated store.
func (b *BlockChain) SaveToFile(path string) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return ruleErrorf(ErrIO, "creating temp header store: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := b.save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ruleErrorf(ErrIO, "fsync header store: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return ruleErrorf(ErrIO, "closing temp header store: %v", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return ruleErrorf(ErrIO, "renaming header store into place: %v", err)
	}
	return nil
}

// save writes the header store format to w. Callers must hold chainLock.
func (b *BlockChain) save(w io.Writer) error {
	nodes := b.index.Snapshot()

	if _, err := io.WriteString(w, headerStoreMagic); err != nil {
		return ruleErrorf(ErrIO, "writing magic: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(headerStoreVersion)); err != nil {
		return ruleErrorf(ErrIO, "writing version: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(nodes))); err != nil {
		return ruleErrorf(ErrIO, "writing count: %v", err)
	}

	var tipHash chainhash.Hash
	if tip := b.view.tipUnlocked(); tip != nil {
		tipHash = tip.hash
	}
	if _, err := w.Write(tipHash[:]); err != nil {
		return ruleErrorf(ErrIO, "writing tip hash: %v", err)
	}

	for _, n := range nodes {
		if err := writeHeaderRecord(w, n); err != nil {
			return err
		}
	}
	return nil
}

func writeHeaderRecord(w io.Writer, n *blockNode) error {
	if _, err := w.Write(n.hash[:]); err != nil {
		return ruleErrorf(ErrIO, "writing record hash: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(n.height)); err != nil {
		return ruleErrorf(ErrIO, "writing record height: %v", err)
	}

	var workBytes [32]byte
	chainWorkToBytes(n.workSum, &workBytes)
	if _, err := w.Write(workBytes[:]); err != nil {
		return ruleErrorf(ErrIO, "writing record chain work: %v", err)
	}

	if err := binary.Write(w, binary.LittleEndian, n.status.Uint32()); err != nil {
		return ruleErrorf(ErrIO, "writing record status: %v", err)
	}

	hdr := n.Header()
	if err := hdr.Serialize(w); err != nil {
		return ruleErrorf(ErrIO, "writing record header bytes: %v", err)
	}
	return nil
}

// chainWorkToBytes renders work as 32 big-endian bytes, matching the
// "big-endian for portability" allowance of spec.md §6.3.
func chainWorkToBytes(work *uint256.Uint256, out *[32]byte) {
	raw := work.Bytes()
	for i := range out {
		out[i] = 0
	}
	copy(out[32-len(raw):], raw)
}

func chainWorkFromBytes(b []byte) *uint256.Uint256 {
	work := new(uint256.Uint256)
	work.SetByteSlice(b)
	return work
}

// LoadFromFile reconstructs a BlockChain from a header store previously
// written by SaveToFile, per spec.md §4.8's two-pass load: records are
// decoded first, then prev pointers are fixed up by hash lookup.
func LoadFromFile(path string, params *chaincfg.Params, engine *randomx.Engine, opts ...Option) (*BlockChain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ruleErrorf(ErrIO, "opening header store: %v", err)
	}
	defer f.Close()
	return Load(f, params, engine, opts...)
}

// pendingRecord holds a decoded node alongside the parent hash read from
// its header, before prev pointers are fixed up in the second pass.
type pendingRecord struct {
	node     *blockNode
	prevHash chainhash.Hash
}

// Load reconstructs a BlockChain from r in the header store format of
// spec.md §6.3.
func Load(r io.Reader, params *chaincfg.Params, engine *randomx.Engine, opts ...Option) (*BlockChain, error) {
	magic := make([]byte, len(headerStoreMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, ruleErrorf(ErrIO, "reading magic: %v", err)
	}
	if string(magic) != headerStoreMagic {
		return nil, ruleErrorf(ErrFormatMismatch, "unexpected magic %q", magic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, ruleErrorf(ErrIO, "reading version: %v", err)
	}
	if version != headerStoreVersion {
		return nil, ruleErrorf(ErrFormatMismatch, "unsupported header store version %d", version)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ruleErrorf(ErrIO, "reading count: %v", err)
	}

	var tipHash chainhash.Hash
	if _, err := io.ReadFull(r, tipHash[:]); err != nil {
		return nil, ruleErrorf(ErrIO, "reading tip hash: %v", err)
	}

	nodesByHash := make(map[chainhash.Hash]*blockNode, count)
	pending := make([]pendingRecord, 0, count)

	for i := uint64(0); i < count; i++ {
		pr, err := readHeaderRecord(r)
		if err != nil {
			return nil, err
		}
		nodesByHash[pr.node.hash] = pr.node
		pending = append(pending, pr)
	}

	for _, pr := range pending {
		if isZeroHash(pr.prevHash) {
			continue
		}
		parent, ok := nodesByHash[pr.prevHash]
		if !ok {
			return nil, ruleErrorf(ErrFormatMismatch,
				"header %s references unknown parent %s", pr.node.hash, pr.prevHash)
		}
		pr.node.parent = parent
	}

	b := &BlockChain{
		chainParams: params,
		powEngine:   engine,
		medianTime:  newMedianTime(),
		index:       newBlockIndex(),
		view:        newChainView(nil),
		orphans:     newOrphanPool(),
		failed:      make(map[chainhash.Hash]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	for hash, node := range nodesByHash {
		b.index.AddNode(node)
		if node.status.KnownInvalid() {
			b.failed[hash] = struct{}{}
		}
	}

	if tip, ok := nodesByHash[tipHash]; ok {
		b.view.setTip(tip)
	}
	b.refreshBestHeader()

	return b, nil
}

func readHeaderRecord(r io.Reader) (pendingRecord, error) {
	var hash chainhash.Hash
	if _, err := io.ReadFull(r, hash[:]); err != nil {
		return pendingRecord{}, ruleErrorf(ErrIO, "reading record hash: %v", err)
	}

	var height int32
	if err := binary.Read(r, binary.LittleEndian, &height); err != nil {
		return pendingRecord{}, ruleErrorf(ErrIO, "reading record height: %v", err)
	}

	var workBytes [32]byte
	if _, err := io.ReadFull(r, workBytes[:]); err != nil {
		return pendingRecord{}, ruleErrorf(ErrIO, "reading record chain work: %v", err)
	}

	var statusRaw uint32
	if err := binary.Read(r, binary.LittleEndian, &statusRaw); err != nil {
		return pendingRecord{}, ruleErrorf(ErrIO, "reading record status: %v", err)
	}

	var headerBytes [wire.BlockHeaderLen]byte
	if _, err := io.ReadFull(r, headerBytes[:]); err != nil {
		return pendingRecord{}, ruleErrorf(ErrIO, "reading record header bytes: %v", err)
	}
	hdr, err := wire.DeserializeHeaderBytes(headerBytes[:])
	if err != nil {
		return pendingRecord{}, fmt.Errorf("blockchain: decoding stored header: %w", err)
	}

	if gotHash := hdr.BlockHash(); gotHash != hash {
		return pendingRecord{}, ruleErrorf(ErrFormatMismatch,
			"stored hash %s does not match recomputed hash %s", hash, gotHash)
	}

	node := &blockNode{
		hash:         hash,
		height:       int64(height),
		workSum:      chainWorkFromBytes(workBytes[:]),
		version:      hdr.Version,
		minerAddress: hdr.MinerAddress,
		timestamp:    int64(hdr.Time),
		bits:         hdr.Bits,
		nonce:        hdr.Nonce,
		randomXHash:  hdr.RandomXHash,
		status:       statusFromUint32(statusRaw),
	}

	return pendingRecord{node: node, prevHash: hdr.PrevBlock}, nil
}
