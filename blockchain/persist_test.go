// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"errors"
	"testing"
)

func TestPersistSaveLoadRoundTrip(t *testing.T) {
	tc := newTestChain(t)
	genesis := tc.params.GenesisBlock
	chain := tc.buildChain(&genesis, 4)
	tc.acceptAll(1, chain)

	var buf bytes.Buffer
	tc.chain.chainLock.Lock()
	err := tc.chain.save(&buf)
	tc.chain.chainLock.Unlock()
	if err != nil {
		t.Fatalf("save() = %v, want nil", err)
	}

	loaded, err := Load(bytes.NewReader(buf.Bytes()), tc.params, tc.engine)
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	wantTip, _ := tc.chain.GetTip()
	gotTip, ok := loaded.GetTip()
	if !ok {
		t.Fatal("loaded chain has no tip")
	}
	if gotTip.Hash != wantTip.Hash || gotTip.Height != wantTip.Height {
		t.Fatalf("loaded tip = %+v, want %+v", gotTip, wantTip)
	}

	if loaded.index.NodeCount() != tc.chain.index.NodeCount() {
		t.Fatalf("loaded node count = %d, want %d", loaded.index.NodeCount(), tc.chain.index.NodeCount())
	}

	for _, h := range chain {
		hash := h.BlockHash()
		info, ok := loaded.GetBlockByHash(hash)
		if !ok {
			t.Fatalf("loaded chain missing header %s", hash)
		}
		if info.Header.Bits != h.Bits || info.Header.Time != h.Time {
			t.Fatalf("loaded header %s mismatches original: %+v vs %+v", hash, info.Header, *h)
		}
	}
}

func TestPersistSaveLoadPreservesInvalidStatus(t *testing.T) {
	tc := newTestChain(t)
	genesis := tc.params.GenesisBlock
	chain := tc.buildChain(&genesis, 2)
	tc.acceptAll(1, chain)

	tipHash := chain[1].BlockHash()
	if err := tc.chain.InvalidateBlock(tipHash); err != nil {
		t.Fatalf("InvalidateBlock() = %v, want nil", err)
	}

	var buf bytes.Buffer
	tc.chain.chainLock.Lock()
	err := tc.chain.save(&buf)
	tc.chain.chainLock.Unlock()
	if err != nil {
		t.Fatalf("save() = %v, want nil", err)
	}

	loaded, err := Load(bytes.NewReader(buf.Bytes()), tc.params, tc.engine)
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if _, failed := loaded.failed[tipHash]; !failed {
		t.Fatal("loaded chain should remember the invalidated header as failed")
	}

	gotTip, ok := loaded.GetTip()
	if !ok {
		t.Fatal("loaded chain has no tip")
	}
	if gotTip.Hash != chain[0].BlockHash() {
		t.Fatalf("loaded tip = %s, want the chain's genesis-adjacent valid header %s", gotTip.Hash, chain[0].BlockHash())
	}
}

func TestPersistLoadRejectsBadMagic(t *testing.T) {
	tc := newTestChain(t)
	buf := bytes.NewBufferString("XXXX")
	_, err := Load(buf, tc.params, tc.engine)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("Load() with bad magic = %v, want ErrFormatMismatch", err)
	}
}

func TestPersistLoadRejectsDanglingParent(t *testing.T) {
	tc := newTestChain(t)
	genesis := tc.params.GenesisBlock
	genesisNode := newBlockNode(&genesis, nil)
	h1 := tc.buildChild(&genesis)

	// node's parent is genesisNode, so its serialized header carries
	// genesis's hash as PrevBlock, but only node itself is written to the
	// stream: the loader's fixup pass must fail to resolve that reference.
	node := newBlockNode(h1, genesisNode)

	var buf bytes.Buffer
	buf.WriteString(headerStoreMagic)
	writeUint32(&buf, headerStoreVersion)
	writeUint64(&buf, 1)
	h1Hash := h1.BlockHash()
	buf.Write(h1Hash[:])

	if err := writeHeaderRecord(&buf, node); err != nil {
		t.Fatalf("writeHeaderRecord() = %v, want nil", err)
	}

	_, err := Load(&buf, tc.params, tc.engine)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("Load() with a dangling parent reference = %v, want ErrFormatMismatch", err)
	}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}
