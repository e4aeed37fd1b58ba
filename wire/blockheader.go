// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MinerAddrSize is the number of bytes in the opaque miner reward
// identifier carried by a block header.
const MinerAddrSize = 20

// RandomXHashSize is the number of bytes in the stored RandomX PoW
// commitment carried by a block header.
const RandomXHashSize = 32

// BlockHeaderLen is the exact, fixed on-wire length of a serialized block
// header: 4 + 32 + 20 + 4 + 4 + 4 + 32.
const BlockHeaderLen = 100

// BlockHeader defines information about a block and is used in the block
// (MsgBlock) and headers (MsgHeaders) messages.
type BlockHeader struct {
	// Version is the block version, consensus-valid only when >= 1.
	Version int32

	// PrevBlock is the hash of the parent header. All zero only for
	// genesis.
	PrevBlock chainhash.Hash

	// MinerAddress is an opaque miner reward identifier, unvalidated by
	// consensus.
	MinerAddress [MinerAddrSize]byte

	// Time is the block timestamp, unsigned Unix seconds.
	Time uint32

	// Bits is the compact-encoded difficulty target this header was mined
	// against.
	Bits uint32

	// Nonce is the PoW search nonce.
	Nonce uint32

	// RandomXHash is the stored RandomX output used as the PoW commitment.
	RandomXHash [RandomXHashSize]byte
}

// Timestamp returns Time as a time.Time in UTC, a convenience for callers
// that work with the standard library's time package.
func (h *BlockHeader) Timestamp() time.Time {
	return time.Unix(int64(h.Time), 0).UTC()
}

// BlockHash computes the block identifier hash for the header, which is
// double_sha256(serialize(header)) interpreted internally in little-endian
// order. Use String() on the result for the conventional byte-reversed
// display form.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	// writeBlockHeader never fails writing into a bytes.Buffer.
	_ = writeBlockHeader(buf, h)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize encodes the header to w in the canonical 100-byte wire format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Bytes returns the canonical 100-byte serialization of the header.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	_ = writeBlockHeader(buf, h)
	return buf.Bytes()
}

// Deserialize decodes a header from r, which must supply exactly
// BlockHeaderLen bytes of header data; use DeserializeHeaderBytes for
// strict whole-buffer length checking.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// DeserializeHeaderBytes decodes a header from buf, rejecting any buffer
// whose length is not exactly BlockHeaderLen per spec.
func DeserializeHeaderBytes(buf []byte) (BlockHeader, error) {
	var h BlockHeader
	if len(buf) != BlockHeaderLen {
		str := fmt.Sprintf("block header must be exactly %d bytes [got %d]",
			BlockHeaderLen, len(buf))
		return h, messageError("DeserializeHeaderBytes", str)
	}
	if err := readBlockHeader(bytes.NewReader(buf), &h); err != nil {
		return h, err
	}
	return h, nil
}

// writeBlockHeader serializes a block header to w in field order.
func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	if err := writeElement(w, h.Version); err != nil {
		return err
	}
	if err := writeElement(w, h.PrevBlock); err != nil {
		return err
	}
	if err := writeElement(w, h.MinerAddress); err != nil {
		return err
	}
	if err := writeElement(w, h.Time); err != nil {
		return err
	}
	if err := writeElement(w, h.Bits); err != nil {
		return err
	}
	if err := writeElement(w, h.Nonce); err != nil {
		return err
	}
	return writeElement(w, h.RandomXHash)
}

// readBlockHeader deserializes a block header from r in field order.
func readBlockHeader(r io.Reader, h *BlockHeader) error {
	if err := readElement(r, &h.Version); err != nil {
		return err
	}
	if err := readElement(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readElement(r, &h.MinerAddress); err != nil {
		return err
	}
	if err := readElement(r, &h.Time); err != nil {
		return err
	}
	if err := readElement(r, &h.Bits); err != nil {
		return err
	}
	if err := readElement(r, &h.Nonce); err != nil {
		return err
	}
	return readElement(r, &h.RandomXHash)
}
