// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MsgGetHeaders implements the Message interface and represents a request
// for a peer to deliver up to MaxHeadersPerMsg headers beginning after the
// first locator hash it has, up to StopHash (or its own best tip if
// StopHash is the zero hash).
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

// AddBlockLocatorHash appends a new hash to the locator, rejecting the
// addition once MaxBlockLocatorHashes would be exceeded.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorHashes {
		str := fmt.Sprintf("too many block locator hashes for message [max %v]",
			MaxBlockLocatorHashes)
		return messageError("MsgGetHeaders.AddBlockLocatorHash", str)
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// BtcDecode decodes r using the wire protocol encoding into the receiver.
func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}

	count, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorHashes {
		str := fmt.Sprintf("too many block locator hashes for message [count %v, max %v]",
			count, MaxBlockLocatorHashes)
		return messageError("MsgGetHeaders.BtcDecode", str)
	}

	msg.BlockLocatorHashes = make([]*chainhash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		hash := chainhash.Hash{}
		if err := readElement(r, &hash); err != nil {
			return err
		}
		msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, &hash)
	}

	return readElement(r, &msg.HashStop)
}

// BtcEncode encodes the receiver to w using the wire protocol encoding.
func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.BlockLocatorHashes)
	if count > MaxBlockLocatorHashes {
		str := fmt.Sprintf("too many block locator hashes for message [count %v, max %v]",
			count, MaxBlockLocatorHashes)
		return messageError("MsgGetHeaders.BtcEncode", str)
	}

	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteCompactSize(w, uint64(count)); err != nil {
		return err
	}
	for _, hash := range msg.BlockLocatorHashes {
		if err := writeElement(w, hash); err != nil {
			return err
		}
	}
	return writeElement(w, &msg.HashStop)
}

// Command returns the protocol command string for the message.
func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 9 + (uint32(MaxBlockLocatorHashes) * chainhash.HashSize) + chainhash.HashSize
}
