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

// InvType represents the type of inventory vector.
type InvType uint32

// Inventory vector types relevant to header relay.
const (
	InvTypeBlock InvType = 2
)

// InvVect defines an inventory vector, used to describe data, as specified
// by the Type field, that a peer has or is requesting.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// MsgInv implements the Message interface and represents an inventory
// announcement.
type MsgInv struct {
	InvList []*InvVect
}

// AddInvVect appends a new inventory vector to the message, rejecting the
// addition once MaxInvPerMsg would be exceeded.
func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		str := fmt.Sprintf("too many inv vectors for message [max %v]", MaxInvPerMsg)
		return messageError("MsgInv.AddInvVect", str)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// BtcDecode decodes r using the wire protocol encoding into the receiver.
func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if count > MaxInvPerMsg {
		str := fmt.Sprintf("too many inv vectors for message [count %v, max %v]",
			count, MaxInvPerMsg)
		return messageError("MsgInv.BtcDecode", str)
	}

	msg.InvList = make([]*InvVect, 0, count)
	for i := uint64(0); i < count; i++ {
		iv := &InvVect{}
		if err := readElement(r, &iv.Type); err != nil {
			return err
		}
		if err := readElement(r, &iv.Hash); err != nil {
			return err
		}
		msg.InvList = append(msg.InvList, iv)
	}
	return nil
}

// BtcEncode encodes the receiver to w using the wire protocol encoding.
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.InvList)
	if count > MaxInvPerMsg {
		str := fmt.Sprintf("too many inv vectors for message [count %v, max %v]",
			count, MaxInvPerMsg)
		return messageError("MsgInv.BtcEncode", str)
	}

	if err := WriteCompactSize(w, uint64(count)); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		if err := writeElement(w, iv.Type); err != nil {
			return err
		}
		if err := writeElement(w, &iv.Hash); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgInv) Command() string { return CmdInv }

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32 {
	return 9 + (uint32(MaxInvPerMsg) * (4 + chainhash.HashSize))
}
