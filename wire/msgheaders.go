// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgHeaders implements the Message interface and represents a batch of up
// to MaxHeadersPerMsg block headers delivered in response to a getheaders
// request.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader appends a new header to the message, rejecting the
// addition once MaxHeadersPerMsg would be exceeded.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxHeadersPerMsg {
		str := fmt.Sprintf("too many block headers for message [max %v]",
			MaxHeadersPerMsg)
		return messageError("MsgHeaders.AddBlockHeader", str)
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// BtcDecode decodes r using the wire protocol encoding into the receiver.
func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMsg {
		str := fmt.Sprintf("too many block headers for message [count %v, max %v]",
			count, MaxHeadersPerMsg)
		return messageError("MsgHeaders.BtcDecode", str)
	}

	msg.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		bh := &BlockHeader{}
		if err := bh.Deserialize(r); err != nil {
			return err
		}
		msg.Headers = append(msg.Headers, bh)
	}
	return nil
}

// BtcEncode encodes the receiver to w using the wire protocol encoding.
func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.Headers)
	if count > MaxHeadersPerMsg {
		str := fmt.Sprintf("too many block headers for message [count %v, max %v]",
			count, MaxHeadersPerMsg)
		return messageError("MsgHeaders.BtcEncode", str)
	}

	if err := WriteCompactSize(w, uint64(count)); err != nil {
		return err
	}
	for _, bh := range msg.Headers {
		if err := bh.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgHeaders) Command() string { return CmdHeaders }

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 9 + (uint32(MaxHeadersPerMsg) * BlockHeaderLen)
}
