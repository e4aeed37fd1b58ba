// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck implements the Message interface and represents the empty
// acknowledgement of a version message.
type MsgVerAck struct{}

// BtcDecode decodes r using the wire protocol encoding into the receiver.
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error { return nil }

// BtcEncode encodes the receiver to w using the wire protocol encoding.
func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }

// Command returns the protocol command string for the message.
func (msg *MsgVerAck) Command() string { return CmdVerAck }

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32 { return 0 }
