// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgVersion implements the Message interface and represents the initial
// handshake message exchanged by both ends of a connection.
type MsgVersion struct {
	ProtocolVersion int32
	Services        uint64
	Timestamp       int64
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
}

// BtcDecode decodes r using the wire protocol encoding into the receiver.
func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}
	if err := readElement(r, &msg.Services); err != nil {
		return err
	}
	if err := readElement(r, &msg.Timestamp); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrRecv); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrFrom); err != nil {
		return err
	}
	if err := readElement(r, &msg.Nonce); err != nil {
		return err
	}
	ua, err := ReadVarBytes(r, MaxUserAgentLen, "user agent")
	if err != nil {
		return err
	}
	msg.UserAgent = string(ua)
	return readElement(r, &msg.StartHeight)
}

// BtcEncode encodes the receiver to w using the wire protocol encoding.
func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.UserAgent) > MaxUserAgentLen {
		str := fmt.Sprintf("user agent too long [len %d, max %d]",
			len(msg.UserAgent), MaxUserAgentLen)
		return messageError("MsgVersion.BtcEncode", str)
	}

	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := writeElement(w, msg.Services); err != nil {
		return err
	}
	if err := writeElement(w, msg.Timestamp); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrRecv); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrFrom); err != nil {
		return err
	}
	if err := writeElement(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarBytes(w, []byte(msg.UserAgent)); err != nil {
		return err
	}
	return writeElement(w, msg.StartHeight)
}

// Command returns the protocol command string for the message.
func (msg *MsgVersion) Command() string { return CmdVersion }

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + 8 + 26 + 26 + 8 + uint32(MaxUserAgentLen) + 3 + 4
}
