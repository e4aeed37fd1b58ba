// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// CurrencyNet represents which network a message belongs to.
type CurrencyNet uint32

// Message commands relevant to the header-sync core. The transport layer
// may carry additional commands (e.g. addr, reject) that this package does
// not need to model.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdInv         = "inv"
)

// messageHeaderLen is the length in bytes of the envelope that precedes
// every message's payload: 4B magic, 12B command, 4B length, 4B checksum.
const messageHeaderLen = 24

// Message is implemented by every concrete message type exchanged over the
// wire.
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// messageHeader holds the decoded envelope preceding a message payload.
type messageHeader struct {
	magic    CurrencyNet
	command  string
	length   uint32
	checksum [4]byte
}

// checksum returns the first four bytes of double_sha256(payload), the
// envelope checksum field.
func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

// WriteMessageN writes a complete wire message (envelope plus encoded
// payload) to w and returns the number of bytes written.
func WriteMessageN(w io.Writer, msg Message, pver uint32, net CurrencyNet) (int, error) {
	var command [CommandSize]byte
	cmd := msg.Command()
	if len(cmd) > CommandSize {
		str := fmt.Sprintf("command [%s] is too long [max %v]", cmd, CommandSize)
		return 0, messageError("WriteMessage", str)
	}
	copy(command[:], cmd)

	var payloadBuf bytes.Buffer
	if err := msg.BtcEncode(&payloadBuf, pver); err != nil {
		return 0, err
	}
	payload := payloadBuf.Bytes()
	lenp := len(payload)

	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			lenp, mpl)
		return 0, messageError("WriteMessage", str)
	}
	if uint32(lenp) > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload size for "+
			"messages of all types is %d bytes", lenp, MaxMessagePayload)
		return 0, messageError("WriteMessage", str)
	}

	hdr := messageHeader{magic: net, command: cmd, length: uint32(lenp), checksum: checksum(payload)}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(hdr.magic))
	buf.Write(command[:])
	binary.Write(&buf, binary.LittleEndian, hdr.length)
	buf.Write(hdr.checksum[:])

	n1, err := w.Write(buf.Bytes())
	if err != nil {
		return n1, err
	}
	n2, err := w.Write(payload)
	return n1 + n2, err
}

// ReadMessageN reads a complete wire message (envelope plus payload) from r,
// validates the envelope against net and the declared payload length limit,
// and decodes the payload into a concrete Message via makeEmptyMessage.
func ReadMessageN(r io.Reader, pver uint32, net CurrencyNet) (int, Message, []byte, error) {
	var hdrBuf [messageHeaderLen]byte
	n, err := io.ReadFull(r, hdrBuf[:])
	if err != nil {
		return n, nil, nil, err
	}

	gotMagic := CurrencyNet(binary.LittleEndian.Uint32(hdrBuf[0:4]))
	if gotMagic != net {
		str := fmt.Sprintf("message from other network [%v]", gotMagic)
		return n, nil, nil, messageError("ReadMessage", str)
	}

	command := string(bytes.TrimRight(hdrBuf[4:16], "\x00"))
	length := binary.LittleEndian.Uint32(hdrBuf[16:20])
	var wantChecksum [4]byte
	copy(wantChecksum[:], hdrBuf[20:24])

	if length > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - header "+
			"indicates %d bytes, but max message payload is %d bytes",
			length, MaxMessagePayload)
		return n, nil, nil, messageError("ReadMessage", str)
	}

	msg, err := makeEmptyMessage(command)
	if err != nil {
		return n, nil, nil, err
	}

	mpl := msg.MaxPayloadLength(pver)
	if length > mpl {
		str := fmt.Sprintf("payload exceeds max length for command "+
			"[cmd %s, length %d, max %d]", command, length, mpl)
		return n, nil, nil, messageError("ReadMessage", str)
	}

	payload := make([]byte, length)
	n2, err := io.ReadFull(r, payload)
	n += n2
	if err != nil {
		return n, nil, nil, err
	}

	gotChecksum := checksum(payload)
	if gotChecksum != wantChecksum {
		str := fmt.Sprintf("payload checksum failed - header indicates %x, "+
			"but actual checksum is %x", wantChecksum, gotChecksum)
		return n, nil, nil, messageError("ReadMessage", str)
	}

	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return n, nil, nil, err
	}

	return n, msg, payload, nil
}

// makeEmptyMessage returns a zero-value concrete Message for the given
// command name so ReadMessageN can decode into it.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	}
	return nil, messageError("makeEmptyMessage", "unhandled command ["+command+"]")
}
