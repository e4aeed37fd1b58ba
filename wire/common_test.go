// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
)

func TestCompactSizeRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 0xfc, 0xfd, 0xfe, 0xffff,
		0x10000, 0xffffffff,
		0x100000000, 0xffffffffffffffff,
	}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteCompactSize(&buf, v); err != nil {
			t.Fatalf("WriteCompactSize(%d) = %v, want nil", v, err)
		}
		got, err := ReadCompactSize(&buf)
		if err != nil {
			t.Fatalf("ReadCompactSize() after writing %d = %v, want nil", v, err)
		}
		if got != v {
			t.Fatalf("round trip for %d produced %d", v, got)
		}
	}
}

func TestCompactSizeRejectsNonCanonicalEncodings(t *testing.T) {
	cases := [][]byte{
		{0xfd, 0xfc, 0x00}, // 0xfc fits in a single byte
		{0xfd, 0x00, 0x00}, // 0 fits in a single byte
		{0xfe, 0xff, 0xff, 0x00, 0x00}, // 0xffff fits in the 0xfd form
		{0xff, 0, 0, 0, 0, 1, 0, 0, 0}, // 0x100000000: canonical, excluded below
	}
	// The last case above is deliberately canonical (value > 0xffffffff),
	// so only check the first three non-canonical encodings.
	for i, raw := range cases[:3] {
		if _, err := ReadCompactSize(bytes.NewReader(raw)); err == nil {
			t.Fatalf("case %d: ReadCompactSize(%x) = nil error, want non-canonical rejection", i, raw)
		}
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox")

	var buf bytes.Buffer
	if err := WriteVarBytes(&buf, payload); err != nil {
		t.Fatalf("WriteVarBytes() = %v, want nil", err)
	}

	got, err := ReadVarBytes(&buf, uint64(len(payload)), "test")
	if err != nil {
		t.Fatalf("ReadVarBytes() = %v, want nil", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadVarBytes() = %q, want %q", got, payload)
	}
}

func TestVarBytesRejectsOversizedDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	WriteCompactSize(&buf, 1000)
	buf.Write(make([]byte, 1000))

	if _, err := ReadVarBytes(&buf, 10, "test"); err == nil {
		t.Fatal("expected ReadVarBytes to reject a declared length over maxAllowed")
	}
}

func TestWriteMessageNRejectsOversizedPayload(t *testing.T) {
	headers := make([]BlockHeader, MaxHeadersPerMsg+1)
	msg := &MsgHeaders{Headers: make([]*BlockHeader, len(headers))}
	for i := range headers {
		msg.Headers[i] = &headers[i]
	}

	var buf bytes.Buffer
	if _, err := WriteMessageN(&buf, msg, 0, MainNet); err == nil {
		t.Fatal("expected WriteMessageN to reject a headers message over MaxHeadersPerMsg")
	}
}

func TestMessageEnvelopeRoundTrip(t *testing.T) {
	ping := &MsgPing{Nonce: 0xdeadbeefcafebabe}

	var buf bytes.Buffer
	n, err := WriteMessageN(&buf, ping, 0, MainNet)
	if err != nil {
		t.Fatalf("WriteMessageN() = %v, want nil", err)
	}
	if n != messageHeaderLen+8 {
		t.Fatalf("WriteMessageN() wrote %d bytes, want %d", n, messageHeaderLen+8)
	}

	_, msg, payload, err := ReadMessageN(&buf, 0, MainNet)
	if err != nil {
		t.Fatalf("ReadMessageN() = %v, want nil", err)
	}
	if len(payload) != 8 {
		t.Fatalf("payload length = %d, want 8", len(payload))
	}
	gotPing, ok := msg.(*MsgPing)
	if !ok {
		t.Fatalf("decoded message has type %T, want *MsgPing", msg)
	}
	if gotPing.Nonce != ping.Nonce {
		t.Fatalf("decoded nonce = %x, want %x", gotPing.Nonce, ping.Nonce)
	}
}

func TestMessageEnvelopeRejectsWrongNetwork(t *testing.T) {
	ping := &MsgPing{Nonce: 1}

	var buf bytes.Buffer
	if _, err := WriteMessageN(&buf, ping, 0, MainNet); err != nil {
		t.Fatalf("WriteMessageN() = %v, want nil", err)
	}

	if _, _, _, err := ReadMessageN(&buf, 0, TestNet); err == nil {
		t.Fatal("expected ReadMessageN to reject a message from the wrong network")
	}
}

func TestMessageEnvelopeRejectsCorruptedChecksum(t *testing.T) {
	ping := &MsgPing{Nonce: 1}

	var buf bytes.Buffer
	if _, err := WriteMessageN(&buf, ping, 0, MainNet); err != nil {
		t.Fatalf("WriteMessageN() = %v, want nil", err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff // corrupt the last payload byte

	if _, _, _, err := ReadMessageN(bytes.NewReader(raw), 0, MainNet); err == nil {
		t.Fatal("expected ReadMessageN to reject a corrupted payload")
	}
}
