// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MaxMessagePayload is the maximum bytes a message payload can be.
	MaxMessagePayload = 4 * 1000 * 1000 // 4MB

	// MaxVarIntPayload is the ceiling for a decoded CompactSize count or
	// length. ReadCompactSize does not apply it itself; each decoder checks
	// its count against a smaller limit of its own (locator hashes, header
	// batches, inv vectors, ReadVarBytes' maxAllowed).
	MaxVarIntPayload = 33554432 // 32MiB

	// MaxHeadersPerMsg is the maximum number of headers a single headers
	// message may carry.
	MaxHeadersPerMsg = 2000

	// MaxBlockLocatorHashes is the maximum number of hashes a getheaders
	// locator may carry, including the final genesis entry.
	MaxBlockLocatorHashes = 101

	// MaxInvPerMsg is the maximum number of inventory vectors an inv
	// message may carry.
	MaxInvPerMsg = 50000

	// CommandSize is the fixed size in bytes of a message command, null
	// padded to fill the space.
	CommandSize = 12

	// MaxUserAgentLen is the maximum allowed length for the user agent
	// field in a version message.
	MaxUserAgentLen = 256
)

// maxAllocReserve caps a single slice/container reserve() when decoding a
// CompactSize-prefixed count, so a malicious tiny payload that claims a huge
// element count cannot force a large up-front allocation.
const maxAllocReserve = 5000000

// errNonCanonicalVarInt is returned when a CompactSize integer is encoded
// using more bytes than the minimal canonical form requires.
var errNonCanonicalVarInt = messageError("ReadVarInt", "non-canonical varint")

// binaryFreeList is a relatively small free list used to reduce the overhead
// of repeatedly allocating 8-byte buffers when reading and writing the
// primitive integer types used throughout the wire protocol.
type binaryFreeList chan []byte

var binarySerializer binaryFreeList = make(chan []byte, 32)

// Borrow returns a byte slice of length 8 from the free list. A new buffer is
// allocated if there are not any available on the free list.
func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

// Return puts the provided byte slice back on the free list.
func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
		// Let it hit the garbage collector.
	}
}

func (l binaryFreeList) Uint32(r io.Reader) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	binary.LittleEndian.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	binary.LittleEndian.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// readElement reads the next sequence of bytes from r using little-endian
// depending on the concrete type of element.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *int32:
		v, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = int32(v)
		return nil
	case *uint32:
		v, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = v
		return nil
	case *int64:
		v, err := binarySerializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = int64(v)
		return nil
	case *uint64:
		v, err := binarySerializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = v
		return nil
	case *[20]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[32]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	}

	return binary.Read(r, binary.LittleEndian, element)
}

// writeElement writes the little-endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case int32:
		return binarySerializer.PutUint32(w, uint32(e))
	case uint32:
		return binarySerializer.PutUint32(w, e)
	case int64:
		return binarySerializer.PutUint64(w, uint64(e))
	case uint64:
		return binarySerializer.PutUint64(w, e)
	case [20]byte:
		_, err := w.Write(e[:])
		return err
	case [32]byte:
		_, err := w.Write(e[:])
		return err
	}

	return binary.Write(w, binary.LittleEndian, element)
}

// ReadCompactSize reads a CompactSize-encoded unsigned integer from r,
// rejecting any encoding that is not the minimal (canonical) one for the
// decoded value.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	switch prefix[0] {
	case 0xff:
		v, err := binarySerializer.Uint64(r)
		if err != nil {
			return 0, err
		}
		if v <= 0xffffffff {
			return 0, errNonCanonicalVarInt
		}
		return v, nil
	case 0xfe:
		v, err := binarySerializer.Uint32(r)
		if err != nil {
			return 0, err
		}
		if uint64(v) <= 0xffff {
			return 0, errNonCanonicalVarInt
		}
		return uint64(v), nil
	case 0xfd:
		buf := binarySerializer.Borrow()[:2]
		defer binarySerializer.Return(buf)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint16(buf)
		if uint64(v) < 0xfd {
			return 0, errNonCanonicalVarInt
		}
		return uint64(v), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// WriteCompactSize writes val to w using the minimal CompactSize encoding.
func WriteCompactSize(w io.Writer, val uint64) error {
	if val < 0xfd {
		return binarySerializer.PutUint8(w, uint8(val))
	}
	if val <= 0xffff {
		if err := binarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		buf := binarySerializer.Borrow()[:2]
		defer binarySerializer.Return(buf)
		binary.LittleEndian.PutUint16(buf, uint16(val))
		_, err := w.Write(buf)
		return err
	}
	if val <= 0xffffffff {
		if err := binarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return binarySerializer.PutUint32(w, uint32(val))
	}
	if err := binarySerializer.PutUint8(w, 0xff); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, val)
}

// ReadVarBytes reads a CompactSize-prefixed byte slice from r, rejecting
// declared lengths above maxAllowed and capping the up-front allocation at
// maxAllocReserve regardless of the declared length.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		str := fmt.Sprintf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}

	remaining := count
	out := make([]byte, 0)
	written := uint64(0)
	for remaining > 0 {
		chunk := remaining
		if chunk > maxAllocReserve {
			chunk = maxAllocReserve
		}
		out = append(out, make([]byte, chunk)...)
		if _, err := io.ReadFull(r, out[written:written+chunk]); err != nil {
			return nil, err
		}
		written += chunk
		remaining -= chunk
	}
	return out, nil
}

// WriteVarBytes writes a CompactSize-prefixed byte slice to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteCompactSize(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
