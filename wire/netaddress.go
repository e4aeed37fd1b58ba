// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
	"net"
)

// NetAddress defines information about a peer on the network, encoded on
// the wire as 8B services + 16B IPv6 (IPv4 mapped) + 2B big-endian port.
type NetAddress struct {
	Services uint64
	IP       net.IP
	Port     uint16
}

// readNetAddress reads a 26-byte network address from r.
func readNetAddress(r io.Reader, na *NetAddress) error {
	var services uint64
	if err := readElement(r, &services); err != nil {
		return err
	}

	var ip [16]byte
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return err
	}

	*na = NetAddress{
		Services: services,
		IP:       net.IP(append([]byte(nil), ip[:]...)),
		Port:     binary.BigEndian.Uint16(port[:]),
	}
	return nil
}

// writeNetAddress writes a 26-byte network address to w.
func writeNetAddress(w io.Writer, na *NetAddress) error {
	if err := writeElement(w, na.Services); err != nil {
		return err
	}

	var ip [16]byte
	if to4 := na.IP.To4(); to4 != nil {
		// v4-mapped: ::ffff:a.b.c.d
		ip[10] = 0xff
		ip[11] = 0xff
		copy(ip[12:16], to4)
	} else if to16 := na.IP.To16(); to16 != nil {
		copy(ip[:], to16)
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	var port [2]byte
	binary.BigEndian.PutUint16(port[:], na.Port)
	_, err := w.Write(port[:])
	return err
}
