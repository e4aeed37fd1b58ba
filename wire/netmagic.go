// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// Network magic numbers identifying which network a message envelope
// belongs to. Mirrors the pattern of distinct, hard to confuse magics per
// network so a misconfigured peer is rejected at the envelope, not deep in
// payload decoding.
const (
	MainNet  CurrencyNet = 0xc0a1b5c3
	TestNet  CurrencyNet = 0xc0a1b5c4
	SimNet   CurrencyNet = 0xc0a1b5c5
	RegNet   CurrencyNet = 0xc0a1b5c6
)

// String returns the CurrencyNet in human-readable form.
func (n CurrencyNet) String() string {
	switch n {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	case SimNet:
		return "simnet"
	case RegNet:
		return "regnet"
	default:
		return "unknown"
	}
}
