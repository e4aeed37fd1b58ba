// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerstore

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "discouraged"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUndiscouragedAddressReportsFalse(t *testing.T) {
	s := openTestStore(t)
	discouraged, err := s.IsDiscouraged("203.0.113.5:8333")
	if err != nil {
		t.Fatalf("IsDiscouraged: %v", err)
	}
	if discouraged {
		t.Fatal("fresh store should not discourage an unknown address")
	}
}

func TestDiscourageMarksAddressForDuration(t *testing.T) {
	s := openTestStore(t)
	addr := "203.0.113.5:8333"

	if err := s.Discourage(addr, time.Hour); err != nil {
		t.Fatalf("Discourage: %v", err)
	}
	discouraged, err := s.IsDiscouraged(addr)
	if err != nil {
		t.Fatalf("IsDiscouraged: %v", err)
	}
	if !discouraged {
		t.Fatal("expected address to be discouraged")
	}
}

func TestDiscourageExpiresAfterDuration(t *testing.T) {
	s := openTestStore(t)
	addr := "203.0.113.5:8333"

	if err := s.Discourage(addr, -time.Second); err != nil {
		t.Fatalf("Discourage: %v", err)
	}
	discouraged, err := s.IsDiscouraged(addr)
	if err != nil {
		t.Fatalf("IsDiscouraged: %v", err)
	}
	if discouraged {
		t.Fatal("expected an already-expired ban to report as not discouraged")
	}
}

func TestDiscourageDoesNotShortenExistingBan(t *testing.T) {
	s := openTestStore(t)
	addr := "203.0.113.5:8333"

	if err := s.Discourage(addr, 24*time.Hour); err != nil {
		t.Fatalf("Discourage: %v", err)
	}
	longExpiry, ok, err := s.expiryFor(addr)
	if err != nil || !ok {
		t.Fatalf("expiryFor: %v, %v", ok, err)
	}

	if err := s.Discourage(addr, time.Minute); err != nil {
		t.Fatalf("Discourage: %v", err)
	}
	expiry, ok, err := s.expiryFor(addr)
	if err != nil || !ok {
		t.Fatalf("expiryFor: %v, %v", ok, err)
	}
	if expiry != longExpiry {
		t.Fatal("a shorter ban request must not shorten an existing longer ban")
	}
}

func TestForgetLiftsBan(t *testing.T) {
	s := openTestStore(t)
	addr := "203.0.113.5:8333"

	if err := s.Discourage(addr, time.Hour); err != nil {
		t.Fatalf("Discourage: %v", err)
	}
	if err := s.Forget(addr); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	discouraged, err := s.IsDiscouraged(addr)
	if err != nil {
		t.Fatalf("IsDiscouraged: %v", err)
	}
	if discouraged {
		t.Fatal("expected ban lifted after Forget")
	}
}
