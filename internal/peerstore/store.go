// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peerstore implements the discouragement store spec.md §4.8
// requires of the peer layer: a durable is_discouraged(address) query used
// during inbound filtering, backed by a leveldb key/value file so bans
// survive process restarts.
package peerstore

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
)

// Store persists per-address discouragement expiry timestamps.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the discouragement store at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Discourage bans addr from reconnecting until duration has elapsed from
// now, per the 24-hour default spec.md §4.7 mandates on disconnect-for-
// misbehavior. A call for an address already discouraged extends the ban
// only if the new expiry is later than the existing one.
func (s *Store) Discourage(addr string, duration time.Duration) error {
	expiry := time.Now().Add(duration).Unix()

	if existing, ok, err := s.expiryFor(addr); err != nil {
		return err
	} else if ok && existing >= expiry {
		return nil
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(expiry))
	return s.db.Put([]byte(addr), buf[:], nil)
}

// IsDiscouraged reports whether addr is currently under an unexpired ban.
func (s *Store) IsDiscouraged(addr string) (bool, error) {
	expiry, ok, err := s.expiryFor(addr)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return time.Now().Unix() < expiry, nil
}

// expiryFor returns the stored ban expiry for addr, if any.
func (s *Store) expiryFor(addr string) (int64, bool, error) {
	val, err := s.db.Get([]byte(addr), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(val) != 8 {
		return 0, false, nil
	}
	return int64(binary.BigEndian.Uint64(val)), true, nil
}

// Forget removes any discouragement record for addr, used by operator
// tooling to manually lift a ban.
func (s *Store) Forget(addr string) error {
	return s.db.Delete([]byte(addr), nil)
}
