// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ldbstore

import (
	"errors"
	"fmt"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Pool prefixes. Every key of the database starts with exactly one of these.
const (
	prefixReceipts byte = 'R'
	prefixBoxes    byte = 'B'
	prefixAccounts byte = 'A'
	prefixMeta     byte = 'M'
)

// pool is one prefixed key space of the database.
type pool struct {
	prefix byte
	db     *leveldb.DB
}

// prefixKey prepends the pool prefix onto key.
func (p pool) prefixKey(key []byte) []byte {
	prefixed := make([]byte, 1, len(key)+1)
	prefixed[0] = p.prefix
	return append(prefixed, key...)
}

// put stores a key/value pair.
func (p pool) put(key, value []byte) error {
	return p.db.Put(p.prefixKey(key), value, nil)
}

// get returns the value stored for key or boxstore.ErrNotFound. The
// returned slice is owned by the caller.
func (p pool) get(key []byte) ([]byte, error) {
	value, err := p.db.Get(p.prefixKey(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, boxstore.ErrNotFound
	}
	return value, err
}

// has reports whether key is present.
func (p pool) has(key []byte) (bool, error) {
	return p.db.Has(p.prefixKey(key), nil)
}

// delete removes key. Deleting a missing key is not an error.
func (p pool) delete(key []byte) error {
	return p.db.Delete(p.prefixKey(key), nil)
}

// count returns the number of keys in the pool starting with keyPrefix.
func (p pool) count(keyPrefix []byte) (int, error) {
	iter := p.db.NewIterator(util.BytesPrefix(p.prefixKey(keyPrefix)), nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate pool %c: %w", p.prefix, err)
	}

	return n, nil
}
