// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ldbstore implements the box stores on a goleveldb database, either
// on disk or held entirely in memory. Receipts, box blobs and accounts live in
// separate prefixed pools of one key space.
package ldbstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// currentVersion is the version of the key layout written by this package.
const currentVersion = 1

var versionKey = []byte("version")

// Store is a goleveldb backed implementation of boxstore.Store.
type Store struct {
	db       *leveldb.DB
	receipts pool
	boxes    pool
	accounts pool
	meta     pool
}

// A compile-time assertion to ensure that Store implements the
// boxstore.Store interface.
var _ boxstore.Store = (*Store)(nil)

// Open opens or creates a database in the directory path.
func Open(path string) (*Store, error) {
	options := &opt.Options{
		ErrorIfMissing: false,
	}

	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return newStore(db)
}

// OpenMemory opens a database held entirely in memory.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return newStore(db)
}

func newStore(db *leveldb.DB) (*Store, error) {
	s := &Store{
		db:       db,
		receipts: pool{prefix: prefixReceipts, db: db},
		boxes:    pool{prefix: prefixBoxes, db: db},
		accounts: pool{prefix: prefixAccounts, db: db},
		meta:     pool{prefix: prefixMeta, db: db},
	}

	v, err := s.meta.get(versionKey)
	switch {
	case errors.Is(err, boxstore.ErrNotFound):
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, currentVersion)
		if err := s.meta.put(versionKey, buf); err != nil {
			_ = db.Close()
			return nil, err
		}

	case err != nil:
		_ = db.Close()
		return nil, err

	case len(v) != 8:
		_ = db.Close()
		return nil, fmt.Errorf("truncated version record: %x", v)

	case binary.BigEndian.Uint64(v) > currentVersion:
		_ = db.Close()
		return nil, fmt.Errorf("database version %d is newer than "+
			"supported version %d", binary.BigEndian.Uint64(v),
			currentVersion)
	}

	return s, nil
}

// ReceiptExists implements boxstore.ReceiptStore.
func (s *Store) ReceiptExists(ctx context.Context,
	key boxstore.ReceiptKey) (bool, error) {

	if err := ctx.Err(); err != nil {
		return false, err
	}

	return s.receipts.has(key.Bytes())
}

// LoadReceipt implements boxstore.ReceiptStore.
func (s *Store) LoadReceipt(ctx context.Context,
	key boxstore.ReceiptKey) ([]byte, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := s.receipts.get(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("receipt %v: %w", key, err)
	}

	return b, nil
}

// SaveReceipt implements boxstore.ReceiptStore.
func (s *Store) SaveReceipt(ctx context.Context, key boxstore.ReceiptKey,
	b []byte) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Tracef("Saving receipt %v (%d bytes)", key, len(b))

	return s.receipts.put(key.Bytes(), b)
}

// DeleteReceipt implements boxstore.ReceiptStore.
func (s *Store) DeleteReceipt(ctx context.Context,
	key boxstore.ReceiptKey) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.receipts.delete(key.Bytes())
}

// ReceiptCount returns the number of receipts stored for the box key.
func (s *Store) ReceiptCount(ctx context.Context, key boxstore.Key) (int,
	error) {

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return s.receipts.count(key.ReceiptPrefix())
}

// LoadBox implements boxstore.BlobStore.
func (s *Store) LoadBox(ctx context.Context, key boxstore.Key) ([]byte,
	error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := s.boxes.get(key.BlobKey())
	if err != nil {
		return nil, fmt.Errorf("box %v: %w", key, err)
	}

	return b, nil
}

// SaveBox implements boxstore.BlobStore.
func (s *Store) SaveBox(ctx context.Context, key boxstore.Key,
	b []byte) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.boxes.put(key.BlobKey(), b)
}

// The account pool value is the balance as a big endian uint64 followed by
// the owner id bytes.

// LookupAccount implements boxstore.AccountLookup.
func (s *Store) LookupAccount(ctx context.Context, accountID,
	serverID string) (fn.Option[boxstore.AccountSummary], error) {

	none := fn.None[boxstore.AccountSummary]()
	if err := ctx.Err(); err != nil {
		return none, err
	}

	v, err := s.accounts.get(boxstore.AccountKey(serverID, accountID))
	switch {
	case errors.Is(err, boxstore.ErrNotFound):
		return none, nil
	case err != nil:
		return none, err
	case len(v) < 8:
		return none, fmt.Errorf("truncated account record for %s",
			accountID)
	}

	return fn.Some(boxstore.AccountSummary{
		AccountID: accountID,
		ServerID:  serverID,
		OwnerID:   string(v[8:]),
		Balance:   txdata.Amount(binary.BigEndian.Uint64(v[:8])),
	}), nil
}

// PutAccount records acct, replacing any previous summary.
func (s *Store) PutAccount(ctx context.Context,
	acct boxstore.AccountSummary) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	v := make([]byte, 8, 8+len(acct.OwnerID))
	binary.BigEndian.PutUint64(v, uint64(acct.Balance))
	v = append(v, acct.OwnerID...)

	return s.accounts.put(boxstore.AccountKey(acct.ServerID,
		acct.AccountID), v)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
