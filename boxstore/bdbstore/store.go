// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bdbstore implements the box stores on a walletdb database using
// the bbolt backed "bdb" driver. Every value is written inside a single
// read-write transaction, so readers never observe a partial receipt.
package bdbstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/otledger/boxstore"
	"github.com/lightningnetwork/lnd/fn/v2"

	// Register the bbolt driver under name "bdb".
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
)

// byteOrder is the preferred byte order of numeric values.
var byteOrder = binary.BigEndian

// dbDriver is the walletdb driver used by this package.
const dbDriver = "bdb"

// Store is a walletdb backed implementation of boxstore.Store.
type Store struct {
	db  walletdb.DB
	now func() time.Time
}

// A compile-time assertion to ensure that Store implements the
// boxstore.Store interface.
var _ boxstore.Store = (*Store)(nil)

// Create creates a new database at path and initializes its buckets.
func Create(path string, timeout time.Duration) (*Store, error) {
	db, err := walletdb.Create(dbDriver, path, true, timeout, false)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	return initStore(db)
}

// Open opens an existing database at path, creating any missing buckets.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := walletdb.Open(dbDriver, path, true, timeout, false)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return initStore(db)
}

// New wraps an already open walletdb database.
func New(db walletdb.DB) (*Store, error) {
	return initStore(db)
}

func initStore(db walletdb.DB) (*Store, error) {
	err := walletdb.Update(db, createBuckets)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var version uint32
	err = walletdb.View(db, func(tx walletdb.ReadTx) error {
		ns, err := readNS(tx)
		if err != nil {
			return err
		}
		version, err = fetchVersion(ns)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if version > LatestVersion {
		_ = db.Close()
		return nil, fmt.Errorf("store version %d is newer than "+
			"supported version %d", version, LatestVersion)
	}

	log.Debugf("Opened box database at version %d", version)

	return &Store{db: db, now: time.Now}, nil
}

// ReceiptExists implements boxstore.ReceiptStore.
func (s *Store) ReceiptExists(ctx context.Context,
	key boxstore.ReceiptKey) (bool, error) {

	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		ns, err := readNS(tx)
		if err != nil {
			return err
		}
		exists = existsValue(ns, bucketReceipts, key.Bytes())
		return nil
	})

	return exists, err
}

// LoadReceipt implements boxstore.ReceiptStore.
func (s *Store) LoadReceipt(ctx context.Context,
	key boxstore.ReceiptKey) ([]byte, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.load(bucketReceipts, key.Bytes(), key.String())
}

// SaveReceipt implements boxstore.ReceiptStore.
func (s *Store) SaveReceipt(ctx context.Context, key boxstore.ReceiptKey,
	b []byte) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Tracef("Saving receipt %v (%d bytes)", key, len(b))

	return s.save(bucketReceipts, key.Bytes(), b)
}

// DeleteReceipt implements boxstore.ReceiptStore.
func (s *Store) DeleteReceipt(ctx context.Context,
	key boxstore.ReceiptKey) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	return walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		ns, err := writeNS(tx)
		if err != nil {
			return err
		}
		return deleteValue(ns, bucketReceipts, key.Bytes())
	})
}

// LoadBox implements boxstore.BlobStore.
func (s *Store) LoadBox(ctx context.Context, key boxstore.Key) ([]byte,
	error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.load(bucketBoxes, key.BlobKey(), key.String())
}

// SaveBox implements boxstore.BlobStore.
func (s *Store) SaveBox(ctx context.Context, key boxstore.Key,
	b []byte) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.save(bucketBoxes, key.BlobKey(), b)
}

// LookupAccount implements boxstore.AccountLookup.
func (s *Store) LookupAccount(ctx context.Context, accountID,
	serverID string) (fn.Option[boxstore.AccountSummary], error) {

	none := fn.None[boxstore.AccountSummary]()
	if err := ctx.Err(); err != nil {
		return none, err
	}

	var acct *boxstore.AccountSummary
	err := walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		ns, err := readNS(tx)
		if err != nil {
			return err
		}
		acct, err = fetchAccount(ns, serverID, accountID)
		return err
	})
	if err != nil {
		return none, fmt.Errorf("lookup account %s: %w", accountID, err)
	}
	if acct == nil {
		return none, nil
	}

	return fn.Some(*acct), nil
}

// PutAccount records acct, replacing any previous summary.
func (s *Store) PutAccount(ctx context.Context,
	acct boxstore.AccountSummary) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	return walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		ns, err := writeNS(tx)
		if err != nil {
			return err
		}
		return putAccount(ns, acct)
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load(bucket, k []byte, desc string) ([]byte, error) {
	var v *storedValue
	err := walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		ns, err := readNS(tx)
		if err != nil {
			return err
		}
		v, err = fetchValue(ns, bucket, k)
		return err
	})
	switch {
	case errors.Is(err, boxstore.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", desc, boxstore.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", desc, err)
	}

	return v.Payload, nil
}

func (s *Store) save(bucket, k, b []byte) error {
	now := s.now()
	return walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		ns, err := writeNS(tx)
		if err != nil {
			return err
		}
		return putValue(ns, bucket, k, b, now)
	})
}
