// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bdbstore

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/txdata"
)

// Naming
//
// The following variables are commonly used in this file and given
// reserved names:
//
//   ns: The top level bucket of this package
//   b:  The nested bucket being operated on
//   k:  A single bucket key
//   v:  A single bucket value
//
// Functions use the naming scheme `OpType`, where Op is one of put, fetch,
// exists or delete.

// Database versions.  Versions start at 1 and increment for each database
// change.
const (
	// LatestVersion is the most recent store version.
	LatestVersion = 1
)

// Bucket names
var (
	namespaceKey   = []byte("otledger")
	bucketReceipts = []byte("receipts")
	bucketBoxes    = []byte("boxes")
	bucketAccounts = []byte("accounts")

	rootVersion = []byte("vers")
)

// createBuckets creates the namespace and its nested buckets and writes the
// store version when absent.
func createBuckets(tx walletdb.ReadWriteTx) error {
	ns, err := tx.CreateTopLevelBucket(namespaceKey)
	if err != nil {
		return fmt.Errorf("create namespace: %w", err)
	}

	for _, name := range [][]byte{
		bucketReceipts, bucketBoxes, bucketAccounts,
	} {
		if _, err := ns.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("create bucket %s: %w", name, err)
		}
	}

	if ns.Get(rootVersion) != nil {
		return nil
	}

	v := make([]byte, 4)
	byteOrder.PutUint32(v, LatestVersion)

	return ns.Put(rootVersion, v)
}

// fetchVersion returns the store version.
func fetchVersion(ns walletdb.ReadBucket) (uint32, error) {
	v := ns.Get(rootVersion)
	if len(v) != 4 {
		return 0, fmt.Errorf("version: short read (expected 4 bytes, "+
			"read %v)", len(v))
	}
	return byteOrder.Uint32(v), nil
}

func readNS(tx walletdb.ReadTx) (walletdb.ReadBucket, error) {
	ns := tx.ReadBucket(namespaceKey)
	if ns == nil {
		return nil, walletdb.ErrBucketNotFound
	}
	return ns, nil
}

func writeNS(tx walletdb.ReadWriteTx) (walletdb.ReadWriteBucket, error) {
	ns := tx.ReadWriteBucket(namespaceKey)
	if ns == nil {
		return nil, walletdb.ErrBucketNotFound
	}
	return ns, nil
}

func putValue(ns walletdb.ReadWriteBucket, bucket, k, payload []byte,
	now time.Time) error {

	v, err := tlvEncodeValue(&storedValue{Payload: payload, SavedAt: now})
	if err != nil {
		return err
	}

	return ns.NestedReadWriteBucket(bucket).Put(k, v)
}

func fetchValue(ns walletdb.ReadBucket, bucket, k []byte) (*storedValue,
	error) {

	v := ns.NestedReadBucket(bucket).Get(k)
	if v == nil {
		return nil, boxstore.ErrNotFound
	}

	return tlvDecodeValue(v)
}

func existsValue(ns walletdb.ReadBucket, bucket, k []byte) bool {
	return ns.NestedReadBucket(bucket).Get(k) != nil
}

func deleteValue(ns walletdb.ReadWriteBucket, bucket, k []byte) error {
	return ns.NestedReadWriteBucket(bucket).Delete(k)
}

func putAccount(ns walletdb.ReadWriteBucket,
	acct boxstore.AccountSummary) error {

	v, err := tlvEncodeAccount(acct.OwnerID, int64(acct.Balance))
	if err != nil {
		return err
	}

	k := boxstore.AccountKey(acct.ServerID, acct.AccountID)
	return ns.NestedReadWriteBucket(bucketAccounts).Put(k, v)
}

func fetchAccount(ns walletdb.ReadBucket, serverID,
	accountID string) (*boxstore.AccountSummary, error) {

	k := boxstore.AccountKey(serverID, accountID)
	v := ns.NestedReadBucket(bucketAccounts).Get(k)
	if v == nil {
		return nil, nil
	}

	owner, balance, err := tlvDecodeAccount(v)
	if err != nil {
		return nil, err
	}

	return &boxstore.AccountSummary{
		AccountID: accountID,
		ServerID:  serverID,
		OwnerID:   owner,
		Balance:   txdata.Amount(balance),
	}, nil
}
