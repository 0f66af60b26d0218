// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bdbstore

import "github.com/btcsuite/btcwallet/walletdb"

type readBucket = walletdb.ReadBucket

// walletdbView runs f against the namespace bucket of s.
func walletdbView(s *Store, f func(ns readBucket) error) error {
	return walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		ns, err := readNS(tx)
		if err != nil {
			return err
		}
		return f(ns)
	})
}
