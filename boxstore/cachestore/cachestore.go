// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cachestore layers a size bounded read-through cache over a
// boxstore.ReceiptStore. Concurrent loads of one receipt share a single
// fetch from the wrapped store.
package cachestore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/lightninglabs/neutrino/cache"
	"github.com/lightninglabs/neutrino/cache/lru"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the default cache size in bytes.
const DefaultCapacity = 16 << 20

// cachedReceipt is a receipt held by the cache.
type cachedReceipt []byte

// Size returns the byte size of the receipt.
func (c cachedReceipt) Size() (uint64, error) {
	return uint64(len(c)), nil
}

// A compile-time assertion to ensure that cachedReceipt implements the
// cache.Value interface.
var _ cache.Value = cachedReceipt(nil)

// Store wraps a receipt store with a cache.
type Store struct {
	inner boxstore.ReceiptStore
	cache *lru.Cache[boxstore.ReceiptKey, cachedReceipt]
	group singleflight.Group

	// epoch is bumped by every write so a load that raced a write does not
	// repopulate the cache with the value it read before the write. mu
	// orders the epoch check of a load against invalidation.
	mu    sync.Mutex
	epoch uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// A compile-time assertion to ensure that Store implements the
// boxstore.ReceiptStore interface.
var _ boxstore.ReceiptStore = (*Store)(nil)

// New returns a Store caching up to capacity bytes of receipts loaded from
// inner.
func New(inner boxstore.ReceiptStore, capacity uint64) *Store {
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	return &Store{
		inner: inner,
		cache: lru.NewCache[boxstore.ReceiptKey, cachedReceipt](capacity),
	}
}

// ReceiptExists implements boxstore.ReceiptStore.
func (s *Store) ReceiptExists(ctx context.Context,
	key boxstore.ReceiptKey) (bool, error) {

	if _, err := s.cache.Get(key); err == nil {
		return true, nil
	}

	return s.inner.ReceiptExists(ctx, key)
}

// LoadReceipt implements boxstore.ReceiptStore. The returned slice is a copy
// the caller may modify.
func (s *Store) LoadReceipt(ctx context.Context,
	key boxstore.ReceiptKey) ([]byte, error) {

	if v, err := s.cache.Get(key); err == nil {
		s.hits.Add(1)
		return clone(v), nil
	}
	s.misses.Add(1)

	v, err, shared := s.group.Do(string(key.Bytes()), func() (any, error) {
		s.mu.Lock()
		epoch := s.epoch
		s.mu.Unlock()

		b, err := s.inner.LoadReceipt(ctx, key)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.epoch == epoch {
			if _, err := s.cache.Put(key, clone(b)); err != nil {
				log.Debugf("Unable to cache receipt %v: %v",
					key, err)
			}
		}
		s.mu.Unlock()

		return cachedReceipt(b), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Tracef("Shared load of receipt %v", key)
	}

	return clone(v.(cachedReceipt)), nil
}

// SaveReceipt implements boxstore.ReceiptStore. The write goes through to
// the wrapped store and the cached copy is dropped.
func (s *Store) SaveReceipt(ctx context.Context, key boxstore.ReceiptKey,
	b []byte) error {

	defer s.invalidate(key)
	return s.inner.SaveReceipt(ctx, key, b)
}

// DeleteReceipt implements boxstore.ReceiptStore.
func (s *Store) DeleteReceipt(ctx context.Context,
	key boxstore.ReceiptKey) error {

	defer s.invalidate(key)
	return s.inner.DeleteReceipt(ctx, key)
}

// Stats returns the number of cache hits and misses so far.
func (s *Store) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

// Len returns the number of cached receipts.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) invalidate(key boxstore.ReceiptKey) {
	s.mu.Lock()
	s.epoch++
	s.cache.Delete(key)
	s.mu.Unlock()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
