// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cachestore

import (
	"context"
	"sync"
	"testing"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/boxstore/ldbstore"
	"github.com/btcsuite/otledger/internal/storetest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockReceiptStore is a mock implementation of boxstore.ReceiptStore.
type mockReceiptStore struct {
	mock.Mock
}

func (m *mockReceiptStore) ReceiptExists(ctx context.Context,
	key boxstore.ReceiptKey) (bool, error) {

	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockReceiptStore) LoadReceipt(ctx context.Context,
	key boxstore.ReceiptKey) ([]byte, error) {

	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockReceiptStore) SaveReceipt(ctx context.Context,
	key boxstore.ReceiptKey, b []byte) error {

	args := m.Called(ctx, key, b)
	return args.Error(0)
}

func (m *mockReceiptStore) DeleteReceipt(ctx context.Context,
	key boxstore.ReceiptKey) error {

	args := m.Called(ctx, key)
	return args.Error(0)
}

// TestLoadIsCached checks a second load is served from the cache.
func TestLoadIsCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := boxstore.ReceiptKey{Key: storetest.InboxKey(), Number: 1}

	// Arrange: the wrapped store is expected to be hit exactly once.
	inner := &mockReceiptStore{}
	inner.On("LoadReceipt", ctx, key).Return([]byte("receipt"), nil).Once()
	s := New(inner, 1024)

	// Act.
	first, err := s.LoadReceipt(ctx, key)
	require.NoError(t, err)
	first[0] = 'X'
	second, err := s.LoadReceipt(ctx, key)
	require.NoError(t, err)

	// Assert: callers cannot corrupt the cached copy.
	require.Equal(t, []byte("receipt"), second)
	hits, misses := s.Stats()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 1, misses)
	require.Equal(t, 1, s.Len())

	exists, err := s.ReceiptExists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	inner.AssertExpectations(t)
}

// TestWriteInvalidates checks saves and deletes drop the cached copy.
func TestWriteInvalidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := boxstore.ReceiptKey{Key: storetest.InboxKey(), Number: 2}

	inner := &mockReceiptStore{}
	inner.On("LoadReceipt", ctx, key).Return([]byte("old"), nil).Once()
	inner.On("SaveReceipt", ctx, key, []byte("new")).Return(nil).Once()
	inner.On("LoadReceipt", ctx, key).Return([]byte("new"), nil).Once()
	inner.On("DeleteReceipt", ctx, key).Return(nil).Once()
	inner.On("ReceiptExists", ctx, key).Return(false, nil).Once()
	s := New(inner, 1024)

	b, err := s.LoadReceipt(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("old"), b)

	require.NoError(t, s.SaveReceipt(ctx, key, []byte("new")))
	b, err = s.LoadReceipt(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), b)

	require.NoError(t, s.DeleteReceipt(ctx, key))
	exists, err := s.ReceiptExists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	inner.AssertExpectations(t)
}

// TestNotFoundIsNotCached checks missing receipts are not remembered.
func TestNotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := boxstore.ReceiptKey{Key: storetest.InboxKey(), Number: 3}

	inner := &mockReceiptStore{}
	inner.On("LoadReceipt", ctx, key).Return(nil,
		boxstore.ErrNotFound).Twice()
	s := New(inner, 1024)

	for range 2 {
		_, err := s.LoadReceipt(ctx, key)
		require.ErrorIs(t, err, boxstore.ErrNotFound)
	}
	require.Zero(t, s.Len())

	inner.AssertExpectations(t)
}

// TestConcurrentLoads checks concurrent readers all see the stored value
// when the cache wraps a real store.
func TestConcurrentLoads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := ldbstore.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	key := boxstore.ReceiptKey{Key: storetest.InboxKey(), Number: 4}
	require.NoError(t, db.SaveReceipt(ctx, key, []byte("shared")))

	s := New(db, 0)

	var wg sync.WaitGroup
	results := make(chan []byte, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := s.LoadReceipt(ctx, key)
			if err != nil {
				b = nil
			}
			results <- b
		}()
	}
	wg.Wait()
	close(results)

	for b := range results {
		require.Equal(t, []byte("shared"), b)
	}
	hits, misses := s.Stats()
	require.EqualValues(t, 16, hits+misses)
}
