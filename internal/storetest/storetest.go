// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storetest holds the behaviour every boxstore backend must share.
// Backend packages call Run from their own tests with a factory returning a
// fresh, empty store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh empty store. The factory registers any cleanup
// with t.
type Factory func(t testing.TB) boxstore.Store

// Run runs the shared store tests against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		test func(t *testing.T, s boxstore.Store)
	}{
		{"receipts", testReceipts},
		{"receipt isolation", testReceiptIsolation},
		{"blobs", testBlobs},
		{"accounts", testAccounts},
		{"concurrent save", testConcurrentSave},
		{"cancelled context", testCancelledContext},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.test(t, newStore(t))
		})
	}
}

// InboxKey returns the box key used throughout the shared tests.
func InboxKey() boxstore.Key {
	return boxstore.Key{
		ServerID:    "notary-1",
		OwnerID:     "alice",
		ContainerID: "acct-1",
		Type:        boxstore.BoxInbox,
	}
}

func testReceipts(t *testing.T, s boxstore.Store) {
	ctx := context.Background()
	key := boxstore.ReceiptKey{Key: InboxKey(), Number: 7}

	// Arrange: nothing stored yet.
	exists, err := s.ReceiptExists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = s.LoadReceipt(ctx, key)
	require.ErrorIs(t, err, boxstore.ErrNotFound)

	// Act: save, then overwrite.
	require.NoError(t, s.SaveReceipt(ctx, key, []byte("first")))
	require.NoError(t, s.SaveReceipt(ctx, key, []byte("second")))

	// Assert: the latest value wins.
	exists, err = s.ReceiptExists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	b, err := s.LoadReceipt(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), b)

	// Delete is idempotent.
	require.NoError(t, s.DeleteReceipt(ctx, key))
	require.NoError(t, s.DeleteReceipt(ctx, key))

	_, err = s.LoadReceipt(ctx, key)
	require.ErrorIs(t, err, boxstore.ErrNotFound)
}

func testReceiptIsolation(t *testing.T, s boxstore.Store) {
	ctx := context.Background()
	base := boxstore.ReceiptKey{Key: InboxKey(), Number: 1}

	variants := []boxstore.ReceiptKey{base, base, base, base, base}
	variants[1].Number = 2
	variants[2].OwnerID = "bob"
	variants[3].Type = boxstore.BoxOutbox
	variants[4].ServerID = "notary-2"

	for i, k := range variants {
		require.NoError(t, s.SaveReceipt(ctx, k,
			[]byte(fmt.Sprintf("v%d", i))))
	}

	for i, k := range variants {
		b, err := s.LoadReceipt(ctx, k)
		require.NoError(t, err, k.String())
		require.Equal(t, fmt.Sprintf("v%d", i), string(b))
	}
}

func testBlobs(t *testing.T, s boxstore.Store) {
	ctx := context.Background()
	key := InboxKey()

	_, err := s.LoadBox(ctx, key)
	require.ErrorIs(t, err, boxstore.ErrNotFound)

	require.NoError(t, s.SaveBox(ctx, key, []byte("box-1")))

	// The blob key ignores the owner.
	other := key
	other.OwnerID = "mallory"
	b, err := s.LoadBox(ctx, other)
	require.NoError(t, err)
	require.Equal(t, []byte("box-1"), b)

	outbox := key
	outbox.Type = boxstore.BoxOutbox
	_, err = s.LoadBox(ctx, outbox)
	require.ErrorIs(t, err, boxstore.ErrNotFound)
}

func testAccounts(t *testing.T, s boxstore.Store) {
	ctx := context.Background()

	res, err := s.LookupAccount(ctx, "acct-1", "notary-1")
	require.NoError(t, err)
	require.True(t, res.IsNone())

	acct := boxstore.AccountSummary{
		AccountID: "acct-1",
		ServerID:  "notary-1",
		OwnerID:   "alice",
		Balance:   -250,
	}
	require.NoError(t, s.PutAccount(ctx, acct))

	res, err = s.LookupAccount(ctx, "acct-1", "notary-1")
	require.NoError(t, err)
	got, err := res.UnwrapOrErr(fmt.Errorf("account missing"))
	require.NoError(t, err)
	require.Equal(t, acct, got)

	res, err = s.LookupAccount(ctx, "acct-1", "notary-2")
	require.NoError(t, err)
	require.True(t, res.IsNone())
}

// testConcurrentSave checks a reader only ever observes complete values
// while writers race on one key.
func testConcurrentSave(t *testing.T, s boxstore.Store) {
	ctx := context.Background()
	key := boxstore.ReceiptKey{Key: InboxKey(), Number: 99}

	values := [][]byte{
		[]byte("aaaaaaaaaaaaaaaa"),
		[]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	}
	require.NoError(t, s.SaveReceipt(ctx, key, values[0]))

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- s.SaveReceipt(ctx, key, values[i%2])
		}()
		go func() {
			defer wg.Done()
			b, err := s.LoadReceipt(ctx, key)
			if err == nil && string(b) != string(values[0]) &&
				string(b) != string(values[1]) {

				err = fmt.Errorf("torn read: %q", b)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func testCancelledContext(t *testing.T, s boxstore.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key := boxstore.ReceiptKey{Key: InboxKey(), Number: 3}
	require.ErrorIs(t, s.SaveReceipt(ctx, key, []byte("x")),
		context.Canceled)

	_, err := s.LoadReceipt(ctx, key)
	require.ErrorIs(t, err, context.Canceled)
}
