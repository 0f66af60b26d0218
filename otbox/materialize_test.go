// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/txdata"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestMaterialize checks an abbreviated record is replaced by its verified
// full record.
func TestMaterialize(t *testing.T) {
	t.Parallel()

	cfg, _ := newTestConfig(t)
	key := inboxKey()
	src := newTestBox(t, cfg, key)
	original := transferReceipt(t, key, 3, 70, 60)
	require.NoError(t, src.Insert(original))

	b := savedAbbreviated(t, src)

	require.NoError(t, b.Materialize(t.Context(), 3))

	r := b.FindByNumber(3).UnwrapOr(nil)
	require.False(t, r.IsAbbreviated())
	require.Same(t, b, r.Box())
	require.Equal(t, original.CanonicalBytes(), r.CanonicalBytes())

	err := b.Materialize(t.Context(), 3)
	requireCode(t, err, ErrNotAbbreviated)

	err = b.Materialize(t.Context(), 4)
	requireCode(t, err, ErrRecordNotFound)
}

// TestReceiptHashBinding checks that altering any byte of a stored box
// receipt makes materialization fail and leaves the record abbreviated.
func TestReceiptHashBinding(t *testing.T) {
	t.Parallel()

	cfg, store := newTestConfig(t)
	ctx := t.Context()
	key := inboxKey()

	src := newTestBox(t, cfg, key)
	require.NoError(t, src.Insert(chequeReceipt(t, key, 5, 300)))
	b := savedAbbreviated(t, src)

	rkey := boxstore.ReceiptKey{Key: key, Number: 5}
	receipt, err := store.LoadReceipt(ctx, rkey)
	require.NoError(t, err)

	for i := range receipt {
		mutated := slices.Clone(receipt)
		mutated[i] ^= 0x01
		require.NoError(t, store.SaveReceipt(ctx, rkey, mutated))

		err := b.Materialize(ctx, 5)
		require.Errorf(t, err, "mutation at byte %d accepted", i)
		require.True(t, b.FindByNumber(5).UnwrapOr(nil).IsAbbreviated())
	}

	// Truncation and extension fail too.
	for _, mutated := range [][]byte{
		receipt[:len(receipt)-1],
		append(slices.Clone(receipt), ' '),
	} {
		require.NoError(t, store.SaveReceipt(ctx, rkey, mutated))
		require.Error(t, b.Materialize(ctx, 5))
	}

	// The untouched receipt still materializes.
	require.NoError(t, store.SaveReceipt(ctx, rkey, receipt))
	require.NoError(t, b.Materialize(ctx, 5))
}

// TestMaterializeMismatch checks receipts that parse but do not belong to the
// abbreviated record are refused.
func TestMaterializeMismatch(t *testing.T) {
	t.Parallel()

	cfg, store := newTestConfig(t)
	ctx := t.Context()
	key := inboxKey()

	src := newTestBox(t, cfg, key)
	require.NoError(t, src.Insert(fullRecord(t, key, 1, 0, txdata.Pending,
		10)))
	b := savedAbbreviated(t, src)
	rkey := boxstore.ReceiptKey{Key: key, Number: 1}

	// Another record of the same box under the wrong number.
	other := fullRecord(t, key, 2, 0, txdata.Pending, 10)
	require.NoError(t, store.SaveReceipt(ctx, rkey, other.ReceiptBytes()))
	requireCode(t, b.Materialize(ctx, 1), ErrIdentityMismatch)

	// A record of another account.
	foreignKey := key
	foreignKey.ContainerID = "acct-2"
	foreign := fullRecord(t, foreignKey, 1, 0, txdata.Pending, 10)
	require.NoError(t, store.SaveReceipt(ctx, rkey,
		foreign.ReceiptBytes()))
	requireCode(t, b.Materialize(ctx, 1), ErrIdentityMismatch)

	// Same header, different content.
	changed := fullRecord(t, key, 1, 0, txdata.Pending, 11)
	require.NoError(t, store.SaveReceipt(ctx, rkey,
		changed.ReceiptBytes()))
	requireCode(t, b.Materialize(ctx, 1), ErrIntegrity)

	// No receipt at all.
	require.NoError(t, store.DeleteReceipt(ctx, rkey))
	requireCode(t, b.Materialize(ctx, 1), ErrReceiptMissing)

	require.True(t, b.FindByNumber(1).UnwrapOr(nil).IsAbbreviated())
}

// TestMaterializeAll checks bulk materialization reports exactly the records
// that failed, and stops at the first one unless failures are collected.
func TestMaterializeAll(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		missing  []int64
		corrupt  []int64
		collect  bool
		causes   map[int64]ErrorCode
		stillAbb []int64
	}{
		{
			name:    "all present",
			collect: true,
		},
		{
			name:     "collect missing",
			missing:  []int64{2},
			collect:  true,
			causes:   map[int64]ErrorCode{2: ErrReceiptMissing},
			stillAbb: []int64{2},
		},
		{
			name:     "collect corrupted",
			corrupt:  []int64{2},
			collect:  true,
			causes:   map[int64]ErrorCode{2: ErrIntegrity},
			stillAbb: []int64{2},
		},
		{
			name:     "stop at corrupted",
			corrupt:  []int64{2},
			causes:   map[int64]ErrorCode{2: ErrIntegrity},
			stillAbb: []int64{2, 3},
		},
		{
			name:     "stop at missing",
			missing:  []int64{2},
			causes:   map[int64]ErrorCode{2: ErrReceiptMissing},
			stillAbb: []int64{2, 3},
		},
		{
			name:     "stop at first of several",
			missing:  []int64{1},
			corrupt:  []int64{3},
			causes:   map[int64]ErrorCode{1: ErrReceiptMissing},
			stillAbb: []int64{1, 2, 3},
		},
		{
			name:    "collect several",
			missing: []int64{1},
			corrupt: []int64{3},
			collect: true,
			causes: map[int64]ErrorCode{
				1: ErrReceiptMissing,
				3: ErrIntegrity,
			},
			stillAbb: []int64{1, 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, store := newTestConfig(t)
			ctx := t.Context()
			key := inboxKey()

			// Arrange: three saved records, some receipts gone and
			// some replaced by a record with other content.
			src := newTestBox(t, cfg, key)
			for n := int64(1); n <= 3; n++ {
				require.NoError(t, src.Insert(fullRecord(t, key,
					n, 0, txdata.Pending, txdata.Amount(n))))
			}
			b := savedAbbreviated(t, src)
			for _, n := range tc.missing {
				require.NoError(t, b.DeleteReceipt(ctx, n))
			}
			for _, n := range tc.corrupt {
				changed := fullRecord(t, key, n, 0,
					txdata.Pending, txdata.Amount(n+100))
				require.NoError(t, store.SaveReceipt(ctx,
					b.receiptKey(n), changed.ReceiptBytes()))
			}

			// Act.
			err := b.MaterializeAll(ctx, tc.collect)

			// Assert.
			if len(tc.causes) == 0 {
				require.NoError(t, err)
			} else {
				var bulkErr *BulkMaterializeError
				require.ErrorAs(t, err, &bulkErr)

				want := slices.Sorted(maps.Keys(tc.causes))
				require.Equal(t, want, bulkErr.Failed)
				for n, code := range tc.causes {
					require.True(t, bulkErr.FailedSet().
						Contains(n))
					requireCode(t, bulkErr.Causes[n], code)
				}
			}

			for _, r := range b.Records() {
				want := slices.Contains(tc.stillAbb, r.Number)
				require.Equal(t, want, r.IsAbbreviated(),
					"record %d", r.Number)
			}
		})
	}
}

// failingStore is a receipt store whose every call fails.
type failingStore struct {
	mock.Mock
}

func (m *failingStore) ReceiptExists(ctx context.Context,
	key boxstore.ReceiptKey) (bool, error) {

	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *failingStore) LoadReceipt(ctx context.Context,
	key boxstore.ReceiptKey) ([]byte, error) {

	args := m.Called(key)
	return nil, args.Error(1)
}

func (m *failingStore) SaveReceipt(ctx context.Context,
	key boxstore.ReceiptKey, b []byte) error {

	return m.Called(key, b).Error(0)
}

func (m *failingStore) DeleteReceipt(ctx context.Context,
	key boxstore.ReceiptKey) error {

	return m.Called(key).Error(0)
}

// TestStoreFailures checks receipt store failures surface as ErrStore.
func TestStoreFailures(t *testing.T) {
	t.Parallel()

	cfg, _ := newTestConfig(t)
	key := inboxKey()

	src := newTestBox(t, cfg, key)
	require.NoError(t, src.Insert(fullRecord(t, key, 1, 0, txdata.Pending,
		1)))
	b := savedAbbreviated(t, src)

	errDisk := errors.New("disk on fire")
	rkey := boxstore.ReceiptKey{Key: key, Number: 1}

	store := &failingStore{}
	store.On("LoadReceipt", rkey).Return(nil, errDisk)
	store.On("DeleteReceipt", rkey).Return(errDisk)
	store.On("ReceiptExists", rkey).Return(false, errDisk)
	b.cfg.Receipts = store

	err := b.Materialize(t.Context(), 1)
	requireCode(t, err, ErrStore)
	require.ErrorIs(t, err, errDisk)

	requireCode(t, b.DeleteReceipt(t.Context(), 1), ErrStore)

	src.cfg.Receipts = store
	_, err = src.Save(t.Context())
	requireCode(t, err, ErrStore)

	store.AssertExpectations(t)
}
