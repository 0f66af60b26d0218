// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/boxstore/ldbstore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/internal/cfgutil"
	"github.com/btcsuite/otledger/otbox"
	"github.com/btcsuite/otledger/txdata"
	"github.com/stretchr/testify/require"
)

// newTestApp returns an app over an in-memory store selecting the inbox of
// acct-1. Prompts read input and see a terminal when terminal is set.
func newTestApp(t *testing.T, input string,
	terminal bool) (*app, *bytes.Buffer, *ldbstore.Store) {

	t.Helper()

	store, err := ldbstore.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	cfg := defaultConfig()
	cfg.Server = "notary-1"
	cfg.Container = "acct-1"
	cfg.Type = "inbox"
	cfg.boxType = boxstore.BoxInbox
	cfg.digest = hashsign.SHA256d

	var out bytes.Buffer
	return &app{
		cfg:    &cfg,
		store:  store,
		locker: otbox.NewLocker(),
		boxCfg: otbox.Config{
			Receipts: store,
			Hasher:   hashsign.New(hashsign.SHA256d),
		},
		in:         strings.NewReader(input),
		out:        &out,
		isTerminal: func() bool { return terminal },
	}, &out, store
}

func putAccount(t *testing.T, a *app) {
	t.Helper()

	err := a.store.PutAccount(t.Context(), boxstore.AccountSummary{
		AccountID: "acct-1",
		ServerID:  "notary-1",
		OwnerID:   "alice",
		Balance:   100,
	})
	require.NoError(t, err)
}

// storeInbox persists an inbox of alice holding one transfer receipt.
func storeInbox(t *testing.T, a *app) boxstore.Key {
	t.Helper()

	key := boxstore.Key{
		ServerID:    "notary-1",
		OwnerID:     "alice",
		ContainerID: "acct-1",
		Type:        boxstore.BoxInbox,
	}

	b, err := otbox.New(a.boxCfg, key)
	require.NoError(t, err)

	r, err := otbox.NewFullRecord(otbox.Header{
		ServerID:        key.ServerID,
		OwnerID:         key.OwnerID,
		AccountID:       key.ContainerID,
		Number:          7,
		ReferenceNumber: 3,
		Type:            txdata.TransferReceipt,
		DateSigned:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}, otbox.Full{
		Summary: otbox.Summary{AdjustmentAmount: 25, DisplayAmount: 25},
	})
	require.NoError(t, err)
	require.NoError(t, b.Insert(r))
	require.NoError(t, b.Persist(t.Context(), a.store))

	return key
}

func TestGenerateResolvesOwner(t *testing.T) {
	t.Parallel()

	a, out, store := newTestApp(t, "", false)

	// An inbox needs its account.
	err := (&generateCmd{}).run(t.Context(), a)
	require.True(t, otbox.IsErrorCode(err, otbox.ErrAccountNotFound))

	putAccount(t, a)
	require.NoError(t, (&generateCmd{}).run(t.Context(), a))
	require.Contains(t, out.String(), "notary-1/alice/acct-1/inbox")

	_, err = store.LoadBox(t.Context(), boxstore.Key{
		ServerID:    "notary-1",
		ContainerID: "acct-1",
		Type:        boxstore.BoxInbox,
	})
	require.NoError(t, err)

	// A second generate would replace the box and needs confirmation.
	err = (&generateCmd{}).run(t.Context(), a)
	require.ErrorContains(t, err, "not a terminal")
}

func TestShowAndHash(t *testing.T) {
	t.Parallel()

	a, out, _ := newTestApp(t, "", false)
	putAccount(t, a)
	storeInbox(t, a)

	require.NoError(t, (&showCmd{}).run(t.Context(), a))
	require.Contains(t, out.String(), "1 records")
	require.Contains(t, out.String(), "transferReceipt")
	require.Contains(t, out.String(), "abbreviated")

	out.Reset()
	require.NoError(t, (&showCmd{Dump: true}).run(t.Context(), a))
	require.Contains(t, out.String(), "AdjustmentAmount")

	out.Reset()
	require.NoError(t, (&hashCmd{}).run(t.Context(), a))
	require.Len(t, strings.TrimSpace(out.String()), 64)
}

func TestVerifyAndMaterialize(t *testing.T) {
	t.Parallel()

	a, out, store := newTestApp(t, "", false)
	putAccount(t, a)
	key := storeInbox(t, a)

	require.NoError(t, (&verifyCmd{}).run(t.Context(), a))
	require.Contains(t, out.String(), "1 records verified")

	out.Reset()
	require.NoError(t, (&materializeCmd{}).run(t.Context(), a))
	require.Contains(t, out.String(), "1 of 1 records materialized")

	err := store.DeleteReceipt(t.Context(), boxstore.ReceiptKey{
		Key:    key,
		Number: 7,
	})
	require.NoError(t, err)

	out.Reset()
	err = (&verifyCmd{}).run(t.Context(), a)
	require.ErrorContains(t, err, "1 of 1 records failed")
	require.Contains(t, out.String(), "record 7:")

	out.Reset()
	err = (&materializeCmd{Collect: true}).run(t.Context(), a)
	require.Error(t, err)
	require.Contains(t, out.String(), "0 of 1 records materialized")
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	a, out, _ := newTestApp(t, "", false)
	putAccount(t, a)
	storeInbox(t, a)

	file := filepath.Join(t.TempDir(), "inbox.json")
	export := &exportCmd{Args: fileArgs{File: file}}
	require.NoError(t, export.run(t.Context(), a))

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "accountLedger", txdata.EnvelopeKind(raw))

	// Importing over the stored box needs confirmation.
	imp := &importCmd{Args: fileArgs{File: file}}
	require.ErrorContains(t, imp.run(t.Context(), a), "not a terminal")

	a.cfg.Force = true
	require.NoError(t, imp.run(t.Context(), a))
	require.Contains(t, out.String(), "with 1 records")

	// A document for another box is refused.
	a.cfg.Owner = "alice"
	a.cfg.Container = "acct-2"
	err = imp.run(t.Context(), a)
	require.True(t, otbox.IsErrorCode(err, otbox.ErrIdentityMismatch))
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		terminal bool
		force    bool
		want     bool
		wantErr  bool
	}{
		{
			name:  "forced",
			force: true,
			want:  true,
		},
		{
			name:    "no terminal",
			wantErr: true,
		},
		{
			name:     "yes",
			input:    "y\n",
			terminal: true,
			want:     true,
		},
		{
			name:     "default no",
			input:    "\n",
			terminal: true,
		},
		{
			name:     "retry until answered",
			input:    "maybe\nyes\n",
			terminal: true,
			want:     true,
		},
		{
			name:     "eof",
			terminal: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			// Arrange.
			a, _, _ := newTestApp(t, test.input, test.terminal)
			a.cfg.Force = test.force

			// Act.
			ok, err := a.confirm("Replace?")

			// Assert.
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, ok)
		})
	}
}

func TestAccountCommand(t *testing.T) {
	t.Parallel()

	a, _, store := newTestApp(t, "", false)

	// The owner is required.
	require.Error(t, (&accountCmd{}).run(t.Context(), a))

	a.cfg.Owner = "alice"
	cmd := &accountCmd{Balance: cfgutil.NewAmountFlag(0)}
	require.NoError(t, cmd.Balance.UnmarshalFlag("1_500"))
	require.NoError(t, cmd.run(t.Context(), a))

	res, err := store.LookupAccount(t.Context(), "acct-1", "notary-1")
	require.NoError(t, err)
	require.True(t, res.IsSome())
	acct := res.UnwrapOr(boxstore.AccountSummary{})
	require.Equal(t, "alice", acct.OwnerID)
	require.Equal(t, txdata.Amount(1500), acct.Balance)
}
