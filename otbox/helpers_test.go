// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/boxstore/ldbstore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/internal/storetest"
	"github.com/btcsuite/otledger/txdata"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestConfig returns a config backed by an in-memory receipt store.
func newTestConfig(t *testing.T) (Config, *ldbstore.Store) {
	t.Helper()

	store, err := ldbstore.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return Config{
		Receipts: store,
		Hasher:   hashsign.New(hashsign.SHA256d),
	}, store
}

func inboxKey() boxstore.Key {
	return storetest.InboxKey()
}

func nymboxKey() boxstore.Key {
	return boxstore.Key{
		ServerID:    "notary-1",
		OwnerID:     "alice",
		ContainerID: "alice",
		Type:        boxstore.BoxNymbox,
	}
}

func messageKey() boxstore.Key {
	k := nymboxKey()
	k.Type = boxstore.BoxMessage
	return k
}

func newTestBox(t *testing.T, cfg Config, key boxstore.Key) *Box {
	t.Helper()

	b, err := New(cfg, key)
	require.NoError(t, err)
	return b
}

// headerFor returns a record header belonging to the box key.
func headerFor(key boxstore.Key, number, ref int64,
	typ txdata.Type) Header {

	return Header{
		ServerID:        key.ServerID,
		OwnerID:         key.OwnerID,
		AccountID:       key.ContainerID,
		Number:          number,
		ReferenceNumber: ref,
		Type:            typ,
		DateSigned:      testDate,
	}
}

func fullRecord(t *testing.T, key boxstore.Key, number, ref int64,
	typ txdata.Type, adjustment txdata.Amount) *Record {

	t.Helper()

	r, err := NewFullRecord(headerFor(key, number, ref, typ), Full{
		Summary: Summary{
			AdjustmentAmount: adjustment,
			DisplayAmount:    adjustment,
		},
		Note: "memo",
	})
	require.NoError(t, err)
	return r
}

// transferReceipt returns a transfer receipt whose accept item is numbered
// acceptNumber and originates from transaction origin.
func transferReceipt(t *testing.T, key boxstore.Key, number, acceptNumber,
	origin int64) *Record {

	t.Helper()

	accept, err := txdata.EncodeItem(&txdata.Item{
		Type:           txdata.ItemAcceptPending,
		ServerID:       key.ServerID,
		NymID:          key.OwnerID,
		AccountID:      key.ContainerID,
		Number:         acceptNumber,
		NumberOfOrigin: origin,
		Amount:         25,
	})
	require.NoError(t, err)

	h := headerFor(key, number, acceptNumber, txdata.TransferReceipt)
	h.NumberOfOrigin = origin
	r, err := NewFullRecord(h, Full{
		Summary:       Summary{AdjustmentAmount: -25, DisplayAmount: 25},
		InReferenceTo: accept,
	})
	require.NoError(t, err)
	return r
}

// chequeReceipt returns a cheque receipt for a cheque numbered chequeNumber.
func chequeReceipt(t *testing.T, key boxstore.Key, number,
	chequeNumber int64) *Record {

	t.Helper()

	cheque, err := txdata.EncodeCheque(&txdata.Cheque{
		Number:          chequeNumber,
		Amount:          40,
		ServerID:        key.ServerID,
		SenderAccountID: key.ContainerID,
		SenderNymID:     key.OwnerID,
		ValidFrom:       testDate,
		ValidTo:         testDate.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	deposit, err := txdata.EncodeItem(&txdata.Item{
		Type:       txdata.ItemDepositCheque,
		ServerID:   key.ServerID,
		NymID:      "bob",
		AccountID:  "acct-2",
		Number:     number + 100,
		Amount:     40,
		Attachment: cheque,
	})
	require.NoError(t, err)

	r, err := NewFullRecord(
		headerFor(key, number, number+100, txdata.ChequeReceipt),
		Full{
			Summary:       Summary{AdjustmentAmount: -40},
			InReferenceTo: deposit,
		},
	)
	require.NoError(t, err)
	return r
}

// savedAbbreviated saves b and parses the result back, returning a box whose
// records are all abbreviated.
func savedAbbreviated(t *testing.T, b *Box) *Box {
	t.Helper()

	raw, err := b.Save(t.Context())
	require.NoError(t, err)

	parsed, err := Parse(t.Context(), b.cfg, raw, b.Type())
	require.NoError(t, err)
	for _, r := range parsed.Records() {
		require.True(t, r.IsAbbreviated())
	}
	return parsed
}

// rewriteLedger decodes a serialized box, applies edit to its body and
// returns the canonical result.
func rewriteLedger(t *testing.T, raw []byte,
	edit func(body map[string]any)) []byte {

	t.Helper()

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	edit(doc[keyLedger])

	out, err := txdata.Canonical(doc)
	require.NoError(t, err)
	return out
}

func requireCode(t *testing.T, err error, c ErrorCode) {
	t.Helper()

	require.Error(t, err)
	require.Truef(t, IsErrorCode(err, c), "want %v, got %v", c, err)
}
