// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txdata

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// TestCanonicalOrdering checks canonical output sorts keys and keeps large
// integers exact.
func TestCanonicalOrdering(t *testing.T) {
	t.Parallel()

	it := &Item{
		Type:      ItemTransfer,
		ServerID:  "srv",
		NymID:     "nym",
		AccountID: "acct",
		Number:    1<<62 + 1,
		Amount:    -5,
	}

	b, err := EncodeItem(it)
	require.NoError(t, err)
	require.Contains(t, string(b), `"transactionNum":"4611686018427387905"`)
	require.True(t, bytes.Index(b, []byte(`"accountID"`)) <
		bytes.Index(b, []byte(`"amount"`)))

	again, err := EncodeItem(it)
	require.NoError(t, err)
	require.Equal(t, b, again)

	decoded, err := DecodeItem(b)
	require.NoError(t, err)
	require.Equal(t, it, decoded)
}

// TestDecodeStrict checks unknown fields and trailing data are rejected.
func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "valid", input: `{"item":{"type":"transfer"}}`, ok: true},
		{name: "trailing space", input: `{"item":{"type":"x"}} `, ok: true},
		{name: "unknown field", input: `{"item":{"bogus":1}}`},
		{name: "trailing data", input: `{"item":{}} {}`},
		{name: "missing item", input: `{}`},
		{name: "not json", input: `<item/>`},
	}

	for _, tc := range testCases {
		_, err := DecodeItem([]byte(tc.input))
		if tc.ok {
			require.NoError(t, err, tc.name)
		} else {
			require.Error(t, err, tc.name)
		}
	}
}

// TestChequeEncoding checks cheque validity times survive encoding at second
// precision and zero times stay zero.
func TestChequeEncoding(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Cheque{
		Number:          42,
		Amount:          1500,
		ServerID:        "srv",
		SenderAccountID: "acct",
		SenderNymID:     "alice",
		RecipientNymID:  "bob",
		Memo:            "rent",
		ValidFrom:       from,
	}

	b, err := EncodeCheque(c)
	require.NoError(t, err)

	decoded, err := DecodeCheque(b)
	require.NoError(t, err)
	require.Equal(t, c.Number, decoded.Number)
	require.Equal(t, c.Amount, decoded.Amount)
	require.True(t, from.Equal(decoded.ValidFrom))
	require.True(t, decoded.ValidTo.IsZero())
}

// TestArmorProperty checks Dearmor inverts Armor for arbitrary input.
func TestArmorProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("dearmor inverts armor", prop.ForAll(
		func(b []byte) bool {
			armored, err := Armor(b)
			if err != nil {
				return false
			}
			back, err := Dearmor(armored)
			if err != nil {
				return false
			}
			return bytes.Equal(b, back)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// TestDearmorErrors checks malformed armor is rejected.
func TestDearmorErrors(t *testing.T) {
	t.Parallel()

	_, err := Dearmor("!!!")
	require.Error(t, err)

	_, err = Dearmor("aGVsbG8=")
	require.Error(t, err)
}

// TestEnvelope covers sealing, opening and signature checks.
func TestEnvelope(t *testing.T) {
	t.Parallel()

	svc := hashsign.New(hashsign.SHA256d)
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	content := []byte(`{"transaction":{}}`)

	// Arrange: a signed and an unsigned envelope.
	signed, err := Seal(KindSignedTransaction, content, svc, key)
	require.NoError(t, err)
	unsigned, err := Seal(KindSignedTransaction, content, nil, nil)
	require.NoError(t, err)

	// Act & Assert: both open, only the signed one carries a signer.
	env, err := Open(signed, KindSignedTransaction, svc)
	require.NoError(t, err)
	require.True(t, env.IsSigned())
	require.Equal(t, content, env.Content)
	pub, err := env.SignerKey()
	require.NoError(t, err)
	require.True(t, pub.IsEqual(key.PubKey()))

	env, err = Open(unsigned, KindSignedTransaction, svc)
	require.NoError(t, err)
	require.False(t, env.IsSigned())
	pub, err = env.SignerKey()
	require.NoError(t, err)
	require.Nil(t, pub)

	require.Equal(t, KindSignedTransaction, EnvelopeKind(signed))
	require.Empty(t, EnvelopeKind([]byte(`[]`)))

	_, err = Open(signed, KindSignedLedger, svc)
	require.ErrorIs(t, err, ErrEnvelopeKind)

	// A signature over other content must fail to verify.
	other, err := Seal(KindSignedTransaction, []byte("other"), svc, key)
	require.NoError(t, err)
	otherEnv, err := Open(other, KindSignedTransaction, nil)
	require.NoError(t, err)

	env, err = Open(signed, KindSignedTransaction, nil)
	require.NoError(t, err)
	env.Signature = otherEnv.Signature
	forged, err := Canonical(map[string]*Envelope{
		KindSignedTransaction: env,
	})
	require.NoError(t, err)

	_, err = Open(forged, KindSignedTransaction, svc)
	require.ErrorIs(t, err, ErrSignature)

	// Without a verifier the forged envelope still opens.
	_, err = Open(forged, KindSignedTransaction, nil)
	require.NoError(t, err)

	// Padding the canonical bytes is rejected.
	padded := append([]byte(" "), signed...)
	_, err = Open(padded, KindSignedTransaction, svc)
	require.ErrorIs(t, err, ErrNonCanonical)
}

// TestTypeClassification checks the kind predicates.
func TestTypeClassification(t *testing.T) {
	t.Parallel()

	require.True(t, Blank.CarriesNumberList())
	require.True(t, SuccessNotice.CarriesNumberList())
	require.False(t, Pending.CarriesNumberList())

	require.True(t, ChequeReceipt.MovesBalance())
	require.True(t, Pending.MovesBalance())
	require.False(t, Notice.MovesBalance())
	require.False(t, Type("futureKind").MovesBalance())
	require.Equal(t, "-12", Amount(-12).String())
}
