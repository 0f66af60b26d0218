// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hashsign

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// TestDigestAlgorithms checks that both algorithms are deterministic, differ
// from each other and round trip through their hex form.
func TestDigestAlgorithms(t *testing.T) {
	t.Parallel()

	content := []byte(`{"transaction":{"transactionNum":7}}`)

	testCases := []struct {
		name string
		alg  Algorithm
	}{
		{name: "sha256d", alg: SHA256d},
		{name: "blake2b", alg: BLAKE2b256},
	}

	digests := make(map[Digest]string)
	for _, tc := range testCases {
		svc := New(tc.alg)

		d1 := svc.Digest(content)
		d2 := svc.Digest(content)
		require.Equal(t, d1, d2, tc.name)
		require.False(t, d1.IsZero(), tc.name)

		parsed, err := ParseDigest(d1.String())
		require.NoError(t, err)
		require.Equal(t, d1, parsed)

		alg, err := ParseAlgorithm(tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.alg, alg)
		require.Equal(t, tc.name, alg.String())

		digests[d1] = tc.name
	}
	require.Len(t, digests, 2)
}

// TestParseDigestErrors checks malformed digest strings are rejected.
func TestParseDigestErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseDigest("zz")
	require.Error(t, err)

	_, err = ParseDigest("abcd")
	require.ErrorIs(t, err, ErrDigestLength)

	_, err = ParseAlgorithm("md5")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

// TestSignVerify checks signatures verify for the signed content and key
// only.
func TestSignVerify(t *testing.T) {
	t.Parallel()

	svc := New(SHA256d)
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	content := []byte("balance statement")
	sig, err := svc.Sign(content, key)
	require.NoError(t, err)

	require.True(t, svc.VerifySignature(content, sig, key.PubKey()))
	require.False(t, svc.VerifySignature(content, sig, other.PubKey()))
	require.False(t, svc.VerifySignature([]byte("tampered"), sig,
		key.PubKey()))
	require.False(t, svc.VerifySignature(content, nil, key.PubKey()))
	require.False(t, svc.VerifySignature(content, Signature{1, 2, 3},
		key.PubKey()))

	_, err = svc.Sign(content, nil)
	require.ErrorIs(t, err, ErrNilKey)
}

// TestNymIDAndKeyFile checks nym ids are stable per key and that a key
// survives the key file round trip.
func TestNymIDAndKeyFile(t *testing.T) {
	t.Parallel()

	svc := New(SHA256d)
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	id := NymID(svc, key.PubKey())
	require.NotEmpty(t, id)
	require.Equal(t, id, NymID(svc, key.PubKey()))
	require.NotEqual(t, id, NymID(New(BLAKE2b256), key.PubKey()))

	path := filepath.Join(t.TempDir(), "nym.key")
	require.NoError(t, WritePrivateKey(path, key))

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	require.Equal(t, key.Serialize(), loaded.Serialize())
	require.Equal(t, id, NymID(svc, loaded.PubKey()))

	_, err = LoadPrivateKey(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
