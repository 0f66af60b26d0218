// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hashsign

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/otledger/internal/zero"
)

// NymID derives the identifier of the identity owning key: the base58
// encoding of the digest of the compressed public key.
func NymID(d Digester, key *btcec.PublicKey) string {
	digest := d.Digest(key.SerializeCompressed())
	return base58.Encode(digest[:])
}

// LoadPrivateKey reads a hex encoded secp256k1 private key from path. The
// file contents and the decoded key bytes are zeroed before returning.
func LoadPrivateKey(path string) (*btcec.PrivateKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(content)

	trimmed := bytes.TrimSpace(content)
	raw := make([]byte, hex.DecodedLen(len(trimmed)))
	defer zero.Bytes(raw)

	n, err := hex.Decode(raw, trimmed)
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", path, err)
	}
	if n != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("key file %s: expected %d key bytes, "+
			"got %d", path, btcec.PrivKeyBytesLen, n)
	}

	key, _ := btcec.PrivKeyFromBytes(raw[:n])
	return key, nil
}

// WritePrivateKey writes key hex encoded to path with owner-only
// permissions.
func WritePrivateKey(path string, key *btcec.PrivateKey) error {
	var serialized [btcec.PrivKeyBytesLen]byte
	copy(serialized[:], key.Serialize())
	defer zero.Bytea32(&serialized)

	encoded := []byte(hex.EncodeToString(serialized[:]))
	defer zero.Bytes(encoded)

	return os.WriteFile(path, encoded, 0600)
}
