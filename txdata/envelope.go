// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/otledger/hashsign"
)

// Envelope kinds used by the box engine.
const (
	KindSignedTransaction = "signedTransaction"
	KindSignedLedger      = "signedLedger"
	KindSignedStatement   = "signedBalanceStatement"
)

var (
	// ErrEnvelopeKind is returned when a document is not an envelope of the
	// expected kind.
	ErrEnvelopeKind = errors.New("unexpected envelope kind")

	// ErrSignature is returned when an envelope carries a signature that
	// does not verify against its signer.
	ErrSignature = errors.New("envelope signature invalid")

	// ErrNonCanonical is returned when the bytes of an envelope differ from
	// the canonical encoding of the envelope they decode to.
	ErrNonCanonical = errors.New("envelope is not canonical")
)

// Envelope wraps canonical content with an optional signature and the
// compressed public key of the signer.
type Envelope struct {
	Content   []byte `json:"content"`
	Signature []byte `json:"signature,omitempty"`
	Signer    []byte `json:"signer,omitempty"`
}

// IsSigned reports whether the envelope carries a signature.
func (e *Envelope) IsSigned() bool {
	return len(e.Signature) != 0
}

// SignerKey parses the signer public key. It returns nil with no error for an
// unsigned envelope.
func (e *Envelope) SignerKey() (*btcec.PublicKey, error) {
	if len(e.Signer) == 0 {
		return nil, nil
	}
	return btcec.ParsePubKey(e.Signer)
}

// Seal wraps content in an envelope of the given kind and returns its
// canonical bytes. The envelope is left unsigned when signer or key is nil.
func Seal(kind string, content []byte, signer hashsign.Signer,
	key *btcec.PrivateKey) ([]byte, error) {

	env := Envelope{Content: content}
	if signer != nil && key != nil {
		sig, err := signer.Sign(content, key)
		if err != nil {
			return nil, fmt.Errorf("seal %s: %w", kind, err)
		}
		env.Signature = sig
		env.Signer = key.PubKey().SerializeCompressed()
	}

	return Canonical(map[string]*Envelope{kind: &env})
}

// Open parses a sealed envelope of the given kind. The bytes must be exactly
// the canonical encoding Seal produces. When v is non-nil and the envelope is
// signed, the signature must verify.
func Open(raw []byte, kind string, v hashsign.Verifier) (*Envelope, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}

	inner, ok := doc[kind]
	if !ok || len(doc) != 1 {
		return nil, fmt.Errorf("%w: want %s", ErrEnvelopeKind, kind)
	}

	var env Envelope
	if err := DecodeStrict(inner, &env); err != nil {
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}
	if len(env.Content) == 0 {
		return nil, fmt.Errorf("open %s: empty content", kind)
	}

	canonical, err := Canonical(map[string]*Envelope{kind: &env})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}
	if !bytes.Equal(canonical, raw) {
		return nil, ErrNonCanonical
	}

	if v == nil || !env.IsSigned() {
		return &env, nil
	}

	pub, err := env.SignerKey()
	if err != nil {
		return nil, fmt.Errorf("%w: signer: %v", ErrSignature, err)
	}
	if pub == nil || !v.VerifySignature(env.Content, env.Signature, pub) {
		return nil, ErrSignature
	}

	return &env, nil
}

// EnvelopeKind returns the single top level key of a sealed document, or the
// empty string when raw is not a single-key JSON object.
func EnvelopeKind(raw []byte) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || len(doc) != 1 {
		return ""
	}
	for k := range doc {
		return k
	}
	return ""
}
