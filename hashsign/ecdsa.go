// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hashsign

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrNilKey is returned when signing is requested without a key.
var ErrNilKey = errors.New("nil signing key")

// ECDSAService implements Service with secp256k1 ECDSA signatures made over
// the digest of the signed content.
type ECDSAService struct {
	alg Algorithm
}

// A compile-time assertion to ensure that ECDSAService implements the Service
// interface.
var _ Service = (*ECDSAService)(nil)

// New returns an ECDSAService computing digests with alg.
func New(alg Algorithm) *ECDSAService {
	return &ECDSAService{alg: alg}
}

// Algorithm returns the digest algorithm of the service.
func (s *ECDSAService) Algorithm() Algorithm {
	return s.alg
}

// Digest implements the Digester interface.
func (s *ECDSAService) Digest(b []byte) Digest {
	return s.alg.sum(b)
}

// Sign implements the Signer interface. The returned signature is DER
// encoded.
func (s *ECDSAService) Sign(b []byte, key *btcec.PrivateKey) (Signature,
	error) {

	if key == nil {
		return nil, ErrNilKey
	}

	d := s.Digest(b)
	sig := ecdsa.Sign(key, d[:])

	return sig.Serialize(), nil
}

// VerifySignature implements the Verifier interface.
func (s *ECDSAService) VerifySignature(b []byte, sig Signature,
	key *btcec.PublicKey) bool {

	if key == nil || len(sig) == 0 {
		return false
	}

	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		log.Debugf("Unparsable signature: %v", err)
		return false
	}

	d := s.Digest(b)
	return parsed.Verify(d[:], key)
}
