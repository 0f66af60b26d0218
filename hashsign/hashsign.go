// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hashsign provides the digest and signature service used by the box
// engine. Every hash the engine reports (box hashes, receipt content hashes)
// and every signature it checks goes through the Service interface so a
// single implementation can be chosen when the process starts.
package hashsign

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size in bytes of every digest produced by this package.
const DigestSize = 32

// This package assumes the supported algorithms all produce 32 byte digests.
var _ [DigestSize]byte = chainhash.Hash{}

var (
	// ErrDigestLength is returned when a hex encoded digest does not decode
	// to exactly DigestSize bytes.
	ErrDigestLength = errors.New("digest has wrong length")

	// ErrUnknownAlgorithm is returned when a digest algorithm name is not
	// recognised.
	ErrUnknownAlgorithm = errors.New("unknown digest algorithm")
)

// Digest is a content digest.
type Digest [DigestSize]byte

// String returns the digest as a lowercase hex string.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest is the all zero value, which is used to
// mean "no digest".
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest decodes a hex encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest

	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(b) != DigestSize {
		return d, fmt.Errorf("%w: got %d bytes", ErrDigestLength, len(b))
	}
	copy(d[:], b)

	return d, nil
}

// Signature is a serialized signature.
type Signature []byte

// Algorithm identifies a digest algorithm.
type Algorithm uint8

const (
	// SHA256d is double SHA-256, the default algorithm.
	SHA256d Algorithm = iota

	// BLAKE2b256 is BLAKE2b with a 256 bit output.
	BLAKE2b256
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case SHA256d:
		return "sha256d"
	case BLAKE2b256:
		return "blake2b"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "", "sha256d":
		return SHA256d, nil
	case "blake2b", "blake2b256":
		return BLAKE2b256, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// sum computes the digest of b with the algorithm.
func (a Algorithm) sum(b []byte) Digest {
	switch a {
	case BLAKE2b256:
		return Digest(blake2b.Sum256(b))
	default:
		return Digest(chainhash.DoubleHashH(b))
	}
}

// Digester computes content digests.
type Digester interface {
	// Digest returns the digest of b.
	Digest(b []byte) Digest
}

// Signer signs content.
type Signer interface {
	// Sign returns a signature over b made with key.
	Sign(b []byte, key *btcec.PrivateKey) (Signature, error)
}

// Verifier checks signatures.
type Verifier interface {
	// VerifySignature reports whether sig is a valid signature over b made
	// by the private half of key.
	VerifySignature(b []byte, sig Signature, key *btcec.PublicKey) bool
}

// Service is the full hash and sign capability consumed by the box engine
// and the balance statement builder.
type Service interface {
	Digester
	Signer
	Verifier
}
