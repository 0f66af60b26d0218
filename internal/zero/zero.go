// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zero contains functions to clear private key material held in
// memory once a signing key has been parsed.
package zero

// Bytes sets all bytes in the passed slice to zero. This is used to
// explicitly clear hex encoded or raw private key bytes read from a key file.
func Bytes(b []byte) {
	z := [32]byte{}
	n := uint(copy(b, z[:]))
	for n < uint(len(b)) {
		copy(b[n:], b[:n])
		n <<= 1
	}
}

// Bytea32 clears the 32-byte array by filling it with the zero value. This is
// used for the serialized form of a secp256k1 private key.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}
