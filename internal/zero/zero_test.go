// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zero_test

import (
	"testing"

	"github.com/btcsuite/otledger/internal/zero"
	"github.com/stretchr/testify/require"
)

func makeOneBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 1
	}
	return b
}

func TestBytes(t *testing.T) {
	t.Parallel()

	// Sizes straddle the 32 byte copy window used by Bytes.
	sizes := []int{0, 31, 32, 33, 64, 65, 127, 128, 129, 1023, 1025}
	for _, n := range sizes {
		b := makeOneBytes(n)
		zero.Bytes(b)
		require.Equal(t, make([]byte, n), b, "size %d", n)
	}
}

func TestBytea32(t *testing.T) {
	t.Parallel()

	var b [32]byte
	copy(b[:], makeOneBytes(32))

	zero.Bytea32(&b)
	require.Equal(t, [32]byte{}, b)
}
