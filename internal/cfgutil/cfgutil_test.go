// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAmountFlag checks amounts parse from plain and grouped decimals.
func TestAmountFlag(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{name: "plain", input: "1500", want: 1500, ok: true},
		{name: "negative", input: "-20", want: -20, ok: true},
		{name: "grouped", input: "1_000_000", want: 1000000, ok: true},
		{name: "decimal", input: "1.5"},
		{name: "empty", input: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := NewAmountFlag(7)
			err := a.UnmarshalFlag(tc.input)
			if !tc.ok {
				require.Error(t, err)
				require.EqualValues(t, 7, a.Amount)
				return
			}

			require.NoError(t, err)
			require.EqualValues(t, tc.want, a.Amount)

			s, err := a.MarshalFlag()
			require.NoError(t, err)
			require.Equal(t, a.Amount.String(), s)
		})
	}
}

// TestExplicitString checks explicit assignment is tracked.
func TestExplicitString(t *testing.T) {
	t.Parallel()

	s := NewExplicitString("default")
	require.False(t, s.ExplicitlySet())

	require.NoError(t, s.UnmarshalFlag("default"))
	require.True(t, s.ExplicitlySet())
	require.Equal(t, "default", s.Value)
}

// TestFileExists checks existing and missing paths.
func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "boxctl.conf")

	exists, err := FileExists(path)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, os.WriteFile(path, nil, 0600))
	exists, err = FileExists(path)
	require.NoError(t, err)
	require.True(t, exists)
}

// TestExpandPath checks the home directory and environment expansion.
func TestExpandPath(t *testing.T) {
	t.Setenv("BOXCTL_TEST_DIR", "/var/lib/otledger")

	require.Equal(t, "/home/u/boxes", ExpandPath("~/boxes/", "/home/u"))
	require.Equal(t, "/var/lib/otledger/db",
		ExpandPath("$BOXCTL_TEST_DIR/./db", "/home/u"))
}
