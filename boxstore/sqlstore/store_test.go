// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqlstore

import (
	"context"
	"testing"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/internal/sqltest"
	"github.com/btcsuite/otledger/internal/storetest"
	"github.com/stretchr/testify/require"
)

// TestStore runs the shared store behaviour against every enabled SQL
// database.
func TestStore(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T, backend string,
		dbFactory sqltest.DBFactory) {

		dialect, err := ParseDialect(backend)
		require.NoError(t, err)

		storetest.Run(t, func(t testing.TB) boxstore.Store {
			s, err := New(context.Background(), dbFactory(t),
				dialect)
			require.NoError(t, err)
			return s
		})
	})
}

// TestSchemaIdempotent checks opening a store twice over the same database
// keeps existing rows.
func TestSchemaIdempotent(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T, backend string,
		dbFactory sqltest.DBFactory) {

		ctx := context.Background()
		dialect, err := ParseDialect(backend)
		require.NoError(t, err)

		db := dbFactory(t)
		s, err := New(ctx, db, dialect)
		require.NoError(t, err)

		key := storetest.InboxKey()
		require.NoError(t, s.SaveBox(ctx, key, []byte("ledger")))

		s, err = New(ctx, db, dialect)
		require.NoError(t, err)

		b, err := s.LoadBox(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte("ledger"), b)
	})
}

// TestOpen checks Open prepares the schema of a fresh database of every
// enabled flavour and finds it again on reopen.
func TestOpen(t *testing.T) {
	sqltest.RunDSNTest(t, func(t *testing.T, backend string,
		dsnFactory sqltest.DSNFactory) {

		ctx := context.Background()
		dialect, err := ParseDialect(backend)
		require.NoError(t, err)
		dsn := dsnFactory(t)

		// Arrange: a fresh database has no accounts.
		s, err := Open(ctx, dialect, dsn)
		require.NoError(t, err)

		res, err := s.LookupAccount(ctx, "acct", "notary")
		require.NoError(t, err)
		require.True(t, res.IsNone())

		acct := boxstore.AccountSummary{
			AccountID: "acct",
			ServerID:  "notary",
			OwnerID:   "alice",
			Balance:   12,
		}
		require.NoError(t, s.PutAccount(ctx, acct))
		require.NoError(t, s.Close())

		// Act.
		s, err = Open(ctx, dialect, dsn)
		require.NoError(t, err)
		defer s.Close()

		// Assert.
		res, err = s.LookupAccount(ctx, "acct", "notary")
		require.NoError(t, err)
		require.Equal(t, acct, res.UnwrapOr(boxstore.AccountSummary{}))
	})
}

// TestParseDialect checks dialect names and driver names.
func TestParseDialect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		dialect Dialect
		driver  string
	}{
		{"sqlite", SQLite, "sqlite"},
		{"postgres", Postgres, "pgx"},
		{"pgx", Postgres, "pgx"},
	}
	for _, tc := range testCases {
		d, err := ParseDialect(tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.dialect, d)
		require.Equal(t, tc.driver, d.DriverName())
	}

	_, err := ParseDialect("mysql")
	require.Error(t, err)
}
