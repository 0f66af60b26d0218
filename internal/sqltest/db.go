// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sqltest provides isolated databases for tests of SQL backed
// stores. SQLite databases are always available; PostgreSQL databases run in
// a shared container and are only enabled with the integration_test build
// tag.
package sqltest

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/require"
)

// DBFactory is a function type that creates a new database connection for
// testing purposes. It takes a testing.TB interface to allow for test failure
// when cannot create the database connection, add cleanup logic and create a
// unique and isolated database for each test case.
type DBFactory func(t testing.TB) *sql.DB

// DSNFactory returns the data source name of a fresh, isolated database for
// the test. Stores opened from it create their own schema.
type DSNFactory func(t testing.TB) string

// DBTestFunc is a function type that defines the signature for database test
// functions that will be run against different database implementations.
// backend names the database flavour, "sqlite" or "postgres".
type DBTestFunc func(t *testing.T, backend string, dbFactory DBFactory)

// backend is one database flavour tests can run against.
type backend struct {
	name       string
	dbFactory  DBFactory
	dsnFactory DSNFactory
}

// backends lists the enabled flavours. Build tagged files append to it.
var backends = []backend{
	{
		name:       "sqlite",
		dbFactory:  NewSQLiteDB,
		dsnFactory: NewSQLiteDSN,
	},
}

// RunDatabaseTest runs the same test function against every enabled
// database flavour. Each flavour runs as a parallel subtest.
func RunDatabaseTest(t *testing.T, testFunc DBTestFunc) {
	t.Helper()

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, b.name, b.dbFactory)
		})
	}
}

// DSNTestFunc is run once per database flavour with a DSN factory for it.
type DSNTestFunc func(t *testing.T, backend string, dsnFactory DSNFactory)

// RunDSNTest runs testFunc against every enabled database flavour, handing
// out data source names instead of open connections.
func RunDSNTest(t *testing.T, testFunc DSNTestFunc) {
	t.Helper()

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, b.name, b.dsnFactory)
		})
	}
}

// deterministicTestID generates a deterministic identifier based on the test
// name. This ensures that Golang test caching works properly by avoiding
// random generations for the database name. We need to use this hash to avoid
// long database names that can be cropped by some database systems.
func deterministicTestID(t testing.TB) string {
	t.Helper()
	h := fnv.New32a()
	_, err := h.Write([]byte(t.Name()))

	// This should never fail, but we handle it just in case.
	require.NoError(t, err)

	hashed := fmt.Sprintf("%08x", h.Sum32())
	t.Logf("db name hash: %s", hashed)
	return hashed
}
