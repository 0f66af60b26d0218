// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqltest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register SQLite driver under name "sqlite".
	_ "modernc.org/sqlite"
)

// NewSQLiteDSN returns the DSN of a fresh SQLite file in a temporary
// directory. The file is named deterministically.
func NewSQLiteDSN(t testing.TB) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(),
		"otledgertest_"+deterministicTestID(t)+".sqlite")

	// Read/write/create mode with a busy timeout so concurrent writers
	// wait instead of failing.
	return "file:" + dbPath + "?mode=rwc&_pragma=busy_timeout(5000)"
}

// NewSQLiteDB opens a fresh SQLite database for the test.
func NewSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", NewSQLiteDSN(t))
	require.NoError(t, err, "failed to open SQLite database")

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		require.NoError(t, err, "failed to ping SQLite database")
	}

	t.Cleanup(func() {
		assert.NoError(t, db.Close(), "failed to close SQLite database")
	})

	return db
}
