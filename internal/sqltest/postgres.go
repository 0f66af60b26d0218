//go:build integration_test

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqltest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func init() {
	backends = append(backends, backend{
		name:       "postgres",
		dbFactory:  NewPostgresDB,
		dsnFactory: NewPostgresDSN,
	})
}

// Every test of a run shares one container and one database. Tests are
// isolated by schema: each gets its own and its connections only see it
// through search_path.
var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// sharedPostgres starts the container on first use and returns the DSN of
// the shared database.
func sharedPostgres(t testing.TB) string {
	t.Helper()

	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			2*time.Minute)
		defer cancel()

		var c *postgres.PostgresContainer
		c, pgErr = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("otledger"),
			postgres.WithUsername("otledger"),
			postgres.WithPassword("otledger"),
			postgres.BasicWaitStrategies(),
		)
		if pgErr != nil {
			return
		}
		pgDSN, pgErr = c.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, pgErr, "postgres container unavailable")

	return pgDSN
}

// NewPostgresDSN creates an empty schema for the test and returns a DSN
// whose sessions resolve unqualified tables in it. The schema is dropped
// with everything in it when the test ends.
func NewPostgresDSN(t testing.TB) string {
	t.Helper()

	base := sharedPostgres(t)
	schema := "boxes_" + deterministicTestID(t)

	exec := func(stmt string) error {
		ctx, cancel := context.WithTimeout(context.Background(),
			30*time.Second)
		defer cancel()

		db, err := sql.Open("pgx", base)
		if err != nil {
			return err
		}
		defer db.Close()

		_, err = db.ExecContext(ctx, stmt)
		return err
	}

	err := exec(fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err, "create schema %s", schema)
	t.Cleanup(func() {
		_ = exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE",
			schema))
	})

	dsn, err := withSearchPath(base, schema)
	require.NoError(t, err)

	return dsn
}

// NewPostgresDB returns a connection limited to a fresh schema.
func NewPostgresDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", NewPostgresDSN(t))
	require.NoError(t, err, "open postgres")
	db.SetMaxOpenConns(5)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// withSearchPath adds a search_path runtime parameter to a URL style DSN.
func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}

	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
