// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqlstore

import "fmt"

// Dialect selects the SQL flavour of a database.
type Dialect uint8

const (
	// SQLite is the modernc.org/sqlite driver, registered as "sqlite".
	SQLite Dialect = iota

	// Postgres is the pgx stdlib driver, registered as "pgx".
	Postgres
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", uint8(d))
	}
}

// ParseDialect maps a backend name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unknown sql dialect %q", name)
	}
}

// DriverName returns the database/sql driver name of the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// blobType is the column type used for opaque byte values.
func (d Dialect) blobType() string {
	if d == Postgres {
		return "BYTEA"
	}
	return "BLOB"
}

// schema returns the statements creating the store tables.
func (d Dialect) schema() []string {
	blob := d.blobType()

	return []string{
		`CREATE TABLE IF NOT EXISTS box_receipts (
			server_id TEXT NOT NULL,
			container_id TEXT NOT NULL,
			box_type INTEGER NOT NULL,
			owner_id TEXT NOT NULL,
			number BIGINT NOT NULL,
			payload ` + blob + ` NOT NULL,
			saved_at BIGINT NOT NULL,
			PRIMARY KEY (server_id, container_id, box_type, owner_id,
				number)
		);`,
		`CREATE TABLE IF NOT EXISTS box_blobs (
			server_id TEXT NOT NULL,
			container_id TEXT NOT NULL,
			box_type INTEGER NOT NULL,
			payload ` + blob + ` NOT NULL,
			saved_at BIGINT NOT NULL,
			PRIMARY KEY (server_id, container_id, box_type)
		);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			server_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			balance BIGINT NOT NULL,
			PRIMARY KEY (server_id, account_id)
		);`,
	}
}

// Statements shared by both dialects. Both drivers accept numbered
// placeholders.
const (
	receiptExistsSQL = `SELECT 1 FROM box_receipts
		WHERE server_id = $1 AND container_id = $2 AND box_type = $3
		AND owner_id = $4 AND number = $5`

	receiptLoadSQL = `SELECT payload FROM box_receipts
		WHERE server_id = $1 AND container_id = $2 AND box_type = $3
		AND owner_id = $4 AND number = $5`

	receiptSaveSQL = `INSERT INTO box_receipts (server_id, container_id,
		box_type, owner_id, number, payload, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (server_id, container_id, box_type, owner_id, number)
		DO UPDATE SET payload = excluded.payload,
			saved_at = excluded.saved_at`

	receiptDeleteSQL = `DELETE FROM box_receipts
		WHERE server_id = $1 AND container_id = $2 AND box_type = $3
		AND owner_id = $4 AND number = $5`

	blobLoadSQL = `SELECT payload FROM box_blobs
		WHERE server_id = $1 AND container_id = $2 AND box_type = $3`

	blobSaveSQL = `INSERT INTO box_blobs (server_id, container_id,
		box_type, payload, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (server_id, container_id, box_type)
		DO UPDATE SET payload = excluded.payload,
			saved_at = excluded.saved_at`

	accountLoadSQL = `SELECT owner_id, balance FROM accounts
		WHERE server_id = $1 AND account_id = $2`

	accountSaveSQL = `INSERT INTO accounts (server_id, account_id,
		owner_id, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (server_id, account_id)
		DO UPDATE SET owner_id = excluded.owner_id,
			balance = excluded.balance`
)
