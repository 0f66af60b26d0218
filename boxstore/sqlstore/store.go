// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sqlstore implements the box stores on a database/sql connection to
// SQLite or PostgreSQL. The schema is created when the store is opened and
// every write is a single upsert statement.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"

	// Register the pgx driver under name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	// Register SQLite driver under name "sqlite".
	_ "modernc.org/sqlite"
)

// Store is a database/sql backed implementation of boxstore.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// A compile-time assertion to ensure that Store implements the
// boxstore.Store interface.
var _ boxstore.Store = (*Store)(nil)

// Open connects to dsn with the driver of dialect and prepares the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	// SQLite allows one writer at a time.
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}

	s, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an open database and creates the store tables when missing.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	for _, stmt := range dialect.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	log.Debugf("Opened %s box store", dialect)

	return &Store{db: db, dialect: dialect, now: time.Now}, nil
}

func receiptArgs(key boxstore.ReceiptKey) []any {
	return []any{
		key.ServerID, key.ContainerID, int64(key.Type), key.OwnerID,
		key.Number,
	}
}

// ReceiptExists implements boxstore.ReceiptStore.
func (s *Store) ReceiptExists(ctx context.Context,
	key boxstore.ReceiptKey) (bool, error) {

	if err := ctx.Err(); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx, receiptExistsSQL,
		receiptArgs(key)...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("receipt exists %v: %w", key, err)
	}

	return true, nil
}

// LoadReceipt implements boxstore.ReceiptStore.
func (s *Store) LoadReceipt(ctx context.Context,
	key boxstore.ReceiptKey) ([]byte, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, receiptLoadSQL,
		receiptArgs(key)...).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("receipt %v: %w", key,
			boxstore.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("load receipt %v: %w", key, err)
	}

	return payload, nil
}

// SaveReceipt implements boxstore.ReceiptStore.
func (s *Store) SaveReceipt(ctx context.Context, key boxstore.ReceiptKey,
	b []byte) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	args := append(receiptArgs(key), b, s.now().UnixNano())
	if _, err := s.db.ExecContext(ctx, receiptSaveSQL, args...); err != nil {
		return fmt.Errorf("save receipt %v: %w", key, err)
	}

	return nil
}

// DeleteReceipt implements boxstore.ReceiptStore.
func (s *Store) DeleteReceipt(ctx context.Context,
	key boxstore.ReceiptKey) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, receiptDeleteSQL, receiptArgs(key)...)
	if err != nil {
		return fmt.Errorf("delete receipt %v: %w", key, err)
	}

	return nil
}

// LoadBox implements boxstore.BlobStore.
func (s *Store) LoadBox(ctx context.Context, key boxstore.Key) ([]byte,
	error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, blobLoadSQL, key.ServerID,
		key.ContainerID, int64(key.Type)).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("box %v: %w", key, boxstore.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("load box %v: %w", key, err)
	}

	return payload, nil
}

// SaveBox implements boxstore.BlobStore.
func (s *Store) SaveBox(ctx context.Context, key boxstore.Key,
	b []byte) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, blobSaveSQL, key.ServerID,
		key.ContainerID, int64(key.Type), b, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("save box %v: %w", key, err)
	}

	return nil
}

// LookupAccount implements boxstore.AccountLookup.
func (s *Store) LookupAccount(ctx context.Context, accountID,
	serverID string) (fn.Option[boxstore.AccountSummary], error) {

	none := fn.None[boxstore.AccountSummary]()
	if err := ctx.Err(); err != nil {
		return none, err
	}

	var (
		owner   string
		balance int64
	)
	err := s.db.QueryRowContext(ctx, accountLoadSQL, serverID,
		accountID).Scan(&owner, &balance)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return none, nil
	case err != nil:
		return none, fmt.Errorf("lookup account %s: %w", accountID, err)
	}

	return fn.Some(boxstore.AccountSummary{
		AccountID: accountID,
		ServerID:  serverID,
		OwnerID:   owner,
		Balance:   txdata.Amount(balance),
	}), nil
}

// PutAccount records acct, replacing any previous summary.
func (s *Store) PutAccount(ctx context.Context,
	acct boxstore.AccountSummary) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, accountSaveSQL, acct.ServerID,
		acct.AccountID, acct.OwnerID, int64(acct.Balance))
	if err != nil {
		return fmt.Errorf("put account %s: %w", acct.AccountID, err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
