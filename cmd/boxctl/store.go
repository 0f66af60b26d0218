// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/boxstore/bdbstore"
	"github.com/btcsuite/otledger/boxstore/cachestore"
	"github.com/btcsuite/otledger/boxstore/ldbstore"
	"github.com/btcsuite/otledger/boxstore/sqlstore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/internal/cfgutil"
	"github.com/btcsuite/otledger/otbox"
)

// openStore opens the configured backend, creating file based databases on
// first use.
func openStore(ctx context.Context, cfg *config) (boxstore.Store, error) {
	if cfg.dbPath != "" {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, err
		}
	}

	var (
		store boxstore.Store
		err   error
	)
	switch cfg.DBBackend {
	case "bdb":
		store, err = openBolt(cfg)

	case "leveldb":
		var s *ldbstore.Store
		if s, err = ldbstore.Open(cfg.dbPath); err == nil {
			store = s
		}

	case "sqlite", "postgres":
		dialect, dsn := sqlstore.SQLite, cfg.dbPath
		if cfg.DBBackend == "postgres" {
			dialect, dsn = sqlstore.Postgres, cfg.DBDSN
		}

		var s *sqlstore.Store
		if s, err = sqlstore.Open(ctx, dialect, dsn); err == nil {
			store = s
		}

	default:
		err = fmt.Errorf("unknown database backend %q", cfg.DBBackend)
	}
	if err != nil {
		return nil, err
	}

	return store, nil
}

func openBolt(cfg *config) (boxstore.Store, error) {
	exists, err := cfgutil.FileExists(cfg.dbPath)
	if err != nil {
		return nil, err
	}

	open := bdbstore.Open
	if !exists {
		log.Infof("Creating box database %s", cfg.dbPath)
		open = bdbstore.Create
	}

	s, err := open(cfg.dbPath, cfg.DBTimeout)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// boxConfig returns the box configuration over store, reading receipts
// through a cache unless it is disabled.
func boxConfig(cfg *config, store boxstore.Store) (otbox.Config,
	func(), error) {

	boxCfg := otbox.Config{
		Receipts: store,
		Hasher:   hashsign.New(cfg.digest),
	}

	if cfg.signPath != "" {
		key, err := hashsign.LoadPrivateKey(cfg.signPath)
		if err != nil {
			return otbox.Config{}, nil, err
		}
		boxCfg.SigningKey = key
	}

	report := func() {}
	if cfg.CacheSize > 0 {
		cache := cachestore.New(store, cfg.CacheSize)
		boxCfg.Receipts = cache
		report = func() {
			hits, misses := cache.Stats()
			log.Debugf("Receipt cache: %d hits, %d misses, %d "+
				"entries", hits, misses, cache.Len())
		}
	}

	return boxCfg, report, nil
}
