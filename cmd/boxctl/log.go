// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/btcsuite/btclog"
	"github.com/btcsuite/otledger/boxstore/bdbstore"
	"github.com/btcsuite/otledger/boxstore/cachestore"
	"github.com/btcsuite/otledger/boxstore/ldbstore"
	"github.com/btcsuite/otledger/boxstore/sqlstore"
	"github.com/btcsuite/otledger/build"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/otbox"
	"github.com/btcsuite/otledger/statement"
)

// logWriter is the backend every subsystem logger of the binary writes to.
var logWriter = build.NewRotatingLogWriter()

// log is the logger of the binary itself.
var log btclog.Logger

func init() {
	log = build.NewSubLogger("BCTL", logWriter.GenSubLogger)

	otbox.UseLogger(build.NewSubLogger("BOX", logWriter.GenSubLogger))
	statement.UseLogger(build.NewSubLogger("STMT", logWriter.GenSubLogger))
	hashsign.UseLogger(build.NewSubLogger("HSGN", logWriter.GenSubLogger))
	bdbstore.UseLogger(build.NewSubLogger("BDBS", logWriter.GenSubLogger))
	ldbstore.UseLogger(build.NewSubLogger("LDBS", logWriter.GenSubLogger))
	sqlstore.UseLogger(build.NewSubLogger("SQLS", logWriter.GenSubLogger))
	cachestore.UseLogger(build.NewSubLogger("RCCH", logWriter.GenSubLogger))
}
