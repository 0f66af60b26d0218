// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestRotatingLogWriterLevels checks that sub loggers are registered and that
// their levels can be changed individually and in bulk.
func TestRotatingLogWriterLevels(t *testing.T) {
	t.Parallel()

	w := NewRotatingLogWriter()
	boxLog := w.GenSubLogger("BOX")
	stmtLog := w.GenSubLogger("STMT")

	require.Equal(t, []string{"BOX", "STMT"}, w.SupportedSubsystems())

	w.SetLogLevels("warn")
	require.Equal(t, btclog.LevelWarn, boxLog.Level())
	require.Equal(t, btclog.LevelWarn, stmtLog.Level())

	w.SetLogLevel("BOX", "trace")
	require.Equal(t, btclog.LevelTrace, boxLog.Level())
	require.Equal(t, btclog.LevelWarn, stmtLog.Level())

	// Unknown subsystems are ignored.
	w.SetLogLevel("NOPE", "debug")
	require.Len(t, w.SupportedSubsystems(), 2)
}

// TestRotatingLogWriterFile checks that log lines reach the rotated file once
// the rotator is initialised.
func TestRotatingLogWriterFile(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "logs", "boxctl.log")

	w := NewRotatingLogWriter()
	require.NoError(t, w.InitLogRotator(logFile, 10, 3))

	logger := w.GenSubLogger("BOX")
	logger.SetLevel(btclog.LevelInfo)
	logger.Infof("box %s loaded", "inbox")

	require.NoError(t, w.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(content), "box inbox loaded")
}
