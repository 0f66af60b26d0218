// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// RotatingLogWriter is a wrapper around the log rotator that also writes
// every line to stdout. All subsystem loggers of a binary share the single
// backend it owns.
type RotatingLogWriter struct {
	mu sync.Mutex

	backend *btclog.Backend

	// rotator is nil until InitLogRotator is called, in which case only
	// stdout receives log output.
	rotator *rotator.Rotator

	subsystemLoggers map[string]btclog.Logger
}

// NewRotatingLogWriter creates a new rotating log writer that only writes to
// stdout until InitLogRotator is called.
func NewRotatingLogWriter() *RotatingLogWriter {
	w := &RotatingLogWriter{
		subsystemLoggers: make(map[string]btclog.Logger),
	}
	w.backend = btclog.NewBackend(w)
	return w
}

// InitLogRotator initializes the log file rotator to write logs to logFile
// and create roll files in the same directory. It must be called before the
// package-global log rotator variables are used.
func (w *RotatingLogWriter) InitLogRotator(logFile string, maxLogFileSize,
	maxLogFiles int) error {

	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(
		logFile, int64(maxLogFileSize*1024), false, maxLogFiles,
	)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	w.mu.Lock()
	w.rotator = r
	w.mu.Unlock()

	return nil
}

// Write writes the byte slice to both stdout and the log rotator, if it is
// initialised.
func (w *RotatingLogWriter) Write(b []byte) (int, error) {
	os.Stdout.Write(b)

	w.mu.Lock()
	r := w.rotator
	w.mu.Unlock()

	if r != nil {
		r.Write(b)
	}
	return len(b), nil
}

// GenSubLogger creates a new sublogger on the shared backend and registers it
// so its level can later be changed by SetLogLevel.
func (w *RotatingLogWriter) GenSubLogger(tag string) btclog.Logger {
	logger := w.backend.Logger(tag)
	w.RegisterSubLogger(tag, logger)
	return logger
}

// RegisterSubLogger registers a new subsystem logger.
func (w *RotatingLogWriter) RegisterSubLogger(subsystem string,
	logger btclog.Logger) {

	w.mu.Lock()
	w.subsystemLoggers[subsystem] = logger
	w.mu.Unlock()
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored. Uninitialized subsystems are dynamically created as
// needed.
func (w *RotatingLogWriter) SetLogLevel(subsystemID string, logLevel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	logger, ok := w.subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level. It also dynamically creates the subsystem loggers as needed, so it
// can be used to initialize the logging system.
func (w *RotatingLogWriter) SetLogLevels(logLevel string) {
	for _, subsystemID := range w.SupportedSubsystems() {
		w.SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func (w *RotatingLogWriter) SupportedSubsystems() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	subsystems := make([]string, 0, len(w.subsystemLoggers))
	for subsysID := range w.subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	sort.Strings(subsystems)
	return subsystems
}

// Close closes the underlying log rotator if it has been initialized.
func (w *RotatingLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rotator != nil {
		return w.rotator.Close()
	}
	return nil
}
