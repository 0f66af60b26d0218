//go:build debug && !trace
// +build debug,!trace

package build

// LogLevel specifies the log level for debug builds.
var LogLevel = "debug"
