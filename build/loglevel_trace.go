//go:build trace
// +build trace

package build

// LogLevel specifies the log level for trace builds.
var LogLevel = "trace"
