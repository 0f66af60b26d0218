// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether the named file or directory exists.
func FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ExpandPath expands environment variables and a leading ~ in path, then
// cleans the result. homeDir replaces the ~.
func ExpandPath(path, homeDir string) string {
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: os.ExpandEnv does not expand Windows cmd.exe-style
	// %VARIABLE%, but POSIX-style $VARIABLE works everywhere.
	return filepath.Clean(os.ExpandEnv(path))
}
