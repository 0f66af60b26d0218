// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txdata

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumList encodes transaction numbers as comma separated decimals.
func FormatNumList(numbers []int64) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, ",")
}

// ParseNumList reverses FormatNumList. The empty string is the empty list.
func ParseNumList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	numbers := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("numlist: %w", err)
		}
		numbers[i] = n
	}

	return numbers, nil
}
