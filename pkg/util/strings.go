package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// SplitPair splits a six-letter FX pair like "EURUSD" into base and
// quote currencies.
func SplitPair(pair string) (base, quote string, err error) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if len(p) != 6 {
		return "", "", fmt.Errorf("pair %q must be six letters", pair)
	}
	return p[:3], p[3:], nil
}
