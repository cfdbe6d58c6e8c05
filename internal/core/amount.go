// Package core provides amount parsing for loosely typed input.
//
// Amounts are whole currency units stored as int64. Clients sometimes send
// them as JSON strings or as floats with a zero fraction; both are coerced.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts the textual form of a number to an int64.
//
// Examples:
//
//	ParseAmount("5")    -> 5, nil
//	ParseAmount("-12")  -> -12, nil
//	ParseAmount("5.0")  -> 5, nil
//	ParseAmount("1e3")  -> 1000, nil
//	ParseAmount("5.5")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	if f != math.Trunc(f) {
		return 0, ErrInvalidAmount
	}
	// float64 cannot represent every int64; reject anything outside the exact range
	const limit = 1 << 63
	if f >= limit || f < -limit {
		return 0, ErrInvalidAmount
	}
	return int64(f), nil
}
