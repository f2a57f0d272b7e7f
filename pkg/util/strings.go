package util

import (
	"math"
	"strconv"
)

// ParseAmount parses a non-negative finite money amount.
func ParseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
