package http

import (
	"time"

	xutil "KiranaCash/pkg/util"
)

// ParseDay parses a YYYY-MM-DD calendar day.
func ParseDay(s string) (time.Time, bool) { return xutil.ParseDay(s) }

// ParseAmount parses a finite non-negative money amount.
func ParseAmount(s string) (float64, bool) { return xutil.ParseAmount(s) }
