package features

import (
	"time"

	"KiranaCash/internal/domain/models"
)

// DateFeaturesFor derives the calendar attributes of t's local day.
// DayOfWeek is Monday=0 .. Sunday=6.
func DateFeaturesFor(t time.Time) models.DateFeatures {
	dow := (int(t.Weekday()) + 6) % 7
	weekend := 0
	if dow >= 5 {
		weekend = 1
	}
	return models.DateFeatures{
		DayOfWeek:  dow,
		Month:      int(t.Month()),
		DayOfMonth: t.Day(),
		IsWeekend:  weekend,
	}
}
