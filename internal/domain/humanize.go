package domain

import (
	"fmt"
	"strings"
	"time"
)

// HumanDuration renders d as "2 months, 3 days, 4 hours, 5 minutes,
// 6 seconds", omitting zero parts. Months are 30 days.
func HumanDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}

	units := []struct {
		name    string
		seconds int64
	}{
		{"month", UnitMonths.Seconds()},
		{"day", UnitDays.Seconds()},
		{"hour", UnitHours.Seconds()},
		{"minute", UnitMinutes.Seconds()},
	}

	parts := make([]string, 0, 5)
	for _, unit := range units {
		n := secs / unit.seconds
		secs %= unit.seconds
		if n > 0 {
			parts = append(parts, plural(n, unit.name))
		}
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, plural(secs, "second"))
	}

	return strings.Join(parts, ", ")
}

func plural(n int64, name string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, name)
	}
	return fmt.Sprintf("%d %ss", n, name)
}
