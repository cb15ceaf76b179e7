package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// GestationUnit is the unit a gestation duration is expressed in. The numeric
// values are the ones the peer uses on the wire.
type GestationUnit uint8

const (
	UnitHours   GestationUnit = 0
	UnitDays    GestationUnit = 1
	UnitWeeks   GestationUnit = 2
	UnitMonths  GestationUnit = 3
	UnitMinutes GestationUnit = 4
)

// displayOrder lists units from shortest to longest.
var displayOrder = []GestationUnit{UnitMinutes, UnitHours, UnitDays, UnitWeeks, UnitMonths}

func GestationUnits() []GestationUnit {
	units := make([]GestationUnit, len(displayOrder))
	copy(units, displayOrder)
	return units
}

func (u GestationUnit) Valid() bool {
	return u <= UnitMinutes
}

// Seconds returns the length of one unit in seconds. A month is approximated
// as 30 days; it is not calendar accurate.
func (u GestationUnit) Seconds() int64 {
	switch u {
	case UnitMinutes:
		return 60
	case UnitHours:
		return 3_600
	case UnitDays:
		return 86_400
	case UnitWeeks:
		return 604_800
	case UnitMonths:
		return 2_592_000
	default:
		return UnitHours.Seconds()
	}
}

func (u GestationUnit) String() string {
	switch u {
	case UnitMinutes:
		return "Minutes"
	case UnitHours:
		return "Hours"
	case UnitDays:
		return "Days"
	case UnitWeeks:
		return "Weeks"
	case UnitMonths:
		return "Months"
	default:
		return fmt.Sprintf("GestationUnit(%d)", uint8(u))
	}
}

// Next returns the following unit in display order, wrapping around.
func (u GestationUnit) Next() GestationUnit {
	for i, candidate := range displayOrder {
		if candidate == u {
			return displayOrder[(i+1)%len(displayOrder)]
		}
	}
	return UnitHours
}

// UnitFromWire converts a raw wire value, falling back to Hours when the value
// is out of range.
func UnitFromWire(raw int) GestationUnit {
	if raw < 0 || raw > int(UnitMinutes) {
		return UnitHours
	}
	return GestationUnit(raw)
}

// ParseGestationUnit accepts a unit name (any case, singular or plural) or its
// wire number.
func ParseGestationUnit(raw string) (GestationUnit, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "min", "mins", "minute", "minutes":
		return UnitMinutes, nil
	case "hour", "hours", "h":
		return UnitHours, nil
	case "day", "days", "d":
		return UnitDays, nil
	case "week", "weeks", "w":
		return UnitWeeks, nil
	case "month", "months":
		return UnitMonths, nil
	}

	n, err := strconv.Atoi(value)
	if err == nil && n >= 0 && n <= int(UnitMinutes) {
		return GestationUnit(n), nil
	}

	return UnitHours, fmt.Errorf("%w: %q", ErrInvalidGestationUnit, raw)
}
