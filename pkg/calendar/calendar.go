// Package calendar implements the calendar systems known to eventcal and the
// conversion between their civil dates and the linear Julian Day count used
// as the pivot by the rest of the engine.
//
// A Julian Day (jd) is an integer count of days since the Julian Day epoch.
// Every other package deals only in jd integers or in Date values obtained
// through this package; no calendar-system arithmetic leaks out of here.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDate is returned (wrapped) when a (year, month, day) tuple is not
// a valid date in the given calendar system.
var ErrInvalidDate = errors.New("invalid date")

// Date is a civil date in some calendar system. The system itself is implicit;
// a Date is only meaningful together with the System that produced it.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d Date) String() string {
	return fmt.Sprintf("%.4d/%.2d/%.2d", d.Year, d.Month, d.Day)
}

// System is one calendar system (Gregorian, Julian, ...).
type System interface {
	// Name returns the stable identifier used in persisted data.
	Name() string

	// Desc returns a human-readable description.
	Desc() string

	// ToJd converts a civil date to a Julian Day. The date is assumed valid;
	// use Validate first for untrusted input.
	ToJd(d Date) int

	// JdTo converts a Julian Day back to a civil date.
	JdTo(jd int) Date

	// MonthLen returns the number of days in the given month.
	MonthLen(year, month int) int

	// MonthsInYear returns the number of months (ISO week years have 52 or 53).
	MonthsInYear(year int) int

	// IsLeap reports whether the year is a leap year in this system.
	IsLeap(year int) bool
}

var (
	systems       []System
	systemsByName = map[string]System{}
)

// Register adds a calendar system to the registry. All systems are registered
// by this package's own init functions; a duplicate name is a programming
// error.
func Register(s System) {
	if _, dup := systemsByName[s.Name()]; dup {
		panic("calendar: duplicate system " + s.Name())
	}
	systemsByName[s.Name()] = s
	systems = append(systems, s)
}

// ByName looks up a registered calendar system.
func ByName(name string) (System, bool) {
	s, ok := systemsByName[name]
	return s, ok
}

// Systems returns all registered systems in registration order.
func Systems() []System {
	return systems
}

// Validate checks that d is a real date in system s.
func Validate(s System, d Date) error {
	if d.Month < 1 || d.Month > s.MonthsInYear(d.Year) {
		return fmt.Errorf("%w: %s month %d out of range for %s", ErrInvalidDate, s.Name(), d.Month, d)
	}
	if d.Day < 1 || d.Day > s.MonthLen(d.Year, d.Month) {
		return fmt.Errorf("%w: %s day %d out of range for %s", ErrInvalidDate, s.Name(), d.Day, d)
	}
	return nil
}

// ParseDate parses "Y/M/D" or "Y-M-D". It does not validate against any
// calendar system.
func ParseDate(s string) (Date, error) {
	sep := "/"
	if !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	return Date{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// Convert converts a date from one system to another via the Julian Day pivot.
func Convert(d Date, from, to System) Date {
	return to.JdTo(from.ToJd(d))
}

// floorDiv is integer division rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// floorMod is the remainder matching floorDiv; the result has b's sign.
func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
