package calendar

// ISOWeek is the ISO 8601 week calendar. It is fitted into the (year, month,
// day) interface the usual way: "month" is the ISO week number (1..52/53) and
// "day" is the ISO weekday (1=Monday .. 7=Sunday).
var ISOWeek System = &isoWeekSystem{}

func init() {
	Register(ISOWeek)
}

type isoWeekSystem struct{}

func (isoWeekSystem) Name() string { return "iso" }
func (isoWeekSystem) Desc() string { return "ISO Week" }

// isoWeeks returns the number of ISO weeks in a year: 52, or 53 for long
// years (years where Jan 1 or Dec 31 of the Gregorian year is a Thursday).
func isoWeeks(year int) int {
	p := func(y int) int {
		return floorMod(y+floorDiv(y, 4)-floorDiv(y, 100)+floorDiv(y, 400), 7)
	}
	if p(year) == 4 || p(year-1) == 3 {
		return 53
	}
	return 52
}

func (isoWeekSystem) IsLeap(year int) bool {
	return isoWeeks(year) == 53
}

func (isoWeekSystem) MonthLen(int, int) int { return 7 }

func (isoWeekSystem) MonthsInYear(year int) int { return isoWeeks(year) }

func (isoWeekSystem) ToJd(d Date) int {
	// Week 1 is the week containing Gregorian January 4. Julian Days that are
	// multiples of 7 fall on Mondays.
	jan4 := gregToJd(d.Year, 1, 4)
	week1Monday := jan4 - floorMod(jan4, 7)
	return week1Monday + 7*(d.Month-1) + (d.Day - 1)
}

func (s isoWeekSystem) JdTo(jd int) Date {
	year, _, _ := jdToGreg(jd)
	if jd >= s.ToJd(Date{year + 1, 1, 1}) {
		year++
	} else if jd < s.ToJd(Date{year, 1, 1}) {
		year--
	}
	week := (jd-s.ToJd(Date{year, 1, 1}))/7 + 1
	dow := floorMod(jd, 7) + 1
	return Date{year, week, dow}
}
