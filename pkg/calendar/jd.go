package calendar

import "time"

// unixEpochJd is the Julian Day of 1970-01-01 (Gregorian).
const unixEpochJd = 2440588

// JdWeekDay returns the day of week for a Julian Day, 0=Sunday .. 6=Saturday.
func JdWeekDay(jd int) int {
	return floorMod(jd+1, 7)
}

// AbsWeekNumber returns the absolute week number of a Julian Day, with weeks
// starting on Sunday. Two days share a week number iff they fall in the same
// Sunday-to-Saturday week.
func AbsWeekNumber(jd int) int {
	return floorDiv(jd+1, 7)
}

// JdToEpoch returns the epoch seconds of local midnight starting the given
// Julian Day in loc.
func JdToEpoch(jd int, loc *time.Location) int64 {
	if loc == nil || loc == time.UTC {
		return int64(jd-unixEpochJd) * 86400
	}
	y, m, d := jdToGreg(jd)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc).Unix()
}

// EpochToJd returns the Julian Day containing the given epoch second in loc.
func EpochToJd(epoch int64, loc *time.Location) int {
	if loc == nil || loc == time.UTC {
		return int(floorDiv64(epoch, 86400)) + unixEpochJd
	}
	t := time.Unix(epoch, 0).In(loc)
	return gregToJd(t.Year(), int(t.Month()), t.Day())
}

// GetCurrentJd returns today's Julian Day in loc.
func GetCurrentJd(loc *time.Location) int {
	return EpochToJd(time.Now().Unix(), loc)
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
