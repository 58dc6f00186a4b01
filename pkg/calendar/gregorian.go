package calendar

// Gregorian is the proleptic Gregorian calendar.
var Gregorian System = &gregorianSystem{}

func init() {
	Register(Gregorian)
}

type gregorianSystem struct{}

func (gregorianSystem) Name() string { return "gregorian" }
func (gregorianSystem) Desc() string { return "Gregorian" }

var gregMonthLen = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func (gregorianSystem) IsLeap(year int) bool {
	return floorMod(year, 4) == 0 && (floorMod(year, 100) != 0 || floorMod(year, 400) == 0)
}

func (s gregorianSystem) MonthLen(year, month int) int {
	if month == 2 && s.IsLeap(year) {
		return 29
	}
	return gregMonthLen[month-1]
}

func (gregorianSystem) MonthsInYear(int) int { return 12 }

func (gregorianSystem) ToJd(d Date) int {
	return gregToJd(d.Year, d.Month, d.Day)
}

func (gregorianSystem) JdTo(jd int) Date {
	y, m, d := jdToGreg(jd)
	return Date{y, m, d}
}

// gregToJd implements the Fliegel-Van Flandern conversion. Valid for all
// years the application can reach (anything above roughly -4700).
func gregToJd(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

func jdToGreg(jd int) (year, month, day int) {
	a := jd + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = 100*b + d - 4800 + m/10
	return
}
