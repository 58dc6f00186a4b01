package calendar

// Julian is the proleptic Julian calendar.
var Julian System = &julianSystem{}

func init() {
	Register(Julian)
}

type julianSystem struct{}

func (julianSystem) Name() string { return "julian" }
func (julianSystem) Desc() string { return "Julian" }

func (julianSystem) IsLeap(year int) bool {
	return floorMod(year, 4) == 0
}

func (s julianSystem) MonthLen(year, month int) int {
	if month == 2 && s.IsLeap(year) {
		return 29
	}
	return gregMonthLen[month-1]
}

func (julianSystem) MonthsInYear(int) int { return 12 }

func (julianSystem) ToJd(d Date) int {
	a := (14 - d.Month) / 12
	y := d.Year + 4800 - a
	m := d.Month + 12*a - 3
	return d.Day + (153*m+2)/5 + 365*y + y/4 - 32083
}

func (julianSystem) JdTo(jd int) Date {
	c := jd + 32082
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	day := e - (153*m+2)/5 + 1
	month := m + 3 - 12*(m/10)
	year := d - 4800 + m/10
	return Date{year, month, day}
}
