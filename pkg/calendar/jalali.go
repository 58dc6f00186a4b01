package calendar

// Jalali is the arithmetic Persian calendar using the 2820-year cycle
// (Birashk). It deviates from the astronomical calendar in a handful of
// years per millennium but is exactly self-consistent, which is what the
// engine needs.
var Jalali System = &jalaliSystem{}

func init() {
	Register(Jalali)
}

// jalaliEpoch is the Julian Day of 1 Farvardin 1.
const jalaliEpoch = 1948321

type jalaliSystem struct{}

func (jalaliSystem) Name() string { return "jalali" }
func (jalaliSystem) Desc() string { return "Jalali" }

func (jalaliSystem) IsLeap(year int) bool {
	base := year - 474
	if year < 0 {
		base = year - 473
	}
	return floorMod((floorMod(base, 2820)+474+38)*682, 2816) < 682
}

func (s jalaliSystem) MonthLen(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case s.IsLeap(year):
		return 30
	default:
		return 29
	}
}

func (jalaliSystem) MonthsInYear(int) int { return 12 }

func (jalaliSystem) ToJd(d Date) int {
	base := d.Year - 474
	if d.Year < 0 {
		base = d.Year - 473
	}
	epyear := 474 + floorMod(base, 2820)
	md := (d.Month - 1) * 31
	if d.Month > 7 {
		md = (d.Month-1)*30 + 6
	}
	return d.Day + md +
		(epyear*682-110)/2816 +
		(epyear-1)*365 +
		floorDiv(base, 2820)*1029983 +
		jalaliEpoch - 1
}

func (s jalaliSystem) JdTo(jd int) Date {
	depoch := jd - s.ToJd(Date{475, 1, 1})
	cycle := floorDiv(depoch, 1029983)
	cyear := floorMod(depoch, 1029983)
	ycycle := 2820
	if cyear != 1029982 {
		aux1 := cyear / 366
		aux2 := cyear % 366
		ycycle = (2134*aux1+2816*aux2+2815)/1028522 + aux1 + 1
	}
	year := ycycle + 2820*cycle + 474
	if year <= 0 {
		year--
	}
	yday := jd - s.ToJd(Date{year, 1, 1}) + 1
	var month int
	if yday <= 186 {
		month = (yday + 30) / 31
	} else {
		month = (yday + 23) / 30
	}
	day := jd - s.ToJd(Date{year, month, 1}) + 1
	return Date{year, month, day}
}
