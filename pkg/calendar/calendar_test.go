package calendar

import (
	"testing"
	"time"
)

func TestGregorianKnownDates(t *testing.T) {
	cases := []struct {
		d  Date
		jd int
	}{
		{Date{1970, 1, 1}, 2440588},
		{Date{2000, 1, 1}, 2451545},
		{Date{2024, 3, 20}, 2460390},
		{Date{2024, 2, 29}, 2460370},
		{Date{1582, 10, 15}, 2299161},
	}
	for _, c := range cases {
		if got := Gregorian.ToJd(c.d); got != c.jd {
			t.Errorf("ToJd(%s) = %d, want %d", c.d, got, c.jd)
		}
		if got := Gregorian.JdTo(c.jd); got != c.d {
			t.Errorf("JdTo(%d) = %s, want %s", c.jd, got, c.d)
		}
	}
}

func TestJalaliAnchor(t *testing.T) {
	// 1 Farvardin 1403 is the 2024 spring equinox day, 2024-03-20.
	d := Date{1403, 1, 1}
	jd := Jalali.ToJd(d)
	if jd != 2460390 {
		t.Fatalf("ToJd(%s) = %d, want 2460390", d, jd)
	}
	if g := Gregorian.JdTo(jd); (g != Date{2024, 3, 20}) {
		t.Errorf("gregorian equivalent = %s, want 2024/03/20", g)
	}
	if back := Jalali.JdTo(jd); back != d {
		t.Errorf("JdTo round trip = %s, want %s", back, d)
	}
}

func TestJulianOffset(t *testing.T) {
	// The Julian calendar runs 13 days behind Gregorian throughout the
	// 20th and 21st centuries.
	jd := Gregorian.ToJd(Date{2024, 3, 20})
	if got := Julian.JdTo(jd); (got != Date{2024, 3, 7}) {
		t.Errorf("Julian.JdTo = %s, want 2024/03/07", got)
	}
}

func TestISOWeekKnownDates(t *testing.T) {
	cases := []struct {
		greg Date
		iso  Date
	}{
		// 2020-01-01 is a Wednesday of ISO week 1.
		{Date{2020, 1, 1}, Date{2020, 1, 3}},
		// 2017-01-01 is a Sunday belonging to ISO 2016-W52.
		{Date{2017, 1, 1}, Date{2016, 52, 7}},
		// 2021-01-04 is the Monday starting ISO 2021-W01.
		{Date{2021, 1, 4}, Date{2021, 1, 1}},
	}
	for _, c := range cases {
		jd := Gregorian.ToJd(c.greg)
		if got := ISOWeek.JdTo(jd); got != c.iso {
			t.Errorf("ISOWeek.JdTo(%s) = %s, want %s", c.greg, got, c.iso)
		}
		if got := ISOWeek.ToJd(c.iso); got != jd {
			t.Errorf("ISOWeek.ToJd(%s) = %d, want %d", c.iso, got, jd)
		}
	}
}

func TestRoundTripAllSystems(t *testing.T) {
	// Every day over a span wide enough to cross leap years and century
	// boundaries must round-trip exactly in every system.
	start := Gregorian.ToJd(Date{1895, 1, 1})
	end := Gregorian.ToJd(Date{2105, 1, 1})
	step := 17 // prime step keeps the test fast while hitting every weekday and month
	for _, sys := range Systems() {
		for jd := start; jd < end; jd += step {
			d := sys.JdTo(jd)
			if back := sys.ToJd(d); back != jd {
				t.Fatalf("%s: jd %d -> %s -> %d", sys.Name(), jd, d, back)
			}
			if err := Validate(sys, d); err != nil {
				t.Fatalf("%s: JdTo(%d) produced invalid date %s: %v", sys.Name(), jd, d, err)
			}
		}
	}
}

func TestConsecutiveDaysConsecutiveJd(t *testing.T) {
	for _, sys := range Systems() {
		jd := sys.ToJd(Date{2024, 1, 1})
		prev := jd
		for i := 1; i < 800; i++ {
			d := sys.JdTo(jd + i)
			got := sys.ToJd(d)
			if got != prev+1 {
				t.Fatalf("%s: day after jd %d maps to %d", sys.Name(), prev, got)
			}
			prev = got
		}
	}
}

func TestGregorianLeap(t *testing.T) {
	cases := map[int]bool{
		1900: false, 2000: true, 2023: false, 2024: true, 2100: false,
	}
	for y, want := range cases {
		if got := Gregorian.IsLeap(y); got != want {
			t.Errorf("IsLeap(%d) = %v, want %v", y, got, want)
		}
	}
	if got := Gregorian.MonthLen(2024, 2); got != 29 {
		t.Errorf("MonthLen(2024, 2) = %d, want 29", got)
	}
	if got := Gregorian.MonthLen(2023, 2); got != 28 {
		t.Errorf("MonthLen(2023, 2) = %d, want 28", got)
	}
}

func TestJulianLeap(t *testing.T) {
	// Unlike Gregorian, every 4th year is leap, century or not.
	if !Julian.IsLeap(1900) {
		t.Error("Julian 1900 should be leap")
	}
	if Julian.IsLeap(1901) {
		t.Error("Julian 1901 should not be leap")
	}
}

func TestISOWeekYearLengths(t *testing.T) {
	// 2020 and 2015 are long ISO years (53 weeks); 2021 is short.
	cases := map[int]int{2015: 53, 2020: 53, 2021: 52, 2022: 52}
	for y, want := range cases {
		if got := ISOWeek.MonthsInYear(y); got != want {
			t.Errorf("MonthsInYear(%d) = %d, want %d", y, got, want)
		}
	}
	if got := ISOWeek.MonthLen(2020, 1); got != 7 {
		t.Errorf("ISO week length = %d, want 7", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Gregorian, Date{2024, 2, 29}); err != nil {
		t.Errorf("2024/02/29 should be valid: %v", err)
	}
	if err := Validate(Gregorian, Date{2023, 2, 29}); err == nil {
		t.Error("2023/02/29 should be invalid")
	}
	if err := Validate(Gregorian, Date{2023, 13, 1}); err == nil {
		t.Error("month 13 should be invalid")
	}
	if err := Validate(ISOWeek, Date{2021, 53, 1}); err == nil {
		t.Error("ISO 2021-W53 should be invalid")
	}
}

func TestConvert(t *testing.T) {
	got := Convert(Date{2024, 3, 20}, Gregorian, Jalali)
	if (got != Date{1403, 1, 1}) {
		t.Errorf("Convert = %s, want 1403/01/01", got)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
	}{
		{"2024/03/20", Date{2024, 3, 20}},
		{"2024-3-20", Date{2024, 3, 20}},
	}
	for _, c := range cases {
		got, err := ParseDate(c.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseDate(%q) = %s, want %s", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", "2024/03", "a/b/c", "2024/03/20/5"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestJdWeekDay(t *testing.T) {
	// 2024-03-20 is a Wednesday.
	jd := Gregorian.ToJd(Date{2024, 3, 20})
	if got := JdWeekDay(jd); got != 3 {
		t.Errorf("JdWeekDay = %d, want 3", got)
	}
	// Week numbers change between Saturday and Sunday.
	sat := Gregorian.ToJd(Date{2024, 3, 23})
	sun := sat + 1
	if JdWeekDay(sat) != 6 || JdWeekDay(sun) != 0 {
		t.Fatalf("weekday anchors wrong: %d %d", JdWeekDay(sat), JdWeekDay(sun))
	}
	if AbsWeekNumber(sat) == AbsWeekNumber(sun) {
		t.Error("Saturday and following Sunday must be in different weeks")
	}
	if AbsWeekNumber(sun) != AbsWeekNumber(sun+6) {
		t.Error("Sunday through Saturday must share a week number")
	}
}

func TestJdEpochRoundTrip(t *testing.T) {
	jd := Gregorian.ToJd(Date{2024, 3, 20})
	if got := JdToEpoch(jd, time.UTC); got != 1710892800 {
		t.Errorf("JdToEpoch = %d, want 1710892800", got)
	}
	if got := EpochToJd(1710892800, time.UTC); got != jd {
		t.Errorf("EpochToJd = %d, want %d", got, jd)
	}
	// A second before midnight still belongs to the previous day.
	if got := EpochToJd(1710892799, time.UTC); got != jd-1 {
		t.Errorf("EpochToJd(midnight-1) = %d, want %d", got, jd-1)
	}

	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	for _, probe := range []int{jd, jd + 100, jd + 200} {
		if got := EpochToJd(JdToEpoch(probe, loc), loc); got != probe {
			t.Errorf("zone round trip: jd %d -> %d", probe, got)
		}
	}
}
