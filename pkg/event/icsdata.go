package event

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/djwarf/eventcal/pkg/calendar"
)

// IcsPair is one iCalendar content line: property name and raw value.
type IcsPair struct {
	Name  string
	Value string
}

const icsTimeLayout = "20060102T150405Z"

var icsWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

func icsEpoch(t int64) string {
	return time.Unix(t, 0).UTC().Format(icsTimeLayout)
}

func icsJd(jd int, loc *time.Location) string {
	return icsEpoch(calendar.JdToEpoch(jd, loc))
}

// singleValue returns the list's sole value, if the list pins exactly one.
func singleValue(l NumList) (int, bool) {
	if len(l) == 1 && l[0].Start == l[0].End {
		return l[0].Start, true
	}
	return 0, false
}

// IcsData renders the event as iCalendar property pairs when its rule set
// maps onto a plain DTSTART/DTEND/RRULE form. Recurring forms that carry no
// start of their own anchor DTSTART on the first match at or after anchorJd,
// so the same event always exports the same bytes. A nil result means the
// rule set is too rich for RRULE and the exporter must expand occurrences
// instead.
func (e *Event) IcsData(anchorJd int) []IcsPair {
	switch e.Type {
	case TypeTask:
		return e.icsTask()
	case TypeAllDayTask:
		return e.icsTask()
	case TypeYearly:
		return e.icsYearly(anchorJd)
	case TypeMonthly:
		return e.icsMonthly(anchorJd)
	case TypeWeekly:
		return e.icsWeekly()
	}
	return nil
}

func (e *Event) icsTask() []IcsPair {
	sr, ok := e.GetRule(RuleStart).(*DateTimeRule)
	if !ok {
		return nil
	}
	start := sr.Epoch(e)
	end := start
	if er, ok := e.GetRule(RuleEnd).(*DateTimeRule); ok {
		end = er.Epoch(e)
	} else if dr, ok := e.GetRule(RuleDuration).(*DurationRule); ok {
		end = start + dr.Seconds()
	}
	if end < start {
		end = start
	}
	return []IcsPair{
		{"DTSTART", icsEpoch(start)},
		{"DTEND", icsEpoch(end)},
	}
}

// icsYearly maps a Gregorian month+day pin to FREQ=YEARLY. Other calendar
// systems have no RRULE equivalent.
func (e *Event) icsYearly(anchorJd int) []IcsPair {
	if e.CalType != calendar.Gregorian.Name() {
		return nil
	}
	mr, ok := e.GetRule(RuleMonth).(*MonthRule)
	if !ok || mr.IsExclude() {
		return nil
	}
	dr, ok := e.GetRule(RuleDay).(*DayOfMonthRule)
	if !ok || dr.IsExclude() {
		return nil
	}
	month, ok := singleValue(mr.Values)
	if !ok {
		return nil
	}
	day, ok := singleValue(dr.Values)
	if !ok {
		return nil
	}
	var jd int
	if sr, ok := e.GetRule(RuleStart).(*DateTimeRule); ok {
		jd = calendar.Gregorian.ToJd(calendar.Date{Year: sr.Date.Year, Month: month, Day: day})
	} else {
		d := calendar.Gregorian.JdTo(anchorJd)
		jd = calendar.Gregorian.ToJd(calendar.Date{Year: d.Year, Month: month, Day: day})
		if jd < anchorJd {
			jd = calendar.Gregorian.ToJd(calendar.Date{Year: d.Year + 1, Month: month, Day: day})
		}
	}
	opt := rrule.ROption{
		Freq:       rrule.YEARLY,
		Bymonth:    []int{month},
		Bymonthday: []int{day},
	}
	return []IcsPair{
		{"DTSTART", icsJd(jd, e.Location())},
		{"RRULE", opt.RRuleString()},
	}
}

func (e *Event) icsMonthly(anchorJd int) []IcsPair {
	if e.CalType != calendar.Gregorian.Name() {
		return nil
	}
	dr, ok := e.GetRule(RuleDay).(*DayOfMonthRule)
	if !ok || dr.IsExclude() {
		return nil
	}
	day, ok := singleValue(dr.Values)
	if !ok {
		return nil
	}
	d := calendar.Gregorian.JdTo(anchorJd)
	year, month := d.Year, d.Month
	if day < d.Day {
		month++
	}
	// Skip months too short for the pinned day, as the RRULE itself will.
	for {
		if month > 12 {
			month, year = 1, year+1
		}
		if day <= calendar.Gregorian.MonthLen(year, month) {
			break
		}
		month++
	}
	opt := rrule.ROption{
		Freq:       rrule.MONTHLY,
		Bymonthday: []int{day},
	}
	jd := calendar.Gregorian.ToJd(calendar.Date{Year: year, Month: month, Day: day})
	return []IcsPair{
		{"DTSTART", icsJd(jd, e.Location())},
		{"RRULE", opt.RRuleString()},
	}
}

func (e *Event) icsWeekly() []IcsPair {
	sr, ok := e.GetRule(RuleStart).(*DateTimeRule)
	if !ok {
		return nil
	}
	cw, ok := e.GetRule(RuleCycleWeeks).(*CycleWeeksRule)
	if !ok {
		return nil
	}
	startJd := sr.Jd(e)
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  cw.Weeks,
		Byweekday: []rrule.Weekday{icsWeekdays[calendar.JdWeekDay(startJd)]},
	}
	out := []IcsPair{{"DTSTART", icsEpoch(sr.Epoch(e))}}
	if tr, ok := e.GetRule(RuleDayTimeRange).(*DayTimeRangeRule); ok {
		loc := e.Location()
		dayStart := calendar.JdToEpoch(startJd, loc)
		out[0].Value = icsEpoch(dayStart + int64(tr.StartSec))
		out = append(out, IcsPair{"DTEND", icsEpoch(dayStart + int64(tr.EndSec))})
	}
	out = append(out, IcsPair{"RRULE", opt.RRuleString()})
	return out
}
