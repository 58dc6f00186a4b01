package event

import (
	"fmt"

	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// DateTimeRule is the shared implementation of the "start" and "end" rules:
// an absolute date plus a time of day. Start and End act as open-ended
// clamps, not point events; intersecting them with other rules' results is
// what bounds an event to [start, end).
type DateTimeRule struct {
	end     bool
	Date    calendar.Date
	Seconds int // time of day
}

func (r *DateTimeRule) Name() string {
	if r.end {
		return RuleEnd
	}
	return RuleStart
}

func (r *DateTimeRule) Provides() []string { return []string{provideTime} }
func (r *DateTimeRule) Needs() []string    { return nil }

func (r *DateTimeRule) Conflicts() []string {
	if r.end {
		return []string{RuleDate, RuleDuration}
	}
	return []string{RuleDate}
}

// Jd returns the rule's date as a Julian Day in the event's calendar.
func (r *DateTimeRule) Jd(ev *Event) int {
	return ev.CalSys().ToJd(r.Date)
}

// Epoch returns the rule's absolute instant in the event's timezone.
func (r *DateTimeRule) Epoch(ev *Event) int64 {
	return calendar.JdToEpoch(r.Jd(ev), ev.Location()) + int64(r.Seconds)
}

func (r *DateTimeRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	loc := ev.Location()
	winStart := calendar.JdToEpoch(startJd, loc)
	winEnd := calendar.JdToEpoch(endJd, loc)
	my := r.Epoch(ev)
	s := occur.NewIntervalSet(loc)
	if r.end {
		hi := min(winEnd, my)
		if winStart < hi {
			s.Add(winStart, hi)
		}
	} else {
		lo := max(winStart, my)
		if lo < winEnd {
			s.Add(lo, winEnd)
		}
	}
	return s, nil
}

func (r *DateTimeRule) Data() any {
	return map[string]any{
		"date": r.Date.String(),
		"time": formatTimeStr(r.Seconds),
	}
}

func (r *DateTimeRule) SetData(v any) error {
	// Accept both the full {date, time} object and a bare date string.
	if s, err := asString(v); err == nil {
		d, err := parseDateStr(s)
		if err != nil {
			return fmt.Errorf("%s rule: %w", r.Name(), err)
		}
		r.Date = d
		r.Seconds = 0
		return nil
	}
	m, err := asMap(v)
	if err != nil {
		return fmt.Errorf("%s rule: %w", r.Name(), err)
	}
	ds, err := asString(m["date"])
	if err != nil {
		return fmt.Errorf("%s rule date: %w", r.Name(), err)
	}
	d, err := parseDateStr(ds)
	if err != nil {
		return fmt.Errorf("%s rule date: %w", r.Name(), err)
	}
	sec := 0
	if ts, ok := m["time"]; ok {
		tstr, err := asString(ts)
		if err != nil {
			return fmt.Errorf("%s rule time: %w", r.Name(), err)
		}
		sec, err = parseTimeStr(tstr)
		if err != nil {
			return fmt.Errorf("%s rule time: %w", r.Name(), err)
		}
	}
	r.Date = d
	r.Seconds = sec
	return nil
}

func (r *DateTimeRule) ServerString() string {
	return fmt.Sprintf("%s %s", r.Date, formatTimeStr(r.Seconds))
}

// DayTimeRule is a daily repeating instant at a fixed time of day.
type DayTimeRule struct {
	Seconds int
}

func (r *DayTimeRule) Name() string        { return RuleDayTime }
func (r *DayTimeRule) Provides() []string  { return []string{provideTime} }
func (r *DayTimeRule) Needs() []string     { return nil }
func (r *DayTimeRule) Conflicts() []string { return []string{RuleDayTimeRange, RuleCycleLen} }

func (r *DayTimeRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	loc := ev.Location()
	times := make([]int64, 0, max(0, endJd-startJd))
	for jd := startJd; jd < endJd; jd++ {
		times = append(times, calendar.JdToEpoch(jd, loc)+int64(r.Seconds))
	}
	return occur.NewInstantSet(loc, times...), nil
}

func (r *DayTimeRule) Data() any { return formatTimeStr(r.Seconds) }

func (r *DayTimeRule) SetData(v any) error {
	s, err := asString(v)
	if err != nil {
		return fmt.Errorf("dayTime rule: %w", err)
	}
	sec, err := parseTimeStr(s)
	if err != nil {
		return fmt.Errorf("dayTime rule: %w", err)
	}
	r.Seconds = sec
	return nil
}

func (r *DayTimeRule) ServerString() string { return formatTimeStr(r.Seconds) }

// DayTimeRangeRule is a daily repeating interval [dayStart+s0, dayStart+s1).
// An end at or before the start clamps to a zero-width interval; it never
// wraps past midnight.
type DayTimeRangeRule struct {
	StartSec int
	EndSec   int
}

func (r *DayTimeRangeRule) Name() string        { return RuleDayTimeRange }
func (r *DayTimeRangeRule) Provides() []string  { return []string{provideTime} }
func (r *DayTimeRangeRule) Needs() []string     { return nil }
func (r *DayTimeRangeRule) Conflicts() []string { return []string{RuleDayTime, RuleCycleLen} }

func (r *DayTimeRangeRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	loc := ev.Location()
	endSec := r.EndSec
	if endSec <= r.StartSec {
		endSec = r.StartSec
	}
	s := occur.NewIntervalSet(loc)
	for jd := startJd; jd < endJd; jd++ {
		dayStart := calendar.JdToEpoch(jd, loc)
		s.Add(dayStart+int64(r.StartSec), dayStart+int64(endSec))
	}
	return s, nil
}

func (r *DayTimeRangeRule) Data() any {
	return map[string]any{
		"start": formatTimeStr(r.StartSec),
		"end":   formatTimeStr(r.EndSec),
	}
}

func (r *DayTimeRangeRule) SetData(v any) error {
	m, err := asMap(v)
	if err != nil {
		return fmt.Errorf("dayTimeRange rule: %w", err)
	}
	ss, err := asString(m["start"])
	if err != nil {
		return fmt.Errorf("dayTimeRange rule start: %w", err)
	}
	start, err := parseTimeStr(ss)
	if err != nil {
		return fmt.Errorf("dayTimeRange rule start: %w", err)
	}
	es, err := asString(m["end"])
	if err != nil {
		return fmt.Errorf("dayTimeRange rule end: %w", err)
	}
	end, err := parseTimeStr(es)
	if err != nil {
		return fmt.Errorf("dayTimeRange rule end: %w", err)
	}
	r.StartSec = start
	r.EndSec = end
	return nil
}

func (r *DayTimeRangeRule) ServerString() string {
	return fmt.Sprintf("%s %s", formatTimeStr(r.StartSec), formatTimeStr(r.EndSec))
}

// Duration units, in seconds.
const (
	UnitSecond = 1
	UnitMinute = 60
	UnitHour   = 3600
	UnitDay    = 86400
	UnitWeek   = 604800
)

// DurationRule bounds the event to a fixed span after its start rule.
type DurationRule struct {
	Value int64
	Unit  int64
}

func (r *DurationRule) Name() string        { return RuleDuration }
func (r *DurationRule) Provides() []string  { return []string{provideTime} }
func (r *DurationRule) Needs() []string     { return []string{RuleStart} }
func (r *DurationRule) Conflicts() []string { return []string{RuleDate, RuleEnd} }

// Seconds returns the total duration in seconds.
func (r *DurationRule) Seconds() int64 { return r.Value * r.Unit }

func (r *DurationRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sr, err := ev.startRule()
	if err != nil {
		return nil, fmt.Errorf("duration rule: %w", err)
	}
	loc := ev.Location()
	winStart := calendar.JdToEpoch(startJd, loc)
	winEnd := calendar.JdToEpoch(endJd, loc)
	startEpoch := sr.Epoch(ev)
	lo := max(winStart, startEpoch)
	hi := min(winEnd, startEpoch+r.Seconds())
	s := occur.NewIntervalSet(loc)
	if lo < hi {
		s.Add(lo, hi)
	}
	return s, nil
}

func (r *DurationRule) Data() any {
	return map[string]any{"value": r.Value, "unit": r.Unit}
}

func (r *DurationRule) SetData(v any) error {
	m, err := asMap(v)
	if err != nil {
		return fmt.Errorf("duration rule: %w", err)
	}
	value, err := asInt64(m["value"])
	if err != nil {
		return fmt.Errorf("duration rule value: %w", err)
	}
	unit, err := asInt64(m["unit"])
	if err != nil {
		return fmt.Errorf("duration rule unit: %w", err)
	}
	if value < 0 || unit <= 0 {
		return fmt.Errorf("duration rule: bad value %d unit %d", value, unit)
	}
	r.Value = value
	r.Unit = unit
	return nil
}

func (r *DurationRule) ServerString() string {
	return fmt.Sprintf("%d", r.Seconds())
}
