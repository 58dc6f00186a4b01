package event

import (
	"fmt"

	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// cycleDays collects every step-th day counted from baseJd, clipped to
// [startJd, endJd). The phase is anchored to baseJd: the first in-range day
// is found by rounding up from the event's own start, not from the window.
func cycleDays(ev *Event, baseJd, step, startJd, endJd int) *occur.DaySet {
	s := occur.NewDaySet(ev.Location())
	if step <= 0 {
		return s
	}
	first := baseJd
	if startJd > baseJd {
		first = baseJd + ceilDiv(startJd-baseJd, step)*step
	}
	for jd := first; jd < endJd; jd += step {
		s.Add(jd)
	}
	return s
}

// CycleDaysRule repeats every Days-th day from the event's start date.
type CycleDaysRule struct {
	Days int
}

func (r *CycleDaysRule) Name() string       { return RuleCycleDays }
func (r *CycleDaysRule) Provides() []string { return nil }
func (r *CycleDaysRule) Needs() []string    { return []string{RuleStart} }
func (r *CycleDaysRule) Conflicts() []string {
	return []string{RuleDate, RuleCycleWeeks, RuleCycleLen}
}

func (r *CycleDaysRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sr, err := ev.startRule()
	if err != nil {
		return nil, fmt.Errorf("cycleDays rule: %w", err)
	}
	return cycleDays(ev, sr.Jd(ev), r.Days, startJd, endJd), nil
}

func (r *CycleDaysRule) Data() any { return r.Days }

func (r *CycleDaysRule) SetData(v any) error {
	n, err := asInt(v)
	if err != nil {
		return fmt.Errorf("cycleDays rule: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("cycleDays rule: bad cycle %d", n)
	}
	r.Days = n
	return nil
}

func (r *CycleDaysRule) ServerString() string { return fmt.Sprintf("%d", r.Days) }

// CycleWeeksRule repeats every Weeks-th week (7×Weeks days) from the event's
// start date.
type CycleWeeksRule struct {
	Weeks int
}

func (r *CycleWeeksRule) Name() string       { return RuleCycleWeeks }
func (r *CycleWeeksRule) Provides() []string { return nil }
func (r *CycleWeeksRule) Needs() []string    { return []string{RuleStart} }
func (r *CycleWeeksRule) Conflicts() []string {
	return []string{RuleDate, RuleCycleDays, RuleCycleLen}
}

func (r *CycleWeeksRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sr, err := ev.startRule()
	if err != nil {
		return nil, fmt.Errorf("cycleWeeks rule: %w", err)
	}
	return cycleDays(ev, sr.Jd(ev), 7*r.Weeks, startJd, endJd), nil
}

func (r *CycleWeeksRule) Data() any { return r.Weeks }

func (r *CycleWeeksRule) SetData(v any) error {
	n, err := asInt(v)
	if err != nil {
		return fmt.Errorf("cycleWeeks rule: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("cycleWeeks rule: bad cycle %d", n)
	}
	r.Weeks = n
	return nil
}

func (r *CycleWeeksRule) ServerString() string { return fmt.Sprintf("%d", r.Weeks) }

// CycleLenRule repeats with a sub-day period of Days*86400+ExtraSec seconds,
// phase-anchored to the event's start epoch, producing instants.
type CycleLenRule struct {
	Days     int
	ExtraSec int
}

func (r *CycleLenRule) Name() string       { return RuleCycleLen }
func (r *CycleLenRule) Provides() []string { return []string{provideTime} }
func (r *CycleLenRule) Needs() []string    { return []string{RuleStart} }
func (r *CycleLenRule) Conflicts() []string {
	return []string{RuleDate, RuleDayTime, RuleDayTimeRange, RuleCycleDays, RuleCycleWeeks}
}

func (r *CycleLenRule) period() int64 {
	return int64(r.Days)*86400 + int64(r.ExtraSec)
}

func (r *CycleLenRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sr, err := ev.startRule()
	if err != nil {
		return nil, fmt.Errorf("cycleLen rule: %w", err)
	}
	loc := ev.Location()
	period := r.period()
	s := occur.NewInstantSet(loc)
	if period <= 0 {
		return s, nil
	}
	winStart := calendar.JdToEpoch(startJd, loc)
	winEnd := calendar.JdToEpoch(endJd, loc)
	base := sr.Epoch(ev)
	first := base
	if winStart > base {
		first = base + ceilDiv64(winStart-base, period)*period
	}
	var times []int64
	for t := first; t < winEnd; t += period {
		times = append(times, t)
	}
	return occur.NewInstantSet(loc, times...), nil
}

func (r *CycleLenRule) Data() any {
	return map[string]any{"days": r.Days, "extraTime": formatTimeStr(r.ExtraSec)}
}

func (r *CycleLenRule) SetData(v any) error {
	m, err := asMap(v)
	if err != nil {
		return fmt.Errorf("cycleLen rule: %w", err)
	}
	days, err := asInt(m["days"])
	if err != nil {
		return fmt.Errorf("cycleLen rule days: %w", err)
	}
	extraStr, err := asString(m["extraTime"])
	if err != nil {
		return fmt.Errorf("cycleLen rule extraTime: %w", err)
	}
	extra, err := parseTimeStr(extraStr)
	if err != nil {
		return fmt.Errorf("cycleLen rule extraTime: %w", err)
	}
	if days < 0 || (days == 0 && extra == 0) {
		return fmt.Errorf("cycleLen rule: bad cycle length")
	}
	r.Days = days
	r.ExtraSec = extra
	return nil
}

func (r *CycleLenRule) ServerString() string {
	return fmt.Sprintf("%d %s", r.Days, formatTimeStr(r.ExtraSec))
}
