package event

import (
	"fmt"
	"strings"

	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// calcMatchDays evaluates a per-day predicate over [startJd, endJd). This is
// deliberately O(range length); day ranges are bounded by the group's index
// bound.
func calcMatchDays(startJd, endJd int, ev *Event, match func(jd int) bool) *occur.DaySet {
	s := occur.NewDaySet(ev.Location())
	for jd := startJd; jd < endJd; jd++ {
		if match(jd) {
			s.Add(jd)
		}
	}
	return s
}

// YearRule matches days whose year (in the event's calendar) is in Values.
// With exclude set it is the inverting ex_year rule.
type YearRule struct {
	exclude bool
	Values  NumList
}

func (r *YearRule) Name() string {
	if r.exclude {
		return RuleExYear
	}
	return RuleYear
}

func (r *YearRule) Provides() []string  { return nil }
func (r *YearRule) Needs() []string     { return nil }
func (r *YearRule) Conflicts() []string { return nil }

func (r *YearRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sys := ev.CalSys()
	return calcMatchDays(startJd, endJd, ev, func(jd int) bool {
		return r.Values.Contains(sys.JdTo(jd).Year) != r.exclude
	}), nil
}

func (r *YearRule) Data() any { return r.Values.Data() }

func (r *YearRule) SetData(v any) error {
	values, err := parseNumList(v)
	if err != nil {
		return fmt.Errorf("%s rule: %w", r.Name(), err)
	}
	r.Values = values
	return nil
}

func (r *YearRule) ServerString() string { return r.Values.String() }

// IsExclude reports whether this is the inverting ex_year form.
func (r *YearRule) IsExclude() bool { return r.exclude }

// MonthRule matches by month number; ex_month inverts.
type MonthRule struct {
	exclude bool
	Values  NumList
}

func (r *MonthRule) Name() string {
	if r.exclude {
		return RuleExMonth
	}
	return RuleMonth
}

func (r *MonthRule) Provides() []string  { return nil }
func (r *MonthRule) Needs() []string     { return nil }
func (r *MonthRule) Conflicts() []string { return nil }

func (r *MonthRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sys := ev.CalSys()
	return calcMatchDays(startJd, endJd, ev, func(jd int) bool {
		return r.Values.Contains(sys.JdTo(jd).Month) != r.exclude
	}), nil
}

func (r *MonthRule) Data() any { return r.Values.Data() }

func (r *MonthRule) SetData(v any) error {
	values, err := parseNumList(v)
	if err != nil {
		return fmt.Errorf("%s rule: %w", r.Name(), err)
	}
	r.Values = values
	return nil
}

func (r *MonthRule) ServerString() string { return r.Values.String() }

// IsExclude reports whether this is the inverting ex_month form.
func (r *MonthRule) IsExclude() bool { return r.exclude }

// DayOfMonthRule matches by day of month; ex_day inverts.
type DayOfMonthRule struct {
	exclude bool
	Values  NumList
}

func (r *DayOfMonthRule) Name() string {
	if r.exclude {
		return RuleExDay
	}
	return RuleDay
}

func (r *DayOfMonthRule) Provides() []string  { return nil }
func (r *DayOfMonthRule) Needs() []string     { return nil }
func (r *DayOfMonthRule) Conflicts() []string { return nil }

func (r *DayOfMonthRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sys := ev.CalSys()
	return calcMatchDays(startJd, endJd, ev, func(jd int) bool {
		return r.Values.Contains(sys.JdTo(jd).Day) != r.exclude
	}), nil
}

func (r *DayOfMonthRule) Data() any { return r.Values.Data() }

func (r *DayOfMonthRule) SetData(v any) error {
	values, err := parseNumList(v)
	if err != nil {
		return fmt.Errorf("%s rule: %w", r.Name(), err)
	}
	r.Values = values
	return nil
}

func (r *DayOfMonthRule) ServerString() string { return r.Values.String() }

// IsExclude reports whether this is the inverting ex_day form.
func (r *DayOfMonthRule) IsExclude() bool { return r.exclude }

// WeekDayRule matches by day of week, 0=Sunday.
type WeekDayRule struct {
	Days []int
}

func (r *WeekDayRule) Name() string        { return RuleWeekDay }
func (r *WeekDayRule) Provides() []string  { return nil }
func (r *WeekDayRule) Needs() []string     { return nil }
func (r *WeekDayRule) Conflicts() []string { return nil }

func (r *WeekDayRule) matches(jd int) bool {
	wd := calendar.JdWeekDay(jd)
	for _, d := range r.Days {
		if d == wd {
			return true
		}
	}
	return false
}

func (r *WeekDayRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	return calcMatchDays(startJd, endJd, ev, r.matches), nil
}

func (r *WeekDayRule) Data() any {
	out := make([]any, 0, len(r.Days))
	for _, d := range r.Days {
		out = append(out, d)
	}
	return out
}

func (r *WeekDayRule) SetData(v any) error {
	if n, err := asInt(v); err == nil {
		r.Days = []int{n}
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("weekDay rule: expected number or list, got %T", v)
	}
	days := make([]int, 0, len(items))
	for _, item := range items {
		n, err := asInt(item)
		if err != nil {
			return fmt.Errorf("weekDay rule: %w", err)
		}
		days = append(days, mod(n, 7))
	}
	r.Days = days
	return nil
}

func (r *WeekDayRule) ServerString() string {
	parts := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		parts = append(parts, fmt.Sprintf("%d", d))
	}
	return strings.Join(parts, " ")
}

// Week-number matching modes.
const (
	EveryWeek = 0
	OddWeeks  = 1
	EvenWeeks = 2
)

// WeekNumberModeRule matches every week, odd weeks or even weeks, counted
// from the week of the event's start date (the start week is week 1, odd).
type WeekNumberModeRule struct {
	Mode int
}

func (r *WeekNumberModeRule) Name() string        { return RuleWeekNumMode }
func (r *WeekNumberModeRule) Provides() []string  { return nil }
func (r *WeekNumberModeRule) Needs() []string     { return []string{RuleStart} }
func (r *WeekNumberModeRule) Conflicts() []string { return []string{RuleDate, RuleWeekMonth} }

func (r *WeekNumberModeRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	if r.Mode == EveryWeek {
		return occur.NewDaySetRange(ev.Location(), startJd, endJd), nil
	}
	sr, err := ev.startRule()
	if err != nil {
		return nil, fmt.Errorf("weekNumMode rule: %w", err)
	}
	startWeek := calendar.AbsWeekNumber(sr.Jd(ev))
	return calcMatchDays(startJd, endJd, ev, func(jd int) bool {
		diff := mod(calendar.AbsWeekNumber(jd)-startWeek, 2)
		if r.Mode == OddWeeks {
			return diff == 0
		}
		return diff == 1
	}), nil
}

func (r *WeekNumberModeRule) Data() any {
	switch r.Mode {
	case OddWeeks:
		return "odd"
	case EvenWeeks:
		return "even"
	}
	return "any"
}

func (r *WeekNumberModeRule) SetData(v any) error {
	s, err := asString(v)
	if err != nil {
		return fmt.Errorf("weekNumMode rule: %w", err)
	}
	switch s {
	case "any", "":
		r.Mode = EveryWeek
	case "odd":
		r.Mode = OddWeeks
	case "even":
		r.Mode = EvenWeeks
	default:
		return fmt.Errorf("weekNumMode rule: bad mode %q", s)
	}
	return nil
}

func (r *WeekNumberModeRule) ServerString() string {
	s, _ := r.Data().(string)
	return s
}

// WeekMonthRule matches the Nth weekday of a month ("last Friday of every
// month"). WMIndex 0..3 are the 1st..4th occurrence; 4 means the last one.
type WeekMonthRule struct {
	Month   int // 1..12, 0 = every month
	WMIndex int // 0..4
	WeekDay int // 0=Sunday
}

func (r *WeekMonthRule) Name() string        { return RuleWeekMonth }
func (r *WeekMonthRule) Provides() []string  { return nil }
func (r *WeekMonthRule) Needs() []string     { return nil }
func (r *WeekMonthRule) Conflicts() []string { return []string{RuleDate, RuleWeekNumMode} }

func (r *WeekMonthRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sys := ev.CalSys()
	s := occur.NewDaySet(ev.Location())
	if startJd >= endJd {
		return s, nil
	}
	firstYear := sys.JdTo(startJd).Year
	lastYear := sys.JdTo(endJd - 1).Year
	for y := firstYear; y <= lastYear; y++ {
		for m := 1; m <= sys.MonthsInYear(y); m++ {
			if r.Month != 0 && m != r.Month {
				continue
			}
			monthStart := sys.ToJd(calendar.Date{Year: y, Month: m, Day: 1})
			first := monthStart + mod(r.WeekDay-calendar.JdWeekDay(monthStart), 7)
			jd := first + 7*r.WMIndex
			if r.WMIndex == 4 && sys.JdTo(jd).Month != m {
				// No 5th occurrence this month; "last" is the 4th.
				jd -= 7
			}
			if jd < startJd || jd >= endJd {
				continue
			}
			d := sys.JdTo(jd)
			if d.Year == y && d.Month == m {
				s.Add(jd)
			}
		}
	}
	return s, nil
}

func (r *WeekMonthRule) Data() any {
	return map[string]any{
		"month":   r.Month,
		"wmIndex": r.WMIndex,
		"weekDay": r.WeekDay,
	}
}

func (r *WeekMonthRule) SetData(v any) error {
	m, err := asMap(v)
	if err != nil {
		return fmt.Errorf("weekMonth rule: %w", err)
	}
	month, err := asInt(m["month"])
	if err != nil {
		return fmt.Errorf("weekMonth rule month: %w", err)
	}
	wmIndex, err := asInt(m["wmIndex"])
	if err != nil {
		return fmt.Errorf("weekMonth rule wmIndex: %w", err)
	}
	weekDay, err := asInt(m["weekDay"])
	if err != nil {
		return fmt.Errorf("weekMonth rule weekDay: %w", err)
	}
	if wmIndex < 0 || wmIndex > 4 {
		return fmt.Errorf("weekMonth rule: wmIndex %d out of range", wmIndex)
	}
	r.Month = month
	r.WMIndex = wmIndex
	r.WeekDay = mod(weekDay, 7)
	return nil
}

func (r *WeekMonthRule) ServerString() string {
	return fmt.Sprintf("%d %d %d", r.Month, r.WMIndex, r.WeekDay)
}

// DateRule matches exactly one absolute date in the event's calendar.
type DateRule struct {
	Date calendar.Date
}

func (r *DateRule) Name() string        { return RuleDate }
func (r *DateRule) Provides() []string  { return nil }
func (r *DateRule) Needs() []string     { return nil }
func (r *DateRule) Conflicts() []string { return nil }

func (r *DateRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	s := occur.NewDaySet(ev.Location())
	jd := ev.CalSys().ToJd(r.Date)
	if startJd <= jd && jd < endJd {
		s.Add(jd)
	}
	return s, nil
}

func (r *DateRule) Data() any { return r.Date.String() }

func (r *DateRule) SetData(v any) error {
	s, err := asString(v)
	if err != nil {
		return fmt.Errorf("date rule: %w", err)
	}
	d, err := parseDateStr(s)
	if err != nil {
		return fmt.Errorf("date rule: %w", err)
	}
	r.Date = d
	return nil
}

func (r *DateRule) ServerString() string { return r.Date.String() }

// ExceptionDatesRule subtracts explicit dates: it matches every day in range
// EXCEPT the listed ones. On its own it restores nearly the whole range, so
// it only has effect intersected against an additive rule.
type ExceptionDatesRule struct {
	Dates []calendar.Date
}

func (r *ExceptionDatesRule) Name() string        { return RuleExDates }
func (r *ExceptionDatesRule) Provides() []string  { return nil }
func (r *ExceptionDatesRule) Needs() []string     { return nil }
func (r *ExceptionDatesRule) Conflicts() []string { return nil }

func (r *ExceptionDatesRule) Calc(startJd, endJd int, ev *Event) (occur.Set, error) {
	sys := ev.CalSys()
	excluded := make(map[int]struct{}, len(r.Dates))
	for _, d := range r.Dates {
		excluded[sys.ToJd(d)] = struct{}{}
	}
	return calcMatchDays(startJd, endJd, ev, func(jd int) bool {
		_, ex := excluded[jd]
		return !ex
	}), nil
}

func (r *ExceptionDatesRule) Data() any {
	out := make([]any, 0, len(r.Dates))
	for _, d := range r.Dates {
		out = append(out, d.String())
	}
	return out
}

func (r *ExceptionDatesRule) SetData(v any) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("ex_dates rule: expected list, got %T", v)
	}
	dates := make([]calendar.Date, 0, len(items))
	for _, item := range items {
		s, err := asString(item)
		if err != nil {
			return fmt.Errorf("ex_dates rule: %w", err)
		}
		d, err := parseDateStr(s)
		if err != nil {
			return fmt.Errorf("ex_dates rule: %w", err)
		}
		dates = append(dates, d)
	}
	r.Dates = dates
	return nil
}

func (r *ExceptionDatesRule) ServerString() string {
	parts := make([]string, 0, len(r.Dates))
	for _, d := range r.Dates {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}
