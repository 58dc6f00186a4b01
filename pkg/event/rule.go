// Package event implements the occurrence engine: composable recurrence
// rules, the events that own them, event groups with their searchable
// occurrence index, and the sqlite persistence for all of it.
package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// ErrMissingRule is returned (wrapped) when occurrence computation assumes a
// rule that is not present on the event. The need/conflict validation is
// supposed to make this impossible, so hitting it means corrupted data or a
// bug upstream.
var ErrMissingRule = errors.New("missing required rule")

// Rule names as persisted and referenced by need/conflict declarations.
const (
	RuleYear         = "year"
	RuleMonth        = "month"
	RuleDay          = "day"
	RuleWeekDay      = "weekDay"
	RuleWeekNumMode  = "weekNumMode"
	RuleWeekMonth    = "weekMonth"
	RuleDate         = "date"
	RuleStart        = "start"
	RuleEnd          = "end"
	RuleDayTime      = "dayTime"
	RuleDayTimeRange = "dayTimeRange"
	RuleDuration     = "duration"
	RuleCycleDays    = "cycleDays"
	RuleCycleWeeks   = "cycleWeeks"
	RuleCycleLen     = "cycleLen"
	RuleExDates      = "ex_dates"
	RuleExYear       = "ex_year"
	RuleExMonth      = "ex_month"
	RuleExDay        = "ex_day"
)

// provideTime is the abstract capability supplied by rules that pin the
// event to a time of day.
const provideTime = "time"

// Rule is one composable temporal constraint attached to an event.
type Rule interface {
	// Name returns the unique rule key.
	Name() string

	// Provides lists abstract capabilities this rule supplies.
	Provides() []string

	// Needs lists capabilities that must be present among the event's rules.
	Needs() []string

	// Conflicts lists rule names that must not coexist with this rule.
	Conflicts() []string

	// Calc computes this rule's occurrence restricted to [startJd, endJd).
	// The event is consulted only for cross-rule needs that validation has
	// already guaranteed to exist.
	Calc(startJd, endJd int, ev *Event) (occur.Set, error)

	// Data returns the rule's JSON-compatible payload.
	Data() any

	// SetData restores the payload. On malformed input the rule keeps its
	// current values and an error is returned for the caller to log.
	SetData(v any) error

	// ServerString is the compact wire form used by the sync collaborator.
	ServerString() string
}

var ruleConstructors map[string]func() Rule

func init() {
	ruleConstructors = map[string]func() Rule{
		RuleYear:         func() Rule { return &YearRule{} },
		RuleExYear:       func() Rule { return &YearRule{exclude: true} },
		RuleMonth:        func() Rule { return &MonthRule{} },
		RuleExMonth:      func() Rule { return &MonthRule{exclude: true} },
		RuleDay:          func() Rule { return &DayOfMonthRule{} },
		RuleExDay:        func() Rule { return &DayOfMonthRule{exclude: true} },
		RuleWeekDay:      func() Rule { return &WeekDayRule{} },
		RuleWeekNumMode:  func() Rule { return &WeekNumberModeRule{} },
		RuleWeekMonth:    func() Rule { return &WeekMonthRule{} },
		RuleDate:         func() Rule { return &DateRule{} },
		RuleStart:        func() Rule { return &DateTimeRule{} },
		RuleEnd:          func() Rule { return &DateTimeRule{end: true} },
		RuleDayTime:      func() Rule { return &DayTimeRule{} },
		RuleDayTimeRange: func() Rule { return &DayTimeRangeRule{} },
		RuleDuration:     func() Rule { return &DurationRule{Unit: 1} },
		RuleCycleDays:    func() Rule { return &CycleDaysRule{Days: 7} },
		RuleCycleWeeks:   func() Rule { return &CycleWeeksRule{Weeks: 1} },
		RuleCycleLen:     func() Rule { return &CycleLenRule{} },
		RuleExDates:      func() Rule { return &ExceptionDatesRule{} },
	}
}

// NewRule constructs a fresh rule by name.
func NewRule(name string) (Rule, bool) {
	ctor, ok := ruleConstructors[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// CheckRules validates the need/conflict contract of a candidate rule set.
// A failure is an expected user-facing condition and is reported as data,
// never as an error value.
func CheckRules(rules []Rule) (ok bool, msg string) {
	provided := map[string]bool{}
	for _, r := range rules {
		provided[r.Name()] = true
		for _, p := range r.Provides() {
			provided[p] = true
		}
	}
	for _, r := range rules {
		for _, c := range r.Conflicts() {
			if provided[c] {
				return false, fmt.Sprintf("rule %q conflicts with rule %q", r.Name(), c)
			}
		}
		for _, n := range r.Needs() {
			if !provided[n] {
				return false, fmt.Sprintf("rule %q needs %q", r.Name(), n)
			}
		}
	}
	return true, ""
}

// NumRange is an inclusive integer range; Start == End describes one value.
type NumRange struct {
	Start int
	End   int
}

// NumList is the value list used by the year/month/day-of-month rules.
type NumList []NumRange

// Contains reports whether v falls in any of the list's ranges.
func (l NumList) Contains(v int) bool {
	for _, r := range l {
		if r.Start <= v && v <= r.End {
			return true
		}
	}
	return false
}

// Data renders the list as JSON-compatible values: plain ints for single
// values, [start, end] pairs for ranges.
func (l NumList) Data() []any {
	out := make([]any, 0, len(l))
	for _, r := range l {
		if r.Start == r.End {
			out = append(out, r.Start)
		} else {
			out = append(out, []any{r.Start, r.End})
		}
	}
	return out
}

func (l NumList) String() string {
	parts := make([]string, 0, len(l))
	for _, r := range l {
		if r.Start == r.End {
			parts = append(parts, strconv.Itoa(r.Start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}
	return strings.Join(parts, " ")
}

func parseNumList(v any) (NumList, error) {
	items, ok := v.([]any)
	if !ok {
		if n, err := asInt(v); err == nil {
			return NumList{{n, n}}, nil
		}
		return nil, fmt.Errorf("expected list of numbers, got %T", v)
	}
	out := make(NumList, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case []any:
			if len(it) != 2 {
				return nil, fmt.Errorf("range needs 2 elements, got %d", len(it))
			}
			lo, err := asInt(it[0])
			if err != nil {
				return nil, err
			}
			hi, err := asInt(it[1])
			if err != nil {
				return nil, err
			}
			if hi < lo {
				lo, hi = hi, lo
			}
			out = append(out, NumRange{lo, hi})
		default:
			n, err := asInt(item)
			if err != nil {
				return nil, err
			}
			out = append(out, NumRange{n, n})
		}
	}
	return out, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asMap(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return m, nil
}

// parseDateStr parses "Y/M/D" (or "Y-M-D").
func parseDateStr(s string) (calendar.Date, error) {
	return calendar.ParseDate(strings.TrimSpace(s))
}

// parseTimeStr parses "HH:MM:SS" (seconds optional) to seconds of day.
func parseTimeStr(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad time string %q", s)
	}
	total := 0
	for i := 0; i < 3; i++ {
		n := 0
		if i < len(parts) {
			var err error
			n, err = strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil {
				return 0, fmt.Errorf("bad time string %q: %w", s, err)
			}
		}
		total = total*60 + n
	}
	if total < 0 || total >= 86400 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return total, nil
}

func formatTimeStr(sec int) string {
	return fmt.Sprintf("%.2d:%.2d:%.2d", sec/3600, sec/60%60, sec%60)
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// ceilDiv for non-negative b.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

func ceilDiv64(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}
