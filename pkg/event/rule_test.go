package event

import (
	"errors"
	"reflect"
	"testing"

	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// jd of 2024-03-20, a Wednesday. Most rule tests window around it.
const wedJd = 2460390

func testEvent(t *testing.T, typ string) *Event {
	t.Helper()
	e, err := NewEvent(typ)
	if err != nil {
		t.Fatalf("NewEvent(%q): %v", typ, err)
	}
	e.TimeZone = "UTC"
	return e
}

func mustRule(t *testing.T, name string, data any) Rule {
	t.Helper()
	r, ok := NewRule(name)
	if !ok {
		t.Fatalf("unknown rule %q", name)
	}
	if data != nil {
		if err := r.SetData(data); err != nil {
			t.Fatalf("SetData(%q, %v): %v", name, data, err)
		}
	}
	return r
}

func TestCheckRules(t *testing.T) {
	cases := []struct {
		name  string
		rules []string
		ok    bool
	}{
		{"empty", nil, true},
		{"duration needs start", []string{RuleDuration}, false},
		{"duration with start", []string{RuleStart, RuleDuration}, true},
		{"end conflicts duration", []string{RuleStart, RuleEnd, RuleDuration}, false},
		{"start conflicts date", []string{RuleDate, RuleStart}, false},
		{"weekNumMode needs start", []string{RuleWeekNumMode}, false},
		{"weekNumMode conflicts weekMonth", []string{RuleStart, RuleWeekNumMode, RuleWeekMonth}, false},
		{"cycleDays conflicts cycleWeeks", []string{RuleStart, RuleCycleDays, RuleCycleWeeks}, false},
		{"class shape", []string{RuleStart, RuleEnd, RuleWeekNumMode, RuleWeekDay, RuleDayTimeRange}, true},
		{"dayTime conflicts dayTimeRange", []string{RuleDayTime, RuleDayTimeRange}, false},
	}
	for _, c := range cases {
		rules := make([]Rule, 0, len(c.rules))
		for _, n := range c.rules {
			r, ok := NewRule(n)
			if !ok {
				t.Fatalf("%s: unknown rule %q", c.name, n)
			}
			rules = append(rules, r)
		}
		ok, msg := CheckRules(rules)
		if ok != c.ok {
			t.Errorf("%s: CheckRules = %v (%s), want %v", c.name, ok, msg, c.ok)
		}
		if !ok && msg == "" {
			t.Errorf("%s: failure must carry a message", c.name)
		}
	}
}

func TestCheckAndAddRule(t *testing.T) {
	e := testEvent(t, TypeCustom)
	if ok, _ := e.CheckAndAddRule(mustRule(t, RuleDuration, nil)); ok {
		t.Fatal("duration without start must be rejected")
	}
	if e.GetRule(RuleDuration) != nil {
		t.Fatal("rejected rule must not be attached")
	}
	if ok, msg := e.CheckAndAddRule(mustRule(t, RuleStart, "2024/03/20")); !ok {
		t.Fatalf("adding start: %s", msg)
	}
	if ok, msg := e.CheckAndAddRule(mustRule(t, RuleDuration, nil)); !ok {
		t.Fatalf("adding duration after start: %s", msg)
	}
	// Removing start would orphan the duration rule.
	if ok, _ := e.CheckAndRemoveRule(RuleStart); ok {
		t.Fatal("removing start while duration depends on it must be rejected")
	}
	if ok, msg := e.CheckAndRemoveRule(RuleDuration); !ok {
		t.Fatalf("removing duration: %s", msg)
	}
	if ok, msg := e.CheckAndRemoveRule(RuleStart); !ok {
		t.Fatalf("removing start after duration: %s", msg)
	}
}

func TestMissingRuleError(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleCycleDays, 3))
	_, err := e.CalcOccurrence(wedJd, wedJd+10)
	if !errors.Is(err, ErrMissingRule) {
		t.Fatalf("want ErrMissingRule, got %v", err)
	}
}

func TestMonthDayRules(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleMonth, float64(2)))
	e.AddRule(mustRule(t, RuleDay, float64(29)))

	start := calendar.Gregorian.ToJd(calendar.Date{Year: 2023, Month: 1, Day: 1})
	end := calendar.Gregorian.ToJd(calendar.Date{Year: 2026, Month: 1, Day: 1})
	s, err := e.CalcOccurrence(start, end)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{calendar.Gregorian.ToJd(calendar.Date{Year: 2024, Month: 2, Day: 29})}
	if got := s.DaysJd(); !reflect.DeepEqual(got, want) {
		t.Errorf("leap day occurrences = %v, want %v", got, want)
	}
}

func TestExcludeMonthRule(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleDay, float64(1)))
	e.AddRule(mustRule(t, RuleExMonth, []any{float64(1), float64(12)}))

	start := calendar.Gregorian.ToJd(calendar.Date{Year: 2024, Month: 1, Day: 1})
	end := calendar.Gregorian.ToJd(calendar.Date{Year: 2025, Month: 1, Day: 1})
	s, err := e.CalcOccurrence(start, end)
	if err != nil {
		t.Fatal(err)
	}
	days := s.DaysJd()
	if len(days) != 10 {
		t.Fatalf("want 10 first-of-month days outside Jan/Dec, got %d", len(days))
	}
	for _, jd := range days {
		d := calendar.Gregorian.JdTo(jd)
		if d.Month == 1 || d.Month == 12 {
			t.Errorf("excluded month leaked: %s", d)
		}
	}
}

func TestWeekDayRule(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleWeekDay, []any{float64(1), float64(3), float64(5)}))

	// Two full Sunday-to-Saturday weeks.
	sunJd := wedJd + 4
	s, err := e.CalcOccurrence(sunJd, sunJd+14)
	if err != nil {
		t.Fatal(err)
	}
	days := s.DaysJd()
	if len(days) != 6 {
		t.Fatalf("want 6 Mon/Wed/Fri days in 2 weeks, got %d", len(days))
	}
	for _, jd := range days {
		wd := calendar.JdWeekDay(jd)
		if wd != 1 && wd != 3 && wd != 5 {
			t.Errorf("jd %d has weekday %d", jd, wd)
		}
	}
}

func TestWeekNumberModeRule(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleStart, "2024/03/20"))
	e.AddRule(mustRule(t, RuleWeekNumMode, "odd"))

	// The start week is odd. 2024-03-20 is Wednesday; its week runs
	// Sun 03-17 .. Sat 03-23.
	s, err := e.CalcOccurrence(wedJd, wedJd+15)
	if err != nil {
		t.Fatal(err)
	}
	odd := map[int]bool{}
	for _, jd := range s.DaysJd() {
		odd[jd] = true
	}
	if !odd[wedJd] || !odd[wedJd+3] {
		t.Error("start week days must match odd mode")
	}
	if odd[wedJd+4] || odd[wedJd+10] {
		t.Error("second week days must not match odd mode")
	}
	if !odd[wedJd+11] {
		t.Error("third week days must match odd mode again")
	}

	even, _ := NewRule(RuleWeekNumMode)
	even.SetData("even")
	e.AddRule(even)
	s2, err := e.CalcOccurrence(wedJd, wedJd+15)
	if err != nil {
		t.Fatal(err)
	}
	for _, jd := range s2.DaysJd() {
		if odd[jd] {
			t.Errorf("jd %d matched both odd and even", jd)
		}
	}
}

func TestWeekMonthRuleLast(t *testing.T) {
	e := testEvent(t, TypeCustom)
	// Last Friday of every month.
	e.AddRule(mustRule(t, RuleWeekMonth, map[string]any{
		"month": float64(0), "wmIndex": float64(4), "weekDay": float64(5),
	}))

	start := calendar.Gregorian.ToJd(calendar.Date{Year: 2024, Month: 1, Day: 1})
	end := calendar.Gregorian.ToJd(calendar.Date{Year: 2024, Month: 7, Day: 1})
	s, err := e.CalcOccurrence(start, end)
	if err != nil {
		t.Fatal(err)
	}
	want := []calendar.Date{
		// March 2024 has five Fridays; the others four.
		{Year: 2024, Month: 1, Day: 26},
		{Year: 2024, Month: 2, Day: 23},
		{Year: 2024, Month: 3, Day: 29},
		{Year: 2024, Month: 4, Day: 26},
		{Year: 2024, Month: 5, Day: 31},
		{Year: 2024, Month: 6, Day: 28},
	}
	got := s.DaysJd()
	if len(got) != len(want) {
		t.Fatalf("want %d last Fridays, got %d", len(want), len(got))
	}
	for i, jd := range got {
		if d := calendar.Gregorian.JdTo(jd); d != want[i] {
			t.Errorf("last Friday %d = %s, want %s", i, d, want[i])
		}
	}
}

func TestWeekMonthRuleFirst(t *testing.T) {
	e := testEvent(t, TypeCustom)
	// First Monday of March.
	e.AddRule(mustRule(t, RuleWeekMonth, map[string]any{
		"month": float64(3), "wmIndex": float64(0), "weekDay": float64(1),
	}))
	start := calendar.Gregorian.ToJd(calendar.Date{Year: 2024, Month: 1, Day: 1})
	end := calendar.Gregorian.ToJd(calendar.Date{Year: 2025, Month: 1, Day: 1})
	s, err := e.CalcOccurrence(start, end)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{calendar.Gregorian.ToJd(calendar.Date{Year: 2024, Month: 3, Day: 4})}
	if got := s.DaysJd(); !reflect.DeepEqual(got, want) {
		t.Errorf("first Monday of March = %v, want %v", got, want)
	}
}

func TestDayTimeRangeClamp(t *testing.T) {
	r := &DayTimeRangeRule{StartSec: 10 * 3600, EndSec: 9 * 3600}
	e := testEvent(t, TypeCustom)
	s, err := r.Calc(wedJd, wedJd+1, e)
	if err != nil {
		t.Fatal(err)
	}
	// end <= start clamps to zero width, which every view drops.
	if !s.Empty() {
		t.Errorf("inverted range should be empty, got %v", s.TimeRanges())
	}
}

func TestDayTimeRule(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleWeekDay, []any{float64(1), float64(3), float64(5)}))
	e.AddRule(mustRule(t, RuleDayTime, "09:00:00"))

	sunJd := wedJd + 4
	s, err := e.CalcOccurrence(sunJd, sunJd+14)
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := s.(*occur.InstantSet)
	if !ok {
		t.Fatalf("want InstantSet, got %T", s)
	}
	times := inst.Times()
	if len(times) != 6 {
		t.Fatalf("want 6 instants, got %d", len(times))
	}
	for _, tm := range times {
		if tm%86400 != 9*3600 {
			t.Errorf("instant %d is not at 09:00 UTC", tm)
		}
	}
}

func TestCycleDaysPhase(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleStart, "2024/03/20"))
	e.AddRule(mustRule(t, RuleCycleDays, float64(10)))

	// The window starts mid-cycle; occurrences stay phase-anchored to the
	// event start, not to the window edge.
	s, err := e.CalcOccurrence(wedJd+15, wedJd+40)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{wedJd + 20, wedJd + 30}
	if got := s.DaysJd(); !reflect.DeepEqual(got, want) {
		t.Errorf("cycle days = %v, want %v", got, want)
	}
}

func TestCycleWeeks(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleStart, "2024/03/20"))
	e.AddRule(mustRule(t, RuleCycleWeeks, float64(2)))

	s, err := e.CalcOccurrence(wedJd, wedJd+29)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{wedJd, wedJd + 14, wedJd + 28}
	if got := s.DaysJd(); !reflect.DeepEqual(got, want) {
		t.Errorf("cycle weeks = %v, want %v", got, want)
	}
}

func TestCycleLen(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleStart, map[string]any{"date": "2024/03/20", "time": "06:00:00"}))
	e.AddRule(mustRule(t, RuleCycleLen, map[string]any{
		"days": float64(1), "extraTime": "12:00:00",
	}))

	s, err := e.CalcOccurrence(wedJd, wedJd+4)
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := s.(*occur.InstantSet)
	if !ok {
		t.Fatalf("want InstantSet, got %T", s)
	}
	base := calendar.JdToEpoch(wedJd, nil) + 6*3600
	period := int64(36 * 3600)
	want := []int64{base, base + period, base + 2*period}
	if got := inst.Times(); !reflect.DeepEqual(got, want) {
		t.Errorf("cycleLen instants = %v, want %v", got, want)
	}
}

func TestExceptionDates(t *testing.T) {
	e := testEvent(t, TypeCustom)
	e.AddRule(mustRule(t, RuleWeekDay, []any{float64(3)})) // Wednesdays
	e.AddRule(mustRule(t, RuleExDates, []any{"2024/03/27"}))

	s, err := e.CalcOccurrence(wedJd, wedJd+22)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{wedJd, wedJd + 14, wedJd + 21}
	if got := s.DaysJd(); !reflect.DeepEqual(got, want) {
		t.Errorf("excepted Wednesdays = %v, want %v", got, want)
	}
}

func TestRuleDataRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data any
	}{
		{RuleMonth, []any{float64(2), []any{float64(6), float64(8)}}},
		{RuleWeekDay, []any{float64(0), float64(6)}},
		{RuleDate, "2024/03/20"},
		{RuleStart, map[string]any{"date": "2024/03/20", "time": "10:30:00"}},
		{RuleDayTime, "09:15:00"},
		{RuleDayTimeRange, map[string]any{"start": "08:00:00", "end": "10:00:00"}},
		{RuleDuration, map[string]any{"value": float64(90), "unit": float64(60)}},
		{RuleCycleDays, float64(3)},
		{RuleWeekMonth, map[string]any{"month": float64(0), "wmIndex": float64(4), "weekDay": float64(5)}},
		{RuleExDates, []any{"2024/01/01", "2024/12/25"}},
	}
	for _, c := range cases {
		first := mustRule(t, c.name, c.data)
		second := mustRule(t, c.name, first.Data())
		if !reflect.DeepEqual(first.Data(), second.Data()) {
			t.Errorf("%s: Data round trip %v != %v", c.name, first.Data(), second.Data())
		}
	}
}

func TestRuleSetDataRejectsGarbage(t *testing.T) {
	cases := map[string]any{
		RuleDate:         "not a date",
		RuleStart:        map[string]any{"date": "x"},
		RuleDayTime:      "25:00:00",
		RuleDuration:     map[string]any{"value": float64(-1), "unit": float64(60)},
		RuleCycleDays:    float64(0),
		RuleWeekMonth:    map[string]any{"month": float64(1), "wmIndex": float64(9), "weekDay": float64(0)},
		RuleWeekNumMode:  "sometimes",
		RuleDayTimeRange: map[string]any{"start": "08:00:00"},
	}
	for name, data := range cases {
		r, ok := NewRule(name)
		if !ok {
			t.Fatalf("unknown rule %q", name)
		}
		if err := r.SetData(data); err == nil {
			t.Errorf("%s: SetData(%v) should fail", name, data)
		}
	}
}
