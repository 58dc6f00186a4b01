package event

import (
	"fmt"
	"time"

	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// Event type names as persisted.
const (
	TypeCustom          = "custom"
	TypeTask            = "task"
	TypeAllDayTask      = "allDayTask"
	TypeDailyNote       = "dailyNote"
	TypeYearly          = "yearly"
	TypeMonthly         = "monthly"
	TypeWeekly          = "weekly"
	TypeUniversityClass = "universityClass"
	TypeUniversityExam  = "universityExam"
	TypeLifetime        = "lifetime"
	TypeLargeScale      = "largeScale"
)

// TypeInfo describes one event type's behavior.
type TypeInfo struct {
	Name string
	Desc string

	// RequiredRules are auto-added on creation.
	RequiredRules []string

	// SupportedRules whitelists what the editing UI offers; the engine itself
	// only enforces need/conflict validity.
	SupportedRules []string

	// SetDefaults fills in the default rule parameters after creation.
	SetDefaults func(e *Event)

	// Calc, when set, replaces the generic rule-intersection computation.
	// The result must match what the generic path would produce for the
	// equivalent rule set.
	Calc func(e *Event, startJd, endJd int) (occur.Set, error)
}

var eventTypes map[string]*TypeInfo
var eventTypeOrder []string

func registerType(info *TypeInfo) {
	eventTypes[info.Name] = info
	eventTypeOrder = append(eventTypeOrder, info.Name)
}

// TypeByName looks up an event type.
func TypeByName(name string) (*TypeInfo, bool) {
	info, ok := eventTypes[name]
	return info, ok
}

// Types returns all event type names in registration order.
func Types() []string {
	return append([]string(nil), eventTypeOrder...)
}

// NewEvent constructs an event of the given type with its required rules
// attached and defaults applied. The id stays zero until first save.
func NewEvent(typ string) (*Event, error) {
	info, ok := eventTypes[typ]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
	e := &Event{
		Type:    typ,
		CalType: calendar.Gregorian.Name(),
	}
	for _, name := range info.RequiredRules {
		r, ok := NewRule(name)
		if !ok {
			return nil, fmt.Errorf("event type %q requires unknown rule %q", typ, name)
		}
		e.AddRule(r)
	}
	if info.SetDefaults != nil {
		info.SetDefaults(e)
	}
	return e, nil
}

// NewEventFromData reconstructs a persisted event.
func NewEventFromData(m map[string]any) (*Event, error) {
	typ, err := asString(m["type"])
	if err != nil {
		return nil, fmt.Errorf("event data has no type: %w", err)
	}
	if _, ok := eventTypes[typ]; !ok {
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
	e := &Event{Type: typ, CalType: calendar.Gregorian.Name()}
	if err := e.SetData(m); err != nil {
		return nil, err
	}
	return e, nil
}

func todayDate(e *Event) calendar.Date {
	return e.CalSys().JdTo(calendar.GetCurrentJd(e.Location()))
}

func init() {
	eventTypes = map[string]*TypeInfo{}

	allRules := []string{
		RuleYear, RuleExYear, RuleMonth, RuleExMonth, RuleDay, RuleExDay,
		RuleWeekDay, RuleWeekNumMode, RuleWeekMonth, RuleDate, RuleStart,
		RuleEnd, RuleDayTime, RuleDayTimeRange, RuleDuration, RuleCycleDays,
		RuleCycleWeeks, RuleCycleLen, RuleExDates,
	}

	registerType(&TypeInfo{
		Name:           TypeCustom,
		Desc:           "Custom Event",
		SupportedRules: allRules,
	})

	registerType(&TypeInfo{
		Name:           TypeTask,
		Desc:           "Task",
		RequiredRules:  []string{RuleStart},
		SupportedRules: []string{RuleStart, RuleEnd, RuleDuration},
		SetDefaults: func(e *Event) {
			now := time.Now().In(e.Location())
			start := e.GetRule(RuleStart).(*DateTimeRule)
			start.Date = todayDate(e)
			start.Seconds = now.Hour() * 3600
			dur, _ := NewRule(RuleDuration)
			dur.(*DurationRule).Value = 1
			dur.(*DurationRule).Unit = UnitHour
			e.AddRule(dur)
		},
		Calc: calcTask,
	})

	registerType(&TypeInfo{
		Name:           TypeAllDayTask,
		Desc:           "All-Day Task",
		RequiredRules:  []string{RuleStart},
		SupportedRules: []string{RuleStart, RuleEnd, RuleDuration},
		SetDefaults: func(e *Event) {
			e.GetRule(RuleStart).(*DateTimeRule).Date = todayDate(e)
		},
		Calc: calcAllDayTask,
	})

	registerType(&TypeInfo{
		Name:           TypeDailyNote,
		Desc:           "Daily Note",
		RequiredRules:  []string{RuleDate},
		SupportedRules: []string{RuleDate},
		SetDefaults: func(e *Event) {
			e.GetRule(RuleDate).(*DateRule).Date = todayDate(e)
		},
		Calc: calcDailyNote,
	})

	registerType(&TypeInfo{
		Name:           TypeYearly,
		Desc:           "Yearly Event",
		RequiredRules:  []string{RuleMonth, RuleDay},
		SupportedRules: []string{RuleMonth, RuleDay, RuleYear, RuleStart, RuleEnd},
		SetDefaults: func(e *Event) {
			d := todayDate(e)
			e.GetRule(RuleMonth).(*MonthRule).Values = NumList{{d.Month, d.Month}}
			e.GetRule(RuleDay).(*DayOfMonthRule).Values = NumList{{d.Day, d.Day}}
		},
	})

	registerType(&TypeInfo{
		Name:           TypeMonthly,
		Desc:           "Monthly Event",
		RequiredRules:  []string{RuleDay},
		SupportedRules: []string{RuleDay, RuleStart, RuleEnd, RuleDayTimeRange},
		SetDefaults: func(e *Event) {
			d := todayDate(e)
			e.GetRule(RuleDay).(*DayOfMonthRule).Values = NumList{{d.Day, d.Day}}
		},
	})

	registerType(&TypeInfo{
		Name:          TypeWeekly,
		Desc:          "Weekly Event",
		RequiredRules: []string{RuleStart, RuleCycleWeeks},
		SupportedRules: []string{
			RuleStart, RuleEnd, RuleCycleWeeks, RuleDayTimeRange,
		},
		SetDefaults: func(e *Event) {
			e.GetRule(RuleStart).(*DateTimeRule).Date = todayDate(e)
		},
	})

	registerType(&TypeInfo{
		Name:          TypeUniversityClass,
		Desc:          "University Class",
		RequiredRules: []string{RuleStart, RuleWeekNumMode, RuleWeekDay, RuleDayTimeRange},
		SupportedRules: []string{
			RuleStart, RuleEnd, RuleWeekNumMode, RuleWeekDay, RuleDayTimeRange,
		},
		SetDefaults: func(e *Event) {
			e.GetRule(RuleStart).(*DateTimeRule).Date = todayDate(e)
			tr := e.GetRule(RuleDayTimeRange).(*DayTimeRangeRule)
			tr.StartSec = 8 * 3600
			tr.EndSec = 10 * 3600
		},
	})

	registerType(&TypeInfo{
		Name:           TypeUniversityExam,
		Desc:           "University Exam",
		RequiredRules:  []string{RuleDate, RuleDayTimeRange},
		SupportedRules: []string{RuleDate, RuleDayTimeRange},
		SetDefaults: func(e *Event) {
			e.GetRule(RuleDate).(*DateRule).Date = todayDate(e)
			tr := e.GetRule(RuleDayTimeRange).(*DayTimeRangeRule)
			tr.StartSec = 9 * 3600
			tr.EndSec = 11 * 3600
		},
	})

	registerType(&TypeInfo{
		Name:           TypeLifetime,
		Desc:           "Lifetime Event",
		RequiredRules:  []string{RuleStart, RuleEnd},
		SupportedRules: []string{RuleStart, RuleEnd},
		SetDefaults: func(e *Event) {
			d := todayDate(e)
			e.GetRule(RuleStart).(*DateTimeRule).Date = calendar.Date{Year: d.Year, Month: 1, Day: 1}
			e.GetRule(RuleEnd).(*DateTimeRule).Date = calendar.Date{Year: d.Year + 1, Month: 1, Day: 1}
		},
		Calc: calcLifetime,
	})

	registerType(&TypeInfo{
		Name: TypeLargeScale,
		Desc: "Large Scale Event",
		SetDefaults: func(e *Event) {
			e.Scale = 1000
		},
		Calc: calcLargeScale,
	})
}

// calcTask computes a single interval from the explicit start plus end or
// duration, matching what intersecting the equivalent start/end clamp rules
// would produce.
func calcTask(e *Event, startJd, endJd int) (occur.Set, error) {
	sr, err := e.startRule()
	if err != nil {
		return nil, err
	}
	startEpoch := sr.Epoch(e)
	endEpoch := startEpoch
	if er, ok := e.GetRule(RuleEnd).(*DateTimeRule); ok {
		endEpoch = er.Epoch(e)
	} else if dr, ok := e.GetRule(RuleDuration).(*DurationRule); ok {
		endEpoch = startEpoch + dr.Seconds()
	}
	loc := e.Location()
	s := occur.NewIntervalSet(loc)
	lo := max(startEpoch, calendar.JdToEpoch(startJd, loc))
	hi := min(endEpoch, calendar.JdToEpoch(endJd, loc))
	if lo < hi {
		s.Add(lo, hi)
	}
	return s, nil
}

// calcAllDayTask is the task computation at whole-day granularity: the span
// covers the start day through the end day inclusive.
func calcAllDayTask(e *Event, startJd, endJd int) (occur.Set, error) {
	sr, err := e.startRule()
	if err != nil {
		return nil, err
	}
	jd0 := sr.Jd(e)
	jd1 := jd0
	if er, ok := e.GetRule(RuleEnd).(*DateTimeRule); ok {
		jd1 = er.Jd(e)
	} else if dr, ok := e.GetRule(RuleDuration).(*DurationRule); ok {
		jd1 = jd0 + int(dr.Seconds()/86400)
	}
	lo := max(jd0, startJd)
	hi := min(jd1+1, endJd)
	if lo >= hi {
		return occur.NewDaySet(e.Location()), nil
	}
	return occur.NewDaySetRange(e.Location(), lo, hi), nil
}

func calcDailyNote(e *Event, startJd, endJd int) (occur.Set, error) {
	dr, ok := e.GetRule(RuleDate).(*DateRule)
	if !ok {
		return nil, fmt.Errorf("event %d has no date rule: %w", e.ID, ErrMissingRule)
	}
	return dr.Calc(startJd, endJd, e)
}

func calcLifetime(e *Event, startJd, endJd int) (occur.Set, error) {
	sr, err := e.startRule()
	if err != nil {
		return nil, err
	}
	er, ok := e.GetRule(RuleEnd).(*DateTimeRule)
	if !ok {
		return nil, fmt.Errorf("event %d has no end rule: %w", e.ID, ErrMissingRule)
	}
	lo := max(sr.Jd(e), startJd)
	hi := min(er.Jd(e), endJd)
	if lo >= hi {
		return occur.NewDaySet(e.Location()), nil
	}
	return occur.NewDaySetRange(e.Location(), lo, hi), nil
}

// calcLargeScale interprets ScaleStart/ScaleEnd in units of Scale years on
// the Gregorian calendar.
func calcLargeScale(e *Event, startJd, endJd int) (occur.Set, error) {
	scale := e.Scale
	if scale <= 0 {
		scale = 1
	}
	jd0 := calendar.Gregorian.ToJd(calendar.Date{Year: int(e.ScaleStart * scale), Month: 1, Day: 1})
	jd1 := calendar.Gregorian.ToJd(calendar.Date{Year: int(e.ScaleEnd * scale), Month: 1, Day: 1})
	lo := max(jd0, startJd)
	hi := min(jd1, endJd)
	if lo >= hi {
		return occur.NewDaySet(e.Location()), nil
	}
	return occur.NewDaySetRange(e.Location(), lo, hi), nil
}
