// Package ics renders event groups as iCalendar files and imports simple
// iCalendar data back into rule-based events.
package ics

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"golang.org/x/sync/errgroup"

	"github.com/djwarf/eventcal/internal/log"
	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/event"
)

const prodID = "-//eventcal//EN"

// WriteGroup renders a group as one VCALENDAR. Events whose rule set maps
// onto DTSTART/DTEND/RRULE are written as a single VEVENT; everything else
// is expanded into one VEVENT per occurrence over the group's bound.
func WriteGroup(w io.Writer, g *event.Group) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropName, g.Title)

	for _, id := range g.EventIDs() {
		e, _ := g.Event(id)
		components, err := eventComponents(e, g)
		if err != nil {
			return fmt.Errorf("render event %d: %w", id, err)
		}
		cal.Children = append(cal.Children, components...)
	}

	return ical.NewEncoder(w).Encode(cal)
}

func eventComponents(e *event.Event, g *event.Group) ([]*ical.Component, error) {
	if pairs := e.IcsData(g.StartJd); pairs != nil {
		vevent := newVEvent(e)
		for _, p := range pairs {
			prop := ical.NewProp(p.Name)
			prop.Value = p.Value
			vevent.Props.Set(prop)
		}
		return []*ical.Component{vevent}, nil
	}

	// No RRULE form: expand occurrences over the group bound.
	s, err := e.CalcOccurrence(g.StartJd, g.EndJd)
	if err != nil {
		return nil, err
	}
	var out []*ical.Component
	for _, r := range s.TimeRanges() {
		vevent := newVEvent(e)
		vevent.Props.SetDateTime(ical.PropDateTimeStart, time.Unix(r.Start, 0).UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, time.Unix(r.End, 0).UTC())
		out = append(out, vevent)
	}
	return out, nil
}

func newVEvent(e *event.Event) *ical.Component {
	vevent := ical.NewComponent(ical.CompEvent)
	uid := ""
	if e.Remote != nil {
		uid = e.Remote.EventID
	}
	if uid == "" {
		uid = uuid.NewString()
	}
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, e.Summary)
	if e.Description != "" {
		vevent.Props.SetText(ical.PropDescription, e.Description)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
	return vevent
}

// ExportGroups writes each group to <dir>/<title>.ics, one file per group,
// concurrently.
func ExportGroups(ctx context.Context, dir string, groups []*event.Group) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	eg, _ := errgroup.WithContext(ctx)
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			path := filepath.Join(dir, fileName(g)+".ics")
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := WriteGroup(f, g); err != nil {
				f.Close()
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			return f.Close()
		})
	}
	return eg.Wait()
}

func fileName(g *event.Group) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '-'
		}
		return r
	}, g.Title)
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("group-%d", g.ID)
	}
	return name
}

// ImportGroup parses iCalendar data and adds each importable VEVENT to the
// group as a rule-based event. Components that cannot be expressed in rules
// are logged and skipped; the count of imported events is returned.
func ImportGroup(r io.Reader, g *event.Group) (int, error) {
	dec := ical.NewDecoder(r)
	imported := 0
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("failed to parse calendar data: %w", err)
		}
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			e, err := importEvent(comp, g)
			if err != nil {
				uid := ""
				if p := comp.Props.Get(ical.PropUID); p != nil {
					uid = p.Value
				}
				log.Warn("skipping unimportable VEVENT", "uid", uid, "reason", err.Error())
				continue
			}
			if err := g.Add(e); err != nil {
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}

func importEvent(comp *ical.Component, g *event.Group) (*event.Event, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return nil, fmt.Errorf("no DTSTART")
	}
	start, err := startProp.DateTime(time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad DTSTART: %w", err)
	}

	var e *event.Event
	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		e, err = importRecurring(p.Value, start)
	} else {
		e, err = importSingle(comp, start)
	}
	if err != nil {
		return nil, err
	}

	if p := comp.Props.Get(ical.PropSummary); p != nil {
		e.Summary = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		e.Description = p.Value
	}
	if p := comp.Props.Get(ical.PropUID); p != nil {
		e.Remote = &event.RemoteIDs{EventID: p.Value}
	}
	e.CalType = calendar.Gregorian.Name()
	e.AfterModify()
	return e, nil
}

func importSingle(comp *ical.Component, start time.Time) (*event.Event, error) {
	e, err := event.NewEvent(event.TypeTask)
	if err != nil {
		return nil, err
	}
	setStart(e, event.RuleStart, start)
	end := start.Add(time.Hour)
	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		if t, err := p.DateTime(start.Location()); err == nil {
			end = t
		}
	}
	e.RemoveRule(event.RuleDuration)
	er, _ := event.NewRule(event.RuleEnd)
	e.AddRule(er)
	setStart(e, event.RuleEnd, end)
	return e, nil
}

// importRecurring maps the simple RRULE forms the exporter emits back onto
// event types. Anything richer is rejected.
func importRecurring(raw string, start time.Time) (*event.Event, error) {
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, fmt.Errorf("bad RRULE: %w", err)
	}
	opt := r.OrigOptions

	switch opt.Freq {
	case rrule.YEARLY:
		e, err := event.NewEvent(event.TypeYearly)
		if err != nil {
			return nil, err
		}
		month, day := int(start.Month()), start.Day()
		if len(opt.Bymonth) == 1 {
			month = opt.Bymonth[0]
		}
		if len(opt.Bymonthday) == 1 {
			day = opt.Bymonthday[0]
		}
		e.GetRule(event.RuleMonth).(*event.MonthRule).Values = event.NumList{{Start: month, End: month}}
		e.GetRule(event.RuleDay).(*event.DayOfMonthRule).Values = event.NumList{{Start: day, End: day}}
		return e, nil

	case rrule.MONTHLY:
		e, err := event.NewEvent(event.TypeMonthly)
		if err != nil {
			return nil, err
		}
		day := start.Day()
		if len(opt.Bymonthday) == 1 {
			day = opt.Bymonthday[0]
		}
		e.GetRule(event.RuleDay).(*event.DayOfMonthRule).Values = event.NumList{{Start: day, End: day}}
		return e, nil

	case rrule.WEEKLY:
		e, err := event.NewEvent(event.TypeWeekly)
		if err != nil {
			return nil, err
		}
		setStart(e, event.RuleStart, start)
		interval := opt.Interval
		if interval <= 0 {
			interval = 1
		}
		e.GetRule(event.RuleCycleWeeks).(*event.CycleWeeksRule).Weeks = interval
		return e, nil
	}
	return nil, fmt.Errorf("unsupported RRULE frequency")
}

func setStart(e *event.Event, ruleName string, t time.Time) {
	r := e.GetRule(ruleName).(*event.DateTimeRule)
	r.Date = calendar.Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	r.Seconds = t.Hour()*3600 + t.Minute()*60 + t.Second()
}
