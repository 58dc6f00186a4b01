package event

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/djwarf/eventcal/internal/log"
	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// RemoteIDs links a mirrored event to its remote account/group/event.
type RemoteIDs struct {
	AccountID string `json:"accountId"`
	GroupID   string `json:"groupId"`
	EventID   string `json:"eventId"`
}

// Event is a rule container: an ordered collection of rules (at most one per
// rule name) plus descriptive attributes. Its total occurrence is the
// intersection of all attached rules' occurrence sets.
type Event struct {
	ID          int64
	Type        string
	CalType     string
	Summary     string
	Description string
	Icon        string

	// TimeZone overrides the zone used for epoch arithmetic; empty means
	// the system local zone.
	TimeZone string

	// NotifyBefore is seconds of advance notice for notifiers.
	NotifyBefore int64
	Notifiers    []string

	// Modified is the unix timestamp of the last mutation.
	Modified int64

	// Remote is set when the event mirrors a remote one.
	Remote *RemoteIDs

	// Large-scale parameters, used only by the largeScale type: start/end in
	// units of Scale years.
	Scale      int64
	ScaleStart int64
	ScaleEnd   int64

	// CourseID ties university class/exam events to a course.
	CourseID int64

	rules []Rule

	tzName string
	tzLoc  *time.Location
}

// CalSys returns the event's calendar system, falling back to Gregorian for
// an unknown name.
func (e *Event) CalSys() calendar.System {
	if s, ok := calendar.ByName(e.CalType); ok {
		return s
	}
	return calendar.Gregorian
}

// Location resolves the event's timezone override, falling back to the
// system local zone on an unknown name.
func (e *Event) Location() *time.Location {
	if e.TimeZone == "" {
		return time.Local
	}
	if e.tzLoc != nil && e.tzName == e.TimeZone {
		return e.tzLoc
	}
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		log.Warn("unknown timezone, using local", "timeZone", e.TimeZone, "eventId", e.ID)
		loc = time.Local
	}
	e.tzName = e.TimeZone
	e.tzLoc = loc
	return loc
}

// Rules returns the rules in order.
func (e *Event) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// GetRule returns the rule with the given name, or nil.
func (e *Event) GetRule(name string) Rule {
	for _, r := range e.rules {
		if r.Name() == name {
			return r
		}
	}
	return nil
}

func (e *Event) startRule() (*DateTimeRule, error) {
	r, ok := e.GetRule(RuleStart).(*DateTimeRule)
	if !ok {
		return nil, fmt.Errorf("event %d has no start rule: %w", e.ID, ErrMissingRule)
	}
	return r, nil
}

// AddRule attaches a rule without dependency checking, replacing any rule of
// the same name. Loaders use it after validation; interactive edits go
// through CheckAndAddRule.
func (e *Event) AddRule(r Rule) {
	for i, old := range e.rules {
		if old.Name() == r.Name() {
			e.rules[i] = r
			return
		}
	}
	e.rules = append(e.rules, r)
}

// RemoveRule detaches the named rule without dependency checking.
func (e *Event) RemoveRule(name string) bool {
	for i, r := range e.rules {
		if r.Name() == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// CheckAndAddRule validates the rule set that would result from adding r and
// attaches it only if valid. The event is never left in an invalid state.
func (e *Event) CheckAndAddRule(r Rule) (bool, string) {
	candidate := make([]Rule, 0, len(e.rules)+1)
	for _, old := range e.rules {
		if old.Name() != r.Name() {
			candidate = append(candidate, old)
		}
	}
	candidate = append(candidate, r)
	if ok, msg := CheckRules(candidate); !ok {
		return false, msg
	}
	e.AddRule(r)
	return true, ""
}

// CheckAndRemoveRule validates the rule set that would result from removing
// the named rule and detaches it only if the rest stays valid.
func (e *Event) CheckAndRemoveRule(name string) (bool, string) {
	if e.GetRule(name) == nil {
		return false, fmt.Sprintf("no rule %q on event", name)
	}
	candidate := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Name() != name {
			candidate = append(candidate, r)
		}
	}
	if ok, msg := CheckRules(candidate); !ok {
		return false, msg
	}
	e.RemoveRule(name)
	return true, ""
}

// CalcOccurrence computes the event's total occurrence over [startJd, endJd).
func (e *Event) CalcOccurrence(startJd, endJd int) (occur.Set, error) {
	if info := eventTypes[e.Type]; info != nil && info.Calc != nil {
		return info.Calc(e, startJd, endJd)
	}
	return e.calcRuleOccurrence(startJd, endJd)
}

// calcRuleOccurrence folds the intersection of all rules. After each step
// the evaluation window is narrowed to the accumulated set's bounding range;
// this is purely a shortcut and never changes the final result.
func (e *Event) calcRuleOccurrence(startJd, endJd int) (occur.Set, error) {
	if len(e.rules) == 0 {
		return occur.NewDaySet(e.Location()), nil
	}
	acc, err := e.rules[0].Calc(startJd, endJd, e)
	if err != nil {
		return nil, err
	}
	for _, r := range e.rules[1:] {
		if acc.Empty() {
			return acc, nil
		}
		ws, we := startJd, endJd
		if sj, ok := acc.StartJd(); ok && sj > ws {
			ws = sj
		}
		if ej, ok := acc.EndJd(); ok && ej < we {
			we = ej
		}
		next, err := r.Calc(ws, we, e)
		if err != nil {
			return nil, err
		}
		acc = acc.Intersect(next)
	}
	return acc, nil
}

// OccurrenceData computes the occurrence for a single day.
func (e *Event) OccurrenceData(jd int) (occur.Set, error) {
	return e.CalcOccurrence(jd, jd+1)
}

// RuleHash is a structural hash over the normalised rule payloads plus the
// timezone override. Two events with equal rule data hash equally regardless
// of in-memory representation.
func (e *Event) RuleHash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(e.TimeZone))
	h.Write([]byte{0})
	for _, r := range e.rules {
		data, err := json.Marshal(r.Data())
		if err != nil {
			data = []byte(fmt.Sprintf("%v", r.Data()))
		}
		h.Write([]byte(r.Name()))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// AfterModify stamps the modification time. Callers then hand the event to
// its owning group, which reindexes only if the rule hash changed.
func (e *Event) AfterModify() {
	e.Modified = time.Now().Unix()
}

// GetData renders the event as a flat JSON-compatible mapping, the logical
// form handed to the persistence layer.
func (e *Event) GetData() map[string]any {
	rules := make([]any, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, []any{r.Name(), r.Data()})
	}
	m := map[string]any{
		"type":         e.Type,
		"calType":      e.CalType,
		"summary":      e.Summary,
		"description":  e.Description,
		"icon":         e.Icon,
		"timeZone":     e.TimeZone,
		"notifyBefore": e.NotifyBefore,
		"notifiers":    e.Notifiers,
		"modified":     e.Modified,
		"rules":        rules,
	}
	if e.Remote != nil {
		m["remoteIds"] = map[string]any{
			"accountId": e.Remote.AccountID,
			"groupId":   e.Remote.GroupID,
			"eventId":   e.Remote.EventID,
		}
	}
	if e.Type == TypeLargeScale {
		m["scale"] = e.Scale
		m["start"] = e.ScaleStart
		m["end"] = e.ScaleEnd
	}
	if e.CourseID != 0 {
		m["courseId"] = e.CourseID
	}
	return m
}

// SetData restores the event from its persisted mapping. Malformed rule
// payloads are logged and the rule keeps its default value, so one bad event
// never prevents loading a whole group.
func (e *Event) SetData(m map[string]any) error {
	if t, err := asString(m["type"]); err == nil && t != "" {
		if _, known := eventTypes[t]; !known {
			return fmt.Errorf("unknown event type %q", t)
		}
		e.Type = t
	}
	if s, err := asString(m["calType"]); err == nil && s != "" {
		if _, ok := calendar.ByName(s); !ok {
			log.Warn("unknown calendar type, keeping default", "calType", s, "eventId", e.ID)
		} else {
			e.CalType = s
		}
	}
	if s, err := asString(m["summary"]); err == nil {
		e.Summary = s
	}
	if s, err := asString(m["description"]); err == nil {
		e.Description = s
	}
	if s, err := asString(m["icon"]); err == nil {
		e.Icon = s
	}
	if s, err := asString(m["timeZone"]); err == nil {
		e.TimeZone = s
	}
	if n, err := asInt64(m["notifyBefore"]); err == nil {
		e.NotifyBefore = n
	}
	if items, ok := m["notifiers"].([]any); ok {
		e.Notifiers = e.Notifiers[:0]
		for _, item := range items {
			if s, err := asString(item); err == nil {
				e.Notifiers = append(e.Notifiers, s)
			}
		}
	}
	if n, err := asInt64(m["modified"]); err == nil {
		e.Modified = n
	}
	if rm, err := asMap(m["remoteIds"]); err == nil {
		ids := &RemoteIDs{}
		ids.AccountID, _ = asString(rm["accountId"])
		ids.GroupID, _ = asString(rm["groupId"])
		ids.EventID, _ = asString(rm["eventId"])
		e.Remote = ids
	}
	if n, err := asInt64(m["scale"]); err == nil {
		e.Scale = n
	}
	if n, err := asInt64(m["start"]); err == nil && e.Type == TypeLargeScale {
		e.ScaleStart = n
	}
	if n, err := asInt64(m["end"]); err == nil && e.Type == TypeLargeScale {
		e.ScaleEnd = n
	}
	if n, err := asInt64(m["courseId"]); err == nil {
		e.CourseID = n
	}

	if rawRules, ok := m["rules"].([]any); ok {
		for _, raw := range rawRules {
			pair, ok := raw.([]any)
			if !ok || len(pair) != 2 {
				log.Warn("malformed rule entry, skipping", "eventId", e.ID)
				continue
			}
			name, err := asString(pair[0])
			if err != nil {
				log.Warn("malformed rule name, skipping", "eventId", e.ID)
				continue
			}
			r, ok := NewRule(name)
			if !ok {
				log.Warn("unknown rule, skipping", "rule", name, "eventId", e.ID)
				continue
			}
			if err := r.SetData(pair[1]); err != nil {
				// Best effort: keep the rule at its default value.
				log.Error("bad rule data, keeping defaults", err, "rule", name, "eventId", e.ID)
			}
			e.AddRule(r)
		}
	}
	return nil
}
