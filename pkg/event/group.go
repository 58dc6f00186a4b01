package event

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/djwarf/eventcal/internal/log"
	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/occur"
)

// lastEventID backs app-wide event id allocation. The store seeds it from
// the database on open; purely in-memory use just counts from zero.
var lastEventID atomic.Int64

// NextEventID allocates a new application-wide unique event id.
func NextEventID() int64 {
	return lastEventID.Add(1)
}

// SeedEventID raises the id counter to at least n.
func SeedEventID(n int64) {
	for {
		cur := lastEventID.Load()
		if cur >= n || lastEventID.CompareAndSwap(cur, n) {
			return
		}
	}
}

// SearchResult is one matching event with the bounding range of its in-range
// occurrences, clipped to the query.
type SearchResult struct {
	EventID int64
	Start   int64
	End     int64
}

// Group owns an ordered set of events and keeps an interval index of their
// occurrences over [StartJd, EndJd). The group is the serialization
// boundary: all mutation of its events and index goes through it.
type Group struct {
	ID      int64
	Title   string
	Color   string
	Enable  bool
	CalType string
	StartJd int
	EndJd   int

	events     map[int64]*Event
	order      []int64
	index      *IntervalTree
	ruleHashes map[int64]uint64
}

// NewGroup creates an enabled group indexing occurrences over
// [startJd, endJd).
func NewGroup(title string, startJd, endJd int) *Group {
	g := &Group{
		Title:   title,
		Color:   "#4285f4",
		Enable:  true,
		CalType: calendar.Gregorian.Name(),
		StartJd: startJd,
		EndJd:   endJd,
	}
	g.reset()
	return g
}

func (g *Group) reset() {
	g.events = map[int64]*Event{}
	g.order = nil
	g.resetIndex()
}

func (g *Group) resetIndex() {
	g.index = NewIntervalTree(calendar.JdToEpoch(g.StartJd, time.UTC))
	g.ruleHashes = map[int64]uint64{}
}

// Create builds a new event of the given type for this group. The event is
// not added until Add is called.
func (g *Group) Create(typ string) (*Event, error) {
	e, err := NewEvent(typ)
	if err != nil {
		return nil, err
	}
	e.CalType = g.CalType
	return e, nil
}

// Len returns the number of member events.
func (g *Group) Len() int { return len(g.order) }

// EventIDs returns the member event ids in order.
func (g *Group) EventIDs() []int64 {
	return append([]int64(nil), g.order...)
}

// Event returns a member event by id.
func (g *Group) Event(id int64) (*Event, bool) {
	e, ok := g.events[id]
	return e, ok
}

// Add takes ownership of an event, assigning an id if it has none, and
// indexes its occurrences.
func (g *Group) Add(e *Event) error {
	if e.ID == 0 {
		e.ID = NextEventID()
	}
	if _, dup := g.events[e.ID]; dup {
		return fmt.Errorf("event %d already in group %d", e.ID, g.ID)
	}
	g.events[e.ID] = e
	g.order = append(g.order, e.ID)
	return g.UpdateOccurrenceEvent(e)
}

// Remove releases the event from this group and drops its index entries.
// The caller takes over ownership (typically the trash).
func (g *Group) Remove(id int64) (*Event, bool) {
	e, ok := g.events[id]
	if !ok {
		return nil, false
	}
	delete(g.events, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.index.DeleteEvent(id)
	delete(g.ruleHashes, id)
	return e, true
}

// UpdateOccurrenceEvent refreshes the index entries of a single member
// event. It is a no-op when the event's rule hash is unchanged, so no-op
// edits never trigger a reindex.
func (g *Group) UpdateOccurrenceEvent(e *Event) error {
	if _, ok := g.events[e.ID]; !ok {
		return fmt.Errorf("event %d not owned by group %d", e.ID, g.ID)
	}
	h := e.RuleHash()
	if old, ok := g.ruleHashes[e.ID]; ok && old == h {
		return nil
	}
	g.index.DeleteEvent(e.ID)
	g.ruleHashes[e.ID] = h
	if !g.Enable {
		return nil
	}
	s, err := e.CalcOccurrence(g.StartJd, g.EndJd)
	if err != nil {
		return fmt.Errorf("calc occurrence for event %d: %w", e.ID, err)
	}
	for _, r := range s.TimeRanges() {
		g.index.Insert(r.Start, r.End, e.ID)
	}
	return nil
}

// UpdateOccurrence rebuilds the whole index. Used on bulk changes: bound,
// calendar type or enable flag.
func (g *Group) UpdateOccurrence() error {
	g.resetIndex()
	if !g.Enable {
		return nil
	}
	for _, id := range g.order {
		e := g.events[id]
		h := e.RuleHash()
		s, err := e.CalcOccurrence(g.StartJd, g.EndJd)
		if err != nil {
			log.Error("skipping event in reindex", err, "eventId", id, "groupId", g.ID)
			continue
		}
		for _, r := range s.TimeRanges() {
			g.index.Insert(r.Start, r.End, id)
		}
		g.ruleHashes[id] = h
	}
	return nil
}

// SetBounds changes the indexing bound and rebuilds.
func (g *Group) SetBounds(startJd, endJd int) error {
	g.StartJd = startJd
	g.EndJd = endJd
	return g.UpdateOccurrence()
}

// SetCalType changes the group's default calendar system and rebuilds.
func (g *Group) SetCalType(name string) error {
	if _, ok := calendar.ByName(name); !ok {
		return fmt.Errorf("unknown calendar type %q", name)
	}
	g.CalType = name
	return g.UpdateOccurrence()
}

// SetEnable toggles the group. Disabled groups are excluded from all
// occurrence queries.
func (g *Group) SetEnable(enable bool) error {
	if g.Enable == enable {
		return nil
	}
	g.Enable = enable
	return g.UpdateOccurrence()
}

// Search returns the events whose occurrences overlap [from, to), one result
// per event, with optional non-temporal filter predicates applied to the
// resolved events.
func (g *Group) Search(from, to int64, filters ...func(*Event) bool) []SearchResult {
	if !g.Enable {
		return nil
	}
	agg := map[int64]*SearchResult{}
	for _, ent := range g.index.Query(from, to) {
		r, ok := agg[ent.EventID]
		if !ok {
			agg[ent.EventID] = &SearchResult{EventID: ent.EventID, Start: ent.Start, End: ent.End}
			continue
		}
		if ent.Start < r.Start {
			r.Start = ent.Start
		}
		if ent.End > r.End {
			r.End = ent.End
		}
	}
	out := make([]SearchResult, 0, len(agg))
	for id, r := range agg {
		e, ok := g.events[id]
		if !ok {
			continue
		}
		keep := true
		for _, f := range filters {
			if !f(e) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}

// SearchDay returns the events occurring on a Julian Day.
func (g *Group) SearchDay(jd int, loc *time.Location, filters ...func(*Event) bool) []SearchResult {
	return g.Search(calendar.JdToEpoch(jd, loc), calendar.JdToEpoch(jd+1, loc), filters...)
}

// OccurrenceData computes the aggregated occurrence set for one day over all
// member events, used by day-grid renderers.
func (g *Group) OccurrenceData(jd int, loc *time.Location) map[int64]occur.Set {
	out := map[int64]occur.Set{}
	for _, r := range g.SearchDay(jd, loc) {
		e := g.events[r.EventID]
		s, err := e.OccurrenceData(jd)
		if err != nil {
			log.Error("occurrence data failed", err, "eventId", e.ID)
			continue
		}
		out[e.ID] = s
	}
	return out
}

// Trash owns events removed from their groups until they are restored or
// permanently deleted. Trashed events are never indexed.
type Trash struct {
	events map[int64]*Event
	order  []int64
}

// NewTrash creates an empty trash.
func NewTrash() *Trash {
	return &Trash{events: map[int64]*Event{}}
}

// Len returns the number of trashed events.
func (t *Trash) Len() int { return len(t.order) }

// EventIDs returns trashed event ids, most recently removed first.
func (t *Trash) EventIDs() []int64 {
	out := make([]int64, len(t.order))
	for i, id := range t.order {
		out[len(out)-1-i] = id
	}
	return out
}

// Event returns a trashed event by id.
func (t *Trash) Event(id int64) (*Event, bool) {
	e, ok := t.events[id]
	return e, ok
}

// MoveToTrash transfers an event from a group to the trash.
func (t *Trash) MoveToTrash(g *Group, id int64) error {
	e, ok := g.Remove(id)
	if !ok {
		return fmt.Errorf("event %d not in group %d", id, g.ID)
	}
	t.events[id] = e
	t.order = append(t.order, id)
	return nil
}

// Restore transfers an event back from the trash into a group.
func (t *Trash) Restore(g *Group, id int64) error {
	e, ok := t.events[id]
	if !ok {
		return fmt.Errorf("event %d not in trash", id)
	}
	if err := g.Add(e); err != nil {
		return err
	}
	t.remove(id)
	return nil
}

// Delete permanently discards a trashed event.
func (t *Trash) Delete(id int64) bool {
	if _, ok := t.events[id]; !ok {
		return false
	}
	t.remove(id)
	return true
}

func (t *Trash) remove(id int64) {
	delete(t.events, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}
