package occur

import (
	"sort"
	"time"

	"github.com/djwarf/eventcal/pkg/calendar"
)

// InstantSet is a set of discrete epoch-second instants (zero-duration
// occurrences such as a daily time-of-day trigger).
type InstantSet struct {
	loc   *time.Location
	times []int64
}

// NewInstantSet builds an InstantSet over the given instants.
func NewInstantSet(loc *time.Location, times ...int64) *InstantSet {
	s := &InstantSet{loc: loc, times: append([]int64(nil), times...)}
	s.sortDedup()
	return s
}

func newInstantSetSorted(loc *time.Location, times []int64) *InstantSet {
	return &InstantSet{loc: loc, times: times}
}

// Add inserts one instant.
func (s *InstantSet) Add(t int64) {
	s.times = append(s.times, t)
	s.sortDedup()
}

func (s *InstantSet) sortDedup() {
	sort.Slice(s.times, func(i, j int) bool { return s.times[i] < s.times[j] })
	out := s.times[:0]
	for _, t := range s.times {
		if len(out) > 0 && out[len(out)-1] == t {
			continue
		}
		out = append(out, t)
	}
	s.times = out
}

// Times returns the sorted instants.
func (s *InstantSet) Times() []int64 {
	return append([]int64(nil), s.times...)
}

func (s *InstantSet) Empty() bool { return len(s.times) == 0 }

func (s *InstantSet) StartJd() (int, bool) {
	if len(s.times) == 0 {
		return 0, false
	}
	return calendar.EpochToJd(s.times[0], s.loc), true
}

func (s *InstantSet) EndJd() (int, bool) {
	if len(s.times) == 0 {
		return 0, false
	}
	return calendar.EpochToJd(s.times[len(s.times)-1], s.loc) + 1, true
}

func (s *InstantSet) DaysJd() []int {
	var out []int
	for _, t := range s.times {
		jd := calendar.EpochToJd(t, s.loc)
		if len(out) > 0 && out[len(out)-1] == jd {
			continue
		}
		out = append(out, jd)
	}
	return out
}

// TimeRanges renders each instant one second wide so that the interval index
// (which drops zero-width entries) can still store it.
func (s *InstantSet) TimeRanges() []Range {
	out := make([]Range, 0, len(s.times))
	for _, t := range s.times {
		out = append(out, Range{t, t + 1})
	}
	return out
}

func (s *InstantSet) Intersect(other Set) Set {
	switch o := other.(type) {
	case *InstantSet:
		var out []int64
		i, j := 0, 0
		for i < len(s.times) && j < len(o.times) {
			switch {
			case s.times[i] == o.times[j]:
				out = append(out, s.times[i])
				i++
				j++
			case s.times[i] < o.times[j]:
				i++
			default:
				j++
			}
		}
		return newInstantSetSorted(s.loc, out)
	case *DaySet:
		return newInstantSetSorted(s.loc, filterInstants(s.times, o.TimeRanges()))
	case *IntervalSet:
		return newInstantSetSorted(s.loc, filterInstants(s.times, o.normalized()))
	}
	return NewInstantSet(s.loc)
}
