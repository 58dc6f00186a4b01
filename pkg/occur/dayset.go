package occur

import (
	"sort"
	"time"

	"github.com/djwarf/eventcal/pkg/calendar"
)

// DaySet is a set of whole Julian Days.
type DaySet struct {
	loc  *time.Location
	days map[int]struct{}
}

// NewDaySet builds a DaySet over the given days. loc is the location used
// when the set is viewed as time ranges.
func NewDaySet(loc *time.Location, jds ...int) *DaySet {
	s := &DaySet{loc: loc, days: make(map[int]struct{}, len(jds))}
	for _, jd := range jds {
		s.days[jd] = struct{}{}
	}
	return s
}

// NewDaySetRange builds a DaySet containing every day of [startJd, endJd).
func NewDaySetRange(loc *time.Location, startJd, endJd int) *DaySet {
	s := &DaySet{loc: loc, days: make(map[int]struct{}, max(0, endJd-startJd))}
	for jd := startJd; jd < endJd; jd++ {
		s.days[jd] = struct{}{}
	}
	return s
}

// Add inserts one day.
func (s *DaySet) Add(jd int) {
	s.days[jd] = struct{}{}
}

// Has reports membership of one day.
func (s *DaySet) Has(jd int) bool {
	_, ok := s.days[jd]
	return ok
}

func (s *DaySet) Empty() bool { return len(s.days) == 0 }

func (s *DaySet) StartJd() (int, bool) {
	if len(s.days) == 0 {
		return 0, false
	}
	first := true
	lo := 0
	for jd := range s.days {
		if first || jd < lo {
			lo = jd
			first = false
		}
	}
	return lo, true
}

func (s *DaySet) EndJd() (int, bool) {
	if len(s.days) == 0 {
		return 0, false
	}
	first := true
	hi := 0
	for jd := range s.days {
		if first || jd > hi {
			hi = jd
			first = false
		}
	}
	return hi + 1, true
}

func (s *DaySet) DaysJd() []int {
	out := make([]int, 0, len(s.days))
	for jd := range s.days {
		out = append(out, jd)
	}
	sort.Ints(out)
	return out
}

// TimeRanges converts each run of consecutive days to a single closed-open
// range of epoch seconds.
func (s *DaySet) TimeRanges() []Range {
	days := s.DaysJd()
	var out []Range
	for i := 0; i < len(days); {
		j := i + 1
		for j < len(days) && days[j] == days[j-1]+1 {
			j++
		}
		out = append(out, Range{
			Start: calendar.JdToEpoch(days[i], s.loc),
			End:   calendar.JdToEpoch(days[j-1]+1, s.loc),
		})
		i = j
	}
	return out
}

func (s *DaySet) Intersect(other Set) Set {
	switch o := other.(type) {
	case *DaySet:
		out := NewDaySet(s.loc)
		small, big := s, o
		if len(big.days) < len(small.days) {
			small, big = big, small
		}
		for jd := range small.days {
			if big.Has(jd) {
				out.Add(jd)
			}
		}
		return out
	case *IntervalSet:
		return NewIntervalSet(s.loc, intersectRanges(s.TimeRanges(), o.normalized())...)
	case *InstantSet:
		return newInstantSetSorted(s.loc, filterInstants(o.times, s.TimeRanges()))
	}
	return NewDaySet(s.loc)
}
