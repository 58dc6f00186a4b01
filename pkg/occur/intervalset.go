package occur

import (
	"time"

	"github.com/djwarf/eventcal/pkg/calendar"
)

// IntervalSet is a set of closed-open epoch-second ranges. Producers may add
// ranges in any order and with overlaps; views normalise.
type IntervalSet struct {
	loc    *time.Location
	ranges []Range
}

// NewIntervalSet builds an IntervalSet over the given ranges.
func NewIntervalSet(loc *time.Location, ranges ...Range) *IntervalSet {
	return &IntervalSet{loc: loc, ranges: append([]Range(nil), ranges...)}
}

// Add appends one range. Empty ranges are kept out of every view but are
// harmless to add.
func (s *IntervalSet) Add(start, end int64) {
	s.ranges = append(s.ranges, Range{start, end})
}

func (s *IntervalSet) normalized() []Range {
	return normalizeRanges(s.ranges)
}

func (s *IntervalSet) Empty() bool {
	return len(s.normalized()) == 0
}

func (s *IntervalSet) StartJd() (int, bool) {
	n := s.normalized()
	if len(n) == 0 {
		return 0, false
	}
	return calendar.EpochToJd(n[0].Start, s.loc), true
}

func (s *IntervalSet) EndJd() (int, bool) {
	n := s.normalized()
	if len(n) == 0 {
		return 0, false
	}
	return calendar.EpochToJd(n[len(n)-1].End-1, s.loc) + 1, true
}

func (s *IntervalSet) DaysJd() []int {
	return rangesDaysJd(s.normalized(), s.loc)
}

func (s *IntervalSet) TimeRanges() []Range {
	return s.normalized()
}

func (s *IntervalSet) Intersect(other Set) Set {
	switch o := other.(type) {
	case *DaySet:
		return NewIntervalSet(s.loc, intersectRanges(s.normalized(), o.TimeRanges())...)
	case *IntervalSet:
		return NewIntervalSet(s.loc, intersectRanges(s.normalized(), o.normalized())...)
	case *InstantSet:
		return newInstantSetSorted(s.loc, filterInstants(o.times, s.normalized()))
	}
	return NewIntervalSet(s.loc)
}
