// Package occur implements the occurrence-set algebra: the three answers to
// "when does this happen" (whole days, time intervals, discrete instants)
// and their intersection.
//
// All times are integer epoch seconds and all days are Julian Day integers;
// there is no floating point anywhere in the algebra. Intersection follows a
// fixed promotion table: DaySet∩DaySet stays a DaySet, any pairing involving
// an IntervalSet promotes to IntervalSet, and any pairing involving an
// InstantSet filters down to an InstantSet.
package occur

import (
	"sort"
	"time"

	"github.com/djwarf/eventcal/pkg/calendar"
)

// Range is a closed-open span of epoch seconds: [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Set is one evaluated occurrence set. Producers are free to emit unsorted,
// unmerged data; every consumer-facing view normalises first.
type Set interface {
	// Empty reports whether the set contains nothing.
	Empty() bool

	// StartJd returns the first Julian Day touched by the set.
	StartJd() (int, bool)

	// EndJd returns the Julian Day just past the last day touched.
	EndJd() (int, bool)

	// DaysJd returns the sorted, deduplicated day-granularity view.
	DaysJd() []int

	// TimeRanges returns the canonical closed-open interval view.
	TimeRanges() []Range

	// Intersect combines two sets per the promotion table. The receiver and
	// argument are never mutated.
	Intersect(other Set) Set
}

// normalizeRanges sorts rs, drops empty ranges and merges overlapping or
// touching ones. The input slice is not modified.
func normalizeRanges(rs []Range) []Range {
	cp := make([]Range, 0, len(rs))
	for _, r := range rs {
		if r.End > r.Start {
			cp = append(cp, r)
		}
	}
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].Start != cp[j].Start {
			return cp[i].Start < cp[j].Start
		}
		return cp[i].End < cp[j].End
	})
	out := cp[:0]
	for _, r := range cp {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			if r.End > out[n-1].End {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// intersectRanges is the two-pointer intersection of two normalised range
// lists.
func intersectRanges(a, b []Range) []Range {
	var out []Range
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := a[i].Start
		if b[j].Start > lo {
			lo = b[j].Start
		}
		hi := a[i].End
		if b[j].End < hi {
			hi = b[j].End
		}
		if lo < hi {
			out = append(out, Range{lo, hi})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// filterInstants keeps the instants that fall inside any of the normalised
// ranges.
func filterInstants(ts []int64, ranges []Range) []int64 {
	sorted := append([]int64(nil), ts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var out []int64
	j := 0
	for _, t := range sorted {
		if len(out) > 0 && out[len(out)-1] == t {
			continue
		}
		for j < len(ranges) && ranges[j].End <= t {
			j++
		}
		if j < len(ranges) && ranges[j].Start <= t {
			out = append(out, t)
		}
	}
	return out
}

func rangesDaysJd(ranges []Range, loc *time.Location) []int {
	var days []int
	for _, r := range ranges {
		first := calendar.EpochToJd(r.Start, loc)
		last := calendar.EpochToJd(r.End-1, loc)
		for jd := first; jd <= last; jd++ {
			if len(days) > 0 && days[len(days)-1] >= jd {
				continue
			}
			days = append(days, jd)
		}
	}
	sort.Ints(days)
	out := days[:0]
	for _, jd := range days {
		if len(out) > 0 && out[len(out)-1] == jd {
			continue
		}
		out = append(out, jd)
	}
	return out
}
