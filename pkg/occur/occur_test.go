package occur

import (
	"reflect"
	"testing"
	"time"

	"github.com/djwarf/eventcal/pkg/calendar"
)

var utc = time.UTC

// jd0 is an arbitrary base day for these tests.
const jd0 = 2460000

func epoch(jd int) int64 {
	return calendar.JdToEpoch(jd, utc)
}

func TestDaySetViews(t *testing.T) {
	s := NewDaySet(utc, jd0+2, jd0, jd0+1, jd0+5, jd0)
	if s.Empty() {
		t.Fatal("set should not be empty")
	}
	if got := s.DaysJd(); !reflect.DeepEqual(got, []int{jd0, jd0 + 1, jd0 + 2, jd0 + 5}) {
		t.Errorf("DaysJd = %v", got)
	}
	if lo, _ := s.StartJd(); lo != jd0 {
		t.Errorf("StartJd = %d", lo)
	}
	if hi, _ := s.EndJd(); hi != jd0+6 {
		t.Errorf("EndJd = %d", hi)
	}
	// Consecutive days merge into a single range.
	want := []Range{
		{epoch(jd0), epoch(jd0 + 3)},
		{epoch(jd0 + 5), epoch(jd0 + 6)},
	}
	if got := s.TimeRanges(); !reflect.DeepEqual(got, want) {
		t.Errorf("TimeRanges = %v, want %v", got, want)
	}
}

func TestIntervalSetNormalization(t *testing.T) {
	s := NewIntervalSet(utc)
	s.Add(100, 200)
	s.Add(150, 250) // overlaps
	s.Add(250, 300) // touches
	s.Add(400, 400) // empty, dropped
	s.Add(500, 450) // inverted, dropped
	want := []Range{{100, 300}}
	if got := s.TimeRanges(); !reflect.DeepEqual(got, want) {
		t.Errorf("TimeRanges = %v, want %v", got, want)
	}
	empty := NewIntervalSet(utc, Range{10, 10})
	if !empty.Empty() {
		t.Error("set of empty ranges should be Empty")
	}
}

func TestInstantSetDedup(t *testing.T) {
	s := NewInstantSet(utc, 30, 10, 20, 10)
	if got := s.Times(); !reflect.DeepEqual(got, []int64{10, 20, 30}) {
		t.Errorf("Times = %v", got)
	}
	// Instants render one second wide so the interval index can hold them.
	if got := s.TimeRanges(); !reflect.DeepEqual(got, []Range{{10, 11}, {20, 21}, {30, 31}}) {
		t.Errorf("TimeRanges = %v", got)
	}
}

func TestIntersectPromotion(t *testing.T) {
	days := NewDaySet(utc, jd0, jd0+1, jd0+2)
	ivl := NewIntervalSet(utc, Range{epoch(jd0+1) + 3600, epoch(jd0+1) + 7200})
	inst := NewInstantSet(utc, epoch(jd0)+100, epoch(jd0+1)+3600, epoch(jd0+9))

	if _, ok := days.Intersect(NewDaySet(utc, jd0+1)).(*DaySet); !ok {
		t.Error("DaySet ∩ DaySet should stay a DaySet")
	}
	if _, ok := days.Intersect(ivl).(*IntervalSet); !ok {
		t.Error("DaySet ∩ IntervalSet should promote to IntervalSet")
	}
	if _, ok := ivl.Intersect(days).(*IntervalSet); !ok {
		t.Error("IntervalSet ∩ DaySet should promote to IntervalSet")
	}
	if _, ok := days.Intersect(inst).(*InstantSet); !ok {
		t.Error("DaySet ∩ InstantSet should filter to InstantSet")
	}
	if _, ok := inst.Intersect(ivl).(*InstantSet); !ok {
		t.Error("InstantSet ∩ IntervalSet should filter to InstantSet")
	}
}

func TestIntersectValues(t *testing.T) {
	a := NewDaySet(utc, jd0, jd0+1, jd0+4)
	b := NewDaySet(utc, jd0+1, jd0+4, jd0+9)
	got := a.Intersect(b).DaysJd()
	if !reflect.DeepEqual(got, []int{jd0 + 1, jd0 + 4}) {
		t.Errorf("day intersection = %v", got)
	}

	x := NewIntervalSet(utc, Range{0, 100}, Range{200, 300})
	y := NewIntervalSet(utc, Range{50, 250})
	want := []Range{{50, 100}, {200, 250}}
	if gr := x.Intersect(y).TimeRanges(); !reflect.DeepEqual(gr, want) {
		t.Errorf("interval intersection = %v, want %v", gr, want)
	}

	inst := NewInstantSet(utc, 10, 60, 99, 100, 250)
	filtered := x.Intersect(inst).(*InstantSet)
	// 100 is excluded: ranges are closed-open.
	if gt := filtered.Times(); !reflect.DeepEqual(gt, []int64{10, 60, 99, 250}) {
		t.Errorf("filtered instants = %v", gt)
	}
}

func TestIntersectCommutative(t *testing.T) {
	days := NewDaySet(utc, jd0, jd0+1, jd0+2, jd0+3)
	ivl := NewIntervalSet(utc,
		Range{epoch(jd0) + 10, epoch(jd0) + 20},
		Range{epoch(jd0+2), epoch(jd0+3) + 5},
	)
	inst := NewInstantSet(utc, epoch(jd0)+15, epoch(jd0+2)+1, epoch(jd0+8))

	pairs := [][2]Set{
		{days, ivl},
		{days, inst},
		{ivl, inst},
	}
	for i, p := range pairs {
		ab := p[0].Intersect(p[1]).TimeRanges()
		ba := p[1].Intersect(p[0]).TimeRanges()
		if !reflect.DeepEqual(ab, ba) {
			t.Errorf("pair %d not commutative: %v vs %v", i, ab, ba)
		}
	}
}

func TestIntersectAssociative(t *testing.T) {
	days := NewDaySet(utc, jd0, jd0+1, jd0+2)
	ivl := NewIntervalSet(utc, Range{epoch(jd0), epoch(jd0+2)})
	inst := NewInstantSet(utc, epoch(jd0)+5, epoch(jd0+1)+5, epoch(jd0+2)+5)

	left := days.Intersect(ivl).Intersect(inst).TimeRanges()
	right := days.Intersect(ivl.Intersect(inst)).TimeRanges()
	if !reflect.DeepEqual(left, right) {
		t.Errorf("not associative: %v vs %v", left, right)
	}
}

func TestEmptyIntersection(t *testing.T) {
	a := NewDaySet(utc, jd0)
	b := NewDaySet(utc, jd0+1)
	if got := a.Intersect(b); !got.Empty() {
		t.Errorf("disjoint intersection not empty: %v", got.DaysJd())
	}
	if _, ok := NewDaySet(utc).StartJd(); ok {
		t.Error("empty set must report no StartJd")
	}
}

func TestIntervalSetDaysJd(t *testing.T) {
	// A range spanning a midnight touches both days; a range ending exactly
	// at midnight does not touch the next day.
	s := NewIntervalSet(utc,
		Range{epoch(jd0) + 80000, epoch(jd0+1) + 100},
		Range{epoch(jd0 + 3), epoch(jd0 + 4)},
	)
	want := []int{jd0, jd0 + 1, jd0 + 3}
	if got := s.DaysJd(); !reflect.DeepEqual(got, want) {
		t.Errorf("DaysJd = %v, want %v", got, want)
	}
}
