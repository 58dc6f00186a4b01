package event

import (
	"math/rand"
	"sort"
	"testing"
)

func collectIDs(entries []IndexEntry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.EventID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestTreeInsertQuery(t *testing.T) {
	tr := NewIntervalTree(1000)
	tr.Insert(1000, 2000, 1)
	tr.Insert(1500, 2500, 2)
	tr.Insert(5000, 6000, 3)

	got := collectIDs(tr.Query(1800, 1900))
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("overlap query ids = %v", got)
	}
	if res := tr.Query(2500, 5000); len(res) != 0 {
		t.Errorf("gap query = %v", res)
	}
	// Closed-open: an interval's End is not part of it.
	if res := tr.Query(2000, 2001); len(res) != 1 || res[0].EventID != 2 {
		t.Errorf("boundary query = %v", res)
	}
}

func TestTreeClipsResults(t *testing.T) {
	tr := NewIntervalTree(0)
	tr.Insert(100, 500, 7)
	res := tr.Query(200, 300)
	if len(res) != 1 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].Start != 200 || res[0].End != 300 {
		t.Errorf("clipped entry = [%d, %d), want [200, 300)", res[0].Start, res[0].End)
	}
}

func TestTreeLeftOfOffset(t *testing.T) {
	tr := NewIntervalTree(10000)
	tr.Insert(2000, 3000, 1)  // entirely left
	tr.Insert(9500, 10500, 2) // straddles the center
	tr.Insert(12000, 13000, 3)

	if got := collectIDs(tr.Query(2500, 2600)); len(got) != 1 || got[0] != 1 {
		t.Errorf("left query = %v", got)
	}
	// The straddling interval must be found on both sides of the center.
	if got := collectIDs(tr.Query(9600, 9700)); len(got) != 1 || got[0] != 2 {
		t.Errorf("straddle left part = %v", got)
	}
	if got := collectIDs(tr.Query(10100, 10200)); len(got) != 1 || got[0] != 2 {
		t.Errorf("straddle right part = %v", got)
	}
	if got := collectIDs(tr.Query(0, 20000)); len(got) != 4 {
		// id 2 appears twice: once per side of the split.
		t.Errorf("full query = %v", got)
	}
}

func TestTreeGrowth(t *testing.T) {
	tr := NewIntervalTree(0)
	// Spans from tiny to far beyond the initial root scope.
	spans := []struct{ lo, hi, id int64 }{
		{1, 2, 1},
		{10, 20, 2},
		{1000, 1001, 3},
		{1 << 30, 1<<30 + 100, 4},
		{5, 1 << 20, 5},
	}
	for _, s := range spans {
		tr.Insert(s.lo, s.hi, s.id)
	}
	for _, s := range spans {
		got := tr.Query(s.lo, s.hi)
		found := false
		for _, e := range got {
			if e.EventID == s.id {
				found = true
			}
		}
		if !found {
			t.Errorf("id %d not found in its own span", s.id)
		}
	}
	if tr.Len() != len(spans) {
		t.Errorf("Len = %d, want %d", tr.Len(), len(spans))
	}
}

func TestTreeZeroWidthInsert(t *testing.T) {
	tr := NewIntervalTree(0)
	tr.Insert(100, 100, 1)
	tr.Insert(200, 150, 2)
	if tr.Len() != 0 {
		t.Errorf("zero and negative width inserts must be no-ops, Len = %d", tr.Len())
	}
	if res := tr.Query(0, 1000); len(res) != 0 {
		t.Errorf("query = %v", res)
	}
}

func TestTreeDeleteEvent(t *testing.T) {
	tr := NewIntervalTree(0)
	for i := 0; i < 10; i++ {
		tr.Insert(int64(i*100), int64(i*100+50), 1)
		tr.Insert(int64(i*100), int64(i*100+50), 2)
	}
	if tr.Len() != 20 {
		t.Fatalf("Len = %d, want 20", tr.Len())
	}
	tr.DeleteEvent(1)
	if tr.Len() != 10 {
		t.Errorf("Len after delete = %d, want 10", tr.Len())
	}
	for _, e := range tr.Query(0, 2000) {
		if e.EventID == 1 {
			t.Fatal("deleted event still returned")
		}
	}
	// Deleting an absent event is a no-op.
	tr.DeleteEvent(99)
	if tr.Len() != 10 {
		t.Errorf("Len after deleting absent id = %d, want 10", tr.Len())
	}
}

func TestTreeRandomizedAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := NewIntervalTree(500000)
	type span struct{ lo, hi, id int64 }
	var live []span
	for id := int64(1); id <= 200; id++ {
		lo := int64(rng.Intn(1000000))
		hi := lo + int64(rng.Intn(5000)) + 1
		tr.Insert(lo, hi, id)
		live = append(live, span{lo, hi, id})
	}
	// Drop a third of the events.
	for id := int64(1); id <= 200; id += 3 {
		tr.DeleteEvent(id)
		kept := live[:0]
		for _, s := range live {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		live = kept
	}
	for q := 0; q < 100; q++ {
		from := int64(rng.Intn(1000000))
		to := from + int64(rng.Intn(20000))
		want := map[int64]bool{}
		for _, s := range live {
			if s.lo < to && s.hi > from {
				want[s.id] = true
			}
		}
		got := map[int64]bool{}
		for _, e := range tr.Query(from, to) {
			got[e.EventID] = true
			if e.Start < from || e.End > to {
				t.Fatalf("entry [%d,%d) not clipped to [%d,%d)", e.Start, e.End, from, to)
			}
		}
		if len(got) != len(want) {
			t.Fatalf("query [%d,%d): got %d ids, want %d", from, to, len(got), len(want))
		}
		for id := range want {
			if !got[id] {
				t.Fatalf("query [%d,%d): missing id %d", from, to, id)
			}
		}
	}
}
