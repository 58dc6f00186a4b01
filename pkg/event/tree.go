package event

// The occurrence index: a lazily growing interval tree centered at an epoch
// offset. Each node covers base^level seconds and splits into base children;
// an interval is stored in the deepest node that fully contains it, keyed by
// event id so per-event removal is node-local. The tree grows by wrapping
// the current root in a larger parent, so coverage at least multiplies by
// base per growth step and insertion terminates in O(log(range)) steps.
//
// Intervals left of the center are handled by a second root over mirrored
// coordinates; an interval straddling the center is split into two
// sub-insertions.

const treeBase = 8

// IndexEntry is one query result: an occurrence interval clipped to the
// query range, tagged with its event id.
type IndexEntry struct {
	Start   int64
	End     int64
	EventID int64
}

type treeEntry struct {
	start int64 // absolute epoch seconds
	end   int64
}

type treeNode struct {
	level    int   // scope size is base^level
	lo       int64 // scope start in side-relative coordinates
	children map[int64]*treeNode
	entries  map[int64][]treeEntry
}

func (n *treeNode) size() int64 {
	return ipow(treeBase, n.level)
}

func ipow(b int64, e int) int64 {
	out := int64(1)
	for ; e > 0; e-- {
		out *= b
	}
	return out
}

// sideTree covers [0, base^rootLevel) in side-relative coordinates and only
// grows upward.
type sideTree struct {
	root *treeNode
}

// insert places an interval [rel0, rel1), 0 <= rel0 < rel1, storing the
// absolute entry in the deepest node whose scope fully contains it.
// Returns the node the entry landed in.
func (t *sideTree) insert(rel0, rel1 int64, id int64, ent treeEntry) *treeNode {
	if t.root == nil {
		level := 0
		for ipow(treeBase, level) < rel1 {
			level++
		}
		t.root = &treeNode{level: level}
	}
	for t.root.size() < rel1 {
		parent := &treeNode{level: t.root.level + 1}
		parent.children = map[int64]*treeNode{0: t.root}
		t.root = parent
	}
	n := t.root
	for n.level > 0 {
		csize := n.size() / treeBase
		i0 := (rel0 - n.lo) / csize
		i1 := (rel1 - 1 - n.lo) / csize
		if i0 != i1 {
			break
		}
		if n.children == nil {
			n.children = map[int64]*treeNode{}
		}
		child := n.children[i0]
		if child == nil {
			child = &treeNode{level: n.level - 1, lo: n.lo + i0*csize}
			n.children[i0] = child
		}
		n = child
	}
	if n.entries == nil {
		n.entries = map[int64][]treeEntry{}
	}
	n.entries[id] = append(n.entries[id], ent)
	return n
}

// visit walks every node whose scope intersects [rel0, rel1).
func (t *sideTree) visit(rel0, rel1 int64, fn func(*treeNode)) {
	if t.root == nil || rel1 <= 0 {
		return
	}
	var walk func(n *treeNode)
	walk = func(n *treeNode) {
		size := n.size()
		if rel1 <= n.lo || rel0 >= n.lo+size {
			return
		}
		fn(n)
		if n.level == 0 || len(n.children) == 0 {
			return
		}
		csize := size / treeBase
		lo := (rel0 - n.lo) / csize
		if lo < 0 {
			lo = 0
		}
		hi := (rel1 - 1 - n.lo) / csize
		if hi > treeBase-1 {
			hi = treeBase - 1
		}
		for i := lo; i <= hi; i++ {
			if c := n.children[i]; c != nil {
				walk(c)
			}
		}
	}
	walk(t.root)
}

// IntervalTree indexes (start, end, eventId) triples for range-overlap
// queries.
type IntervalTree struct {
	offset int64
	right  sideTree // [offset, +inf), rel = t - offset
	left   sideTree // (-inf, offset), mirrored: rel = offset - t
	refs   map[int64][]*treeNode
}

// NewIntervalTree builds an empty tree centered at the given epoch offset.
func NewIntervalTree(offset int64) *IntervalTree {
	return &IntervalTree{offset: offset, refs: map[int64][]*treeNode{}}
}

// Insert adds one interval for an event. Zero or negative width intervals
// are never stored.
func (t *IntervalTree) Insert(start, end, eventID int64) {
	if end <= start {
		return
	}
	if start < t.offset && end > t.offset {
		t.Insert(start, t.offset, eventID)
		t.Insert(t.offset, end, eventID)
		return
	}
	ent := treeEntry{start: start, end: end}
	var n *treeNode
	if start >= t.offset {
		n = t.right.insert(start-t.offset, end-t.offset, eventID, ent)
	} else {
		n = t.left.insert(t.offset-end, t.offset-start, eventID, ent)
	}
	t.refs[eventID] = append(t.refs[eventID], n)
}

// Query returns all stored intervals overlapping [from, to), clipped to the
// query bounds. An empty tree yields an empty result.
func (t *IntervalTree) Query(from, to int64) []IndexEntry {
	var out []IndexEntry
	if to <= from {
		return out
	}
	collect := func(n *treeNode) {
		for id, ents := range n.entries {
			for _, ent := range ents {
				lo := max(ent.start, from)
				hi := min(ent.end, to)
				if lo < hi {
					out = append(out, IndexEntry{Start: lo, End: hi, EventID: id})
				}
			}
		}
	}
	if to > t.offset {
		r0 := max(from, t.offset) - t.offset
		t.right.visit(r0, to-t.offset, collect)
	}
	if from < t.offset {
		l0 := t.offset - min(to, t.offset)
		t.left.visit(l0, t.offset-from, collect)
	}
	return out
}

// DeleteEvent removes every interval stored for an event, touching only the
// nodes that hold its entries.
func (t *IntervalTree) DeleteEvent(eventID int64) {
	for _, n := range t.refs[eventID] {
		delete(n.entries, eventID)
	}
	delete(t.refs, eventID)
}

// Len returns the total number of stored intervals.
func (t *IntervalTree) Len() int {
	total := 0
	for id, nodes := range t.refs {
		seen := map[*treeNode]struct{}{}
		for _, n := range nodes {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			total += len(n.entries[id])
		}
	}
	return total
}
