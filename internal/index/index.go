// Package index keeps the positional registry of elements discovered in a
// document buffer: one entry per element span, linked into a parent/child
// tree by span containment.
package index

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrInvariant is wrapped by every error returned from Validate.
var ErrInvariant = errors.New("index invariant violated")

// NoParent is the Parent value of top-level entries.
const NoParent = -1

// Entry is the metadata recorded for one element span.
type Entry struct {
	ID       int
	Original string // text at [Start, End) when last synchronized with the buffer
	Start    int
	End      int
	Parent   int
	Children []int
}

// Len returns the span length.
func (e *Entry) Len() int {
	return e.End - e.Start
}

// contains reports whether e strictly contains the span [start, end).
func (e *Entry) contains(start, end int) bool {
	if e.Start == start && e.End == end {
		return false
	}
	return e.Start <= start && end <= e.End
}

// Index maps monotonic element ids to span metadata.
type Index struct {
	entries map[int]*Entry
	order   []int    // discovery order
	byStart []*Entry // live entries by start offset; starts are unique
	nextID  int
}

// New creates an empty index.
func New() *Index {
	return &Index{entries: make(map[int]*Entry)}
}

// Len returns the number of live entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Get returns the entry for id.
func (ix *Index) Get(id int) (*Entry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

// Entries returns live entries in discovery order.
func (ix *Index) Entries() []*Entry {
	out := make([]*Entry, 0, len(ix.entries))
	for _, id := range ix.order {
		if e, ok := ix.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// search returns the position in byStart of the first entry starting at or
// after start.
func (ix *Index) search(start int) int {
	return sort.Search(len(ix.byStart), func(i int) bool {
		return ix.byStart[i].Start >= start
	})
}

// enclosing returns the entries that start before start and may contain it:
// the last entry starting before start followed by its ancestors. Any entry
// containing start with an earlier start offset is among them.
func (ix *Index) enclosing(start int) []*Entry {
	i := ix.search(start)
	if i == 0 {
		return nil
	}
	var chain []*Entry
	for e := ix.byStart[i-1]; e != nil; e = ix.entries[e.Parent] {
		chain = append(chain, e)
	}
	return chain
}

// Find returns the entry registered for exactly [start, end).
func (ix *Index) Find(start, end int) (*Entry, bool) {
	for i := ix.search(start); i < len(ix.byStart) && ix.byStart[i].Start == start; i++ {
		if e := ix.byStart[i]; e.End == end {
			return e, true
		}
	}
	return nil, false
}

// Overlaps reports whether [start, end) partially overlaps a live entry,
// which would break nesting if the span were added.
func (ix *Index) Overlaps(start, end int) bool {
	partial := func(e *Entry) bool {
		disjoint := end <= e.Start || e.End <= start
		nested := (start <= e.Start && e.End <= end) || (e.Start <= start && end <= e.End)
		return !disjoint && !nested
	}
	for i := ix.search(start); i < len(ix.byStart) && ix.byStart[i].Start < end; i++ {
		if partial(ix.byStart[i]) {
			return true
		}
	}
	for _, e := range ix.enclosing(start) {
		if partial(e) {
			return true
		}
	}
	return false
}

// Add registers a new span starting at start with the given text and
// returns its entry. The parent is the smallest existing entry strictly
// containing the span, independent of the order in which spans were added.
// Existing entries that now sit directly inside the new span are re-parented
// to it.
func (ix *Index) Add(original string, start int) *Entry {
	e := &Entry{
		ID:       ix.nextID,
		Original: original,
		Start:    start,
		End:      start + len(original),
		Parent:   NoParent,
	}
	ix.nextID++

	var parent *Entry
	for _, cand := range ix.enclosing(e.Start) {
		if cand.contains(e.Start, e.End) {
			parent = cand
			break
		}
	}
	at := ix.search(e.Start)
	for i := at; i < len(ix.byStart) && ix.byStart[i].Start == e.Start; i++ {
		cand := ix.byStart[i]
		if cand.contains(e.Start, e.End) && (parent == nil || cand.Len() < parent.Len()) {
			parent = cand
		}
	}
	if parent != nil {
		e.Parent = parent.ID
	}

	for i := at; i < len(ix.byStart) && ix.byStart[i].Start < e.End; i++ {
		other := ix.byStart[i]
		if other.Parent != e.Parent || !e.contains(other.Start, other.End) {
			continue
		}
		if parent != nil {
			parent.Children = removeID(parent.Children, other.ID)
		}
		other.Parent = e.ID
		e.Children = append(e.Children, other.ID)
	}

	if parent != nil {
		parent.Children = append(parent.Children, e.ID)
	}
	ix.entries[e.ID] = e
	ix.order = append(ix.order, e.ID)
	ix.byStart = slices.Insert(ix.byStart, at, e)
	ix.sortChildren(e)
	if parent != nil {
		ix.sortChildren(parent)
	}
	return e
}

// Splice records that the buffer region [pos, pos+oldLen) was replaced by
// newLen bytes. Entries starting at or after the end of the region move by the
// length delta; entries strictly containing the region grow or shrink. The ids
// of the containing entries are returned innermost first so callers can
// resynchronize their text. Entries inside the region must already be removed,
// so the start order of the remaining entries is unchanged.
func (ix *Index) Splice(pos, oldLen, newLen int) []int {
	delta := newLen - oldLen
	regionEnd := pos + oldLen
	var containing []*Entry
	for _, e := range ix.entries {
		switch {
		case e.Start >= regionEnd:
			e.Start += delta
			e.End += delta
		case e.Start < pos && e.End > regionEnd:
			e.End += delta
			containing = append(containing, e)
		}
	}
	sort.Slice(containing, func(i, j int) bool {
		return containing[i].Len() < containing[j].Len()
	})
	ids := make([]int, len(containing))
	for i, e := range containing {
		ids[i] = e.ID
	}
	return ids
}

// RemoveSubtree drops id and all of its descendants, unlinking id from its
// parent. The removed ids are returned.
func (ix *Index) RemoveSubtree(id int) []int {
	e, ok := ix.entries[id]
	if !ok {
		return nil
	}
	if p, ok := ix.entries[e.Parent]; ok {
		p.Children = removeID(p.Children, id)
	}
	var removed []int
	var drop func(int)
	drop = func(id int) {
		e, ok := ix.entries[id]
		if !ok {
			return
		}
		for _, c := range e.Children {
			drop(c)
		}
		delete(ix.entries, id)
		removed = append(removed, id)
	}
	drop(id)
	ix.compact()
	return removed
}

// Resort restores the start order after spans were rewritten in place.
func (ix *Index) Resort() {
	sort.SliceStable(ix.byStart, func(i, j int) bool {
		return ix.byStart[i].Start < ix.byStart[j].Start
	})
}

// IsDescendant reports whether child is recorded anywhere below parent.
func (ix *Index) IsDescendant(child, parent int) bool {
	p, ok := ix.entries[parent]
	if !ok {
		return false
	}
	for _, c := range p.Children {
		if c == child || ix.IsDescendant(child, c) {
			return true
		}
	}
	return false
}

// Roots returns top-level entries ordered by start offset.
func (ix *Index) Roots() []*Entry {
	var roots []*Entry
	for _, e := range ix.Entries() {
		if e.Parent == NoParent {
			roots = append(roots, e)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Start < roots[j].Start })
	return roots
}

// ChildEntries returns the children of e ordered by start offset.
func (ix *Index) ChildEntries(e *Entry) []*Entry {
	out := make([]*Entry, 0, len(e.Children))
	for _, id := range e.Children {
		if c, ok := ix.entries[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Validate checks every entry against buf. Offsets must be in range with
// start < end and address the recorded text, spans must nest or be disjoint,
// and parents must contain their children.
func (ix *Index) Validate(buf string) error {
	entries := ix.Entries()
	for _, e := range entries {
		if e.Start < 0 || e.End > len(buf) || e.Start >= e.End {
			return fmt.Errorf("%w: entry %d has span [%d,%d) in buffer of %d bytes",
				ErrInvariant, e.ID, e.Start, e.End, len(buf))
		}
		if buf[e.Start:e.End] != e.Original {
			return fmt.Errorf("%w: entry %d span [%d,%d) does not address its text",
				ErrInvariant, e.ID, e.Start, e.End)
		}
	}
	for i, a := range entries {
		for _, b := range entries[i+1:] {
			disjoint := a.End <= b.Start || b.End <= a.Start
			nested := a.contains(b.Start, b.End) || b.contains(a.Start, a.End)
			if !disjoint && !nested {
				return fmt.Errorf("%w: entries %d [%d,%d) and %d [%d,%d) overlap",
					ErrInvariant, a.ID, a.Start, a.End, b.ID, b.Start, b.End)
			}
		}
	}
	for _, e := range entries {
		if e.Parent == NoParent {
			continue
		}
		p, ok := ix.entries[e.Parent]
		if !ok {
			return fmt.Errorf("%w: entry %d has dangling parent %d", ErrInvariant, e.ID, e.Parent)
		}
		if !p.contains(e.Start, e.End) {
			return fmt.Errorf("%w: parent %d does not contain entry %d", ErrInvariant, p.ID, e.ID)
		}
	}
	return nil
}

func (ix *Index) sortChildren(e *Entry) {
	sort.Slice(e.Children, func(i, j int) bool {
		a, b := ix.entries[e.Children[i]], ix.entries[e.Children[j]]
		if a == nil || b == nil {
			return a != nil
		}
		return a.Start < b.Start
	})
}

func (ix *Index) compact() {
	order := ix.order[:0]
	for _, id := range ix.order {
		if _, ok := ix.entries[id]; ok {
			order = append(order, id)
		}
	}
	ix.order = order
	ix.byStart = slices.DeleteFunc(ix.byStart, func(e *Entry) bool {
		_, ok := ix.entries[e.ID]
		return !ok
	})
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
