package htmlpatch

import (
	"strings"

	"htmlpatch/internal/html"
	"htmlpatch/internal/index"
)

// Content renders the document. Modified elements are folded into their
// recorded parent bottom-up and written in place of their source text; every
// other byte is copied from the buffer. The rendered text becomes the new
// buffer and all surviving elements start clean again. With nothing
// modified the buffer is returned as is.
func (s *Session) Content() string {
	r := &renderer{
		s:     s,
		dirty: make(map[int]bool),
		spans: make(map[int]span),
	}
	roots := s.ix.Roots()
	changed := false
	for _, e := range roots {
		if r.isDirty(e) {
			changed = true
		}
	}
	if !changed {
		return s.buf
	}

	cursor := 0
	for _, e := range roots {
		if e.Start < cursor {
			// Spans nest or are disjoint, so this only happens on a broken index.
			continue
		}
		r.out.WriteString(s.buf[cursor:e.Start])
		r.emit(e)
		cursor = e.End
	}
	r.out.WriteString(s.buf[cursor:])
	r.commit()
	return s.buf
}

// String implements fmt.Stringer.
func (s *Session) String() string {
	return s.Content()
}

type renderer struct {
	s       *Session
	out     strings.Builder
	dirty   map[int]bool
	spans   map[int]span // new span per surviving entry
	dropped []int        // entries whose source text no longer exists
}

func (r *renderer) isDirty(e *index.Entry) bool {
	if d, ok := r.dirty[e.ID]; ok {
		return d
	}
	d := r.s.elements[e.ID].IsModified()
	for _, c := range r.s.ix.ChildEntries(e) {
		if r.isDirty(c) {
			d = true
		}
	}
	r.dirty[e.ID] = d
	return d
}

// emit writes the current markup of e at the end of the output.
func (r *renderer) emit(e *index.Entry) {
	start := r.out.Len()
	if !r.isDirty(e) {
		r.out.WriteString(e.Original)
		r.shift(e, start-e.Start)
		return
	}

	el := r.s.elements[e.ID]
	if el.IsModified() {
		r.s.stats.Substitutions++
	}
	p := el.Parts()
	r.out.WriteString(p.Open)
	switch {
	case p.Void:
	case p.Detached:
		for _, c := range r.s.ix.ChildEntries(e) {
			r.dropped = append(r.dropped, c.ID)
		}
		r.out.WriteString(p.Inner)
		r.out.WriteString(p.Tail)
		r.out.WriteString(p.Close)
	default:
		r.fold(e, p)
		r.out.WriteString(p.Tail)
		r.out.WriteString(p.Close)
	}
	r.spans[e.ID] = span{start: start, end: r.out.Len()}
}

// fold writes the inner content of e with each indexed child replaced by its
// own rendering. A child is placed at its tracked offset; if the text there
// is not its source, the first occurrence after the previous child is used.
func (r *renderer) fold(e *index.Entry, p html.Parts) {
	inner := p.Inner
	base := e.Start + len(p.SourceOpen)
	cursor := 0
	for _, c := range r.s.ix.ChildEntries(e) {
		at := c.Start - base
		if at < cursor || at+c.Len() > len(inner) || inner[at:at+c.Len()] != c.Original {
			i := strings.Index(inner[cursor:], c.Original)
			if i < 0 {
				r.drop(c)
				continue
			}
			at = cursor + i
		}
		r.out.WriteString(inner[cursor:at])
		r.emit(c)
		cursor = at + c.Len()
	}
	r.out.WriteString(inner[cursor:])
}

// shift records the spans of an untouched subtree moved by delta.
func (r *renderer) shift(e *index.Entry, delta int) {
	r.spans[e.ID] = span{start: e.Start + delta, end: e.End + delta}
	for _, c := range r.s.ix.ChildEntries(e) {
		r.shift(c, delta)
	}
}

func (r *renderer) drop(e *index.Entry) {
	r.dropped = append(r.dropped, e.ID)
}

// commit replaces the buffer with the output and resets every element to
// its rendered text.
func (r *renderer) commit() {
	s := r.s
	for _, id := range r.dropped {
		s.forget(s.ix.RemoveSubtree(id))
	}
	s.buf = r.out.String()
	for _, e := range s.ix.Entries() {
		sp, ok := r.spans[e.ID]
		if !ok {
			continue
		}
		e.Start, e.End = sp.start, sp.end
		e.Original = s.buf[sp.start:sp.end]
		if err := s.elements[e.ID].Reset(e.Original); err != nil && s.strict {
			panic(err)
		}
	}
	s.ix.Resort()
	s.invalidate()
	s.stats.Renders++
	s.check()
}
