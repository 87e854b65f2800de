package htmlpatch

import (
	"htmlpatch/internal/html"
	"htmlpatch/internal/index"
)

// Structural edits splice the buffer immediately and keep every indexed span
// addressing its text. Each one inserts a clone of the given element, so the
// caller's element is never adopted. References to elements that are not
// indexed in this session make the edit a no-op.

// AppendTo inserts child as the last child of parent, just before its close
// tag. Appending to a void element does nothing.
func (s *Session) AppendTo(parent, child *html.Element) *Session {
	pe, ok := s.entry(parent)
	if !ok || parent.IsVoid() || child == nil {
		return s
	}
	clone := child.Clone()
	parts := parent.Parts()
	if parts.Detached || parts.Tail != "" {
		// Replaced inner content and pending appended markup are written
		// at render, so the new markup has to follow them.
		parent.AppendHTML(clone.OuterHTML())
		s.inserted = nil
		return s
	}
	s.insert(clone, pe.End-len(parts.Close), pe.ID)
	return s
}

// InsertBefore inserts el right before ref.
func (s *Session) InsertBefore(el, ref *html.Element) *Session {
	re, ok := s.entry(ref)
	if !ok || el == nil {
		return s
	}
	s.insert(el.Clone(), re.Start, re.Parent)
	return s
}

// InsertAfter inserts el right after ref.
func (s *Session) InsertAfter(el, ref *html.Element) *Session {
	re, ok := s.entry(ref)
	if !ok || el == nil {
		return s
	}
	s.insert(el.Clone(), re.End, re.Parent)
	return s
}

// Remove deletes ref and every element indexed inside it.
func (s *Session) Remove(ref *html.Element) *Session {
	re, ok := s.entry(ref)
	if !ok {
		return s
	}
	start, length, parent := re.Start, re.Len(), re.Parent
	s.forget(s.ix.RemoveSubtree(re.ID))
	s.splice(start, length, "")
	s.touch(parent)
	s.stats.Mutations++
	s.check()
	return s
}

// Replace puts el where old is, removing old and its indexed descendants.
func (s *Session) Replace(el, old *html.Element) *Session {
	oe, ok := s.entry(old)
	if !ok || el == nil {
		return s
	}
	clone := el.Clone()
	text := clone.OuterHTML()
	start, length, parent := oe.Start, oe.Len(), oe.Parent
	s.forget(s.ix.RemoveSubtree(oe.ID))
	s.splice(start, length, text)
	s.adopt(clone, text, start)
	s.touch(parent)
	s.stats.Mutations++
	s.check()
	return s
}

func (s *Session) insert(clone *html.Element, pos, parent int) {
	text := clone.OuterHTML()
	s.splice(pos, 0, text)
	s.adopt(clone, text, pos)
	s.touch(parent)
	s.stats.Mutations++
	s.check()
}

// adopt indexes a clone whose markup now sits in the buffer at pos.
func (s *Session) adopt(clone *html.Element, text string, pos int) {
	// The buffer holds the clone's current markup, so it starts clean.
	if err := clone.Reset(text); err != nil && s.strict {
		panic(err)
	}
	s.register(clone, text, pos)
	s.inserted = clone
}

// splice replaces buf[pos:pos+oldLen] with text, moves the index and brings
// the elements containing the region up to date with their new text.
func (s *Session) splice(pos, oldLen int, text string) {
	s.buf = s.buf[:pos] + text + s.buf[pos+oldLen:]
	for _, id := range s.ix.Splice(pos, oldLen, len(text)) {
		e, _ := s.ix.Get(id)
		e.Original = s.buf[e.Start:e.End]
		if err := s.elements[id].Resync(e.Original); err != nil && s.strict {
			panic(err)
		}
	}
	s.invalidate()
}

// touch marks the element with the given id content-modified.
func (s *Session) touch(id int) {
	if id == index.NoParent {
		return
	}
	if el, ok := s.elements[id]; ok {
		el.MarkContentModified()
	}
}
