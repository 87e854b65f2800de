package html

import (
	"github.com/andybalholm/cascadia"
)

// ElementList is an ordered collection of elements. A nil list is empty.
type ElementList struct {
	items []*Element
}

// NewElementList creates a list holding els in order.
func NewElementList(els ...*Element) *ElementList {
	return &ElementList{items: els}
}

// Len returns the number of elements.
func (l *ElementList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// All returns the elements. The slice must not be modified.
func (l *ElementList) All() []*Element {
	if l == nil {
		return nil
	}
	return l.items
}

// Eq returns a list with the n-th element, or an empty list when n is out of
// range. Negative n counts from the end.
func (l *ElementList) Eq(n int) *ElementList {
	if n < 0 {
		n += l.Len()
	}
	if n < 0 || n >= l.Len() {
		return NewElementList()
	}
	return NewElementList(l.items[n])
}

// First returns a list with the first element.
func (l *ElementList) First() *ElementList {
	return l.Eq(0)
}

// Last returns a list with the last element.
func (l *ElementList) Last() *ElementList {
	return l.Eq(-1)
}

// Get returns the n-th element or nil.
func (l *ElementList) Get(n int) *Element {
	if n < 0 || n >= l.Len() {
		return nil
	}
	return l.items[n]
}

// Filter returns the elements for which keep reports true.
func (l *ElementList) Filter(keep func(*Element) bool) *ElementList {
	out := NewElementList()
	for _, el := range l.All() {
		if keep(el) {
			out.items = append(out.items, el)
		}
	}
	return out
}

// FilterCSS returns the elements matching a CSS selector.
func (l *ElementList) FilterCSS(selector string) (*ElementList, error) {
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, err
	}
	return l.Filter(func(el *Element) bool {
		ok, err := el.Matches(selector)
		return err == nil && ok
	}), nil
}

// Index returns the position of el, or -1.
func (l *ElementList) Index(el *Element) int {
	for i, e := range l.All() {
		if e == el {
			return i
		}
	}
	return -1
}

// Each calls fn for every element in order.
func (l *ElementList) Each(fn func(int, *Element)) {
	for i, el := range l.All() {
		fn(i, el)
	}
}
