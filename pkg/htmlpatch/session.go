// Package htmlpatch queries and edits hand-authored HTML in place. Elements
// are located directly in the document text and edits are spliced back so
// every byte outside the edited elements survives exactly as authored.
package htmlpatch

import (
	"fmt"

	"htmlpatch/internal/html"
	"htmlpatch/internal/index"
	"htmlpatch/internal/selector"
)

// Errors re-exported for callers outside the module.
var (
	ErrInvariant       = index.ErrInvariant
	ErrInvalidSelector = selector.ErrInvalidSelector
	ErrNotElement      = html.ErrNotElement
)

// Session owns one loaded document: the text buffer, the element index and
// the query cache. A Session is not safe for concurrent use.
type Session struct {
	buf      string
	ix       *index.Index
	elements map[int]*html.Element
	ids      map[*html.Element]int
	// cache maps a pattern key to its unfiltered result; a nil list records
	// that the pattern matched nothing.
	cache    map[string]*html.ElementList
	scanners map[string]*tagScanner
	registry *selector.Registry
	strict   bool
	inserted *html.Element
	stats    Stats
}

// Stats counts the work done by a session.
type Stats struct {
	Queries       int // Query and Select calls
	CacheHits     int // queries answered from the cache
	Discovered    int // elements added to the index by discovery
	Mutations     int // structural edits applied
	Renders       int // Content calls that rewrote the buffer
	Substitutions int // modified elements re-serialized by renders
}

// Option configures a Session.
type Option func(*Session)

// WithRegistry sets the registry of custom selector parsers.
func WithRegistry(reg *selector.Registry) Option {
	return func(s *Session) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithParsers registers custom selector parsers.
func WithParsers(parsers ...selector.Parser) Option {
	return func(s *Session) {
		for _, p := range parsers {
			s.registry.Register(p)
		}
	}
}

// WithStrict makes the session validate the index after every mutation and
// render, panicking on a violation.
func WithStrict(strict bool) Option {
	return func(s *Session) {
		s.strict = strict
	}
}

// Load starts a session over source.
func Load(source string, opts ...Option) *Session {
	s := &Session{
		buf:      source,
		ix:       index.New(),
		elements: make(map[int]*html.Element),
		ids:      make(map[*html.Element]int),
		cache:    make(map[string]*html.ElementList),
		scanners: make(map[string]*tagScanner),
		registry: selector.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParser adds a custom selector parser.
func (s *Session) RegisterParser(p selector.Parser) {
	s.registry.Register(p)
}

// Registry returns the session's parser registry.
func (s *Session) Registry() *selector.Registry {
	return s.registry
}

// Buffer returns the current document text without rendering pending edits.
func (s *Session) Buffer() string {
	return s.buf
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Tree dumps the element index.
func (s *Session) Tree() string {
	return s.ix.Tree()
}

// Len returns the number of indexed elements.
func (s *Session) Len() int {
	return s.ix.Len()
}

// Contains reports whether el is indexed in this session.
func (s *Session) Contains(el *html.Element) bool {
	_, ok := s.ids[el]
	return ok
}

// Span returns the buffer offsets of el.
func (s *Session) Span(el *html.Element) (start, end int, ok bool) {
	e, ok := s.entry(el)
	if !ok {
		return 0, 0, false
	}
	return e.Start, e.End, true
}

// Parent returns the innermost indexed element containing el, or nil.
func (s *Session) Parent(el *html.Element) *html.Element {
	e, ok := s.entry(el)
	if !ok || e.Parent == index.NoParent {
		return nil
	}
	return s.elements[e.Parent]
}

// Children returns the indexed elements directly inside el in document order.
func (s *Session) Children(el *html.Element) []*html.Element {
	e, ok := s.entry(el)
	if !ok {
		return nil
	}
	var out []*html.Element
	for _, c := range s.ix.ChildEntries(e) {
		out = append(out, s.elements[c.ID])
	}
	return out
}

// IsChildOf reports whether child is indexed anywhere below parent.
func (s *Session) IsChildOf(child, parent *html.Element) bool {
	cid, ok := s.ids[child]
	if !ok {
		return false
	}
	pid, ok := s.ids[parent]
	if !ok {
		return false
	}
	return s.ix.IsDescendant(cid, pid)
}

// Inserted returns the element created by the last AppendTo, InsertBefore,
// InsertAfter or Replace.
func (s *Session) Inserted() *html.Element {
	return s.inserted
}

// Validate checks the element index against the buffer.
func (s *Session) Validate() error {
	if err := s.ix.Validate(s.buf); err != nil {
		return err
	}
	for _, e := range s.ix.Entries() {
		if _, ok := s.elements[e.ID]; !ok {
			return fmt.Errorf("%w: entry %d has no element", ErrInvariant, e.ID)
		}
	}
	return nil
}

func (s *Session) entry(el *html.Element) (*index.Entry, bool) {
	id, ok := s.ids[el]
	if !ok {
		return nil, false
	}
	return s.ix.Get(id)
}

func (s *Session) register(el *html.Element, text string, start int) *index.Entry {
	e := s.ix.Add(text, start)
	s.elements[e.ID] = el
	s.ids[el] = e.ID
	return e
}

func (s *Session) forget(ids []int) {
	for _, id := range ids {
		if el, ok := s.elements[id]; ok {
			delete(s.ids, el)
			delete(s.elements, id)
		}
	}
}

func (s *Session) invalidate() {
	clear(s.cache)
}

func (s *Session) check() {
	if !s.strict {
		return
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
}
