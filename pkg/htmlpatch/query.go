package htmlpatch

import (
	"regexp"
	"strings"

	"htmlpatch/internal/html"
	"htmlpatch/internal/selector"
)

// queryFilter is a named filter or, when fn is set, a filter function.
type queryFilter struct {
	name string
	args []string
	fn   selector.FilterFunc
}

// QueryOption adds a filter to a query.
type QueryOption func(*[]queryFilter)

// WithFilter applies a named filter: first, last, eq(n) or one offered by
// the selector. Unknown names are ignored.
func WithFilter(name string, args ...string) QueryOption {
	return func(fs *[]queryFilter) {
		*fs = append(*fs, queryFilter{name: name, args: args})
	}
}

// WithFilterFunc applies fn to the result.
func WithFilterFunc(fn selector.FilterFunc) QueryOption {
	return func(fs *[]queryFilter) {
		*fs = append(*fs, queryFilter{fn: fn})
	}
}

// Query finds the elements matching selector text. The unfiltered result is
// cached: repeating a query returns the same list until a structural edit or
// a render moves elements. Filters from the selector suffix run first, then
// the options in order.
func (s *Session) Query(text string, opts ...QueryOption) (*html.ElementList, error) {
	res, err := selector.Resolve(text, s.registry)
	if err != nil {
		return nil, err
	}
	var filters []selector.FilterFunc
	if res.Filter != nil {
		filters = append(filters, res.Filter)
	}
	return s.run(res.Pattern, res.Provider, filters, opts)
}

// Select finds the elements matched by sel. Named filters given as options
// are looked up on sel after the built-in ones.
func (s *Session) Select(sel selector.Selector, opts ...QueryOption) (*html.ElementList, error) {
	return s.run(sel.Matcher(), sel, nil, opts)
}

func (s *Session) run(p selector.Pattern, provider selector.FilterProvider,
	filters []selector.FilterFunc, opts []QueryOption) (*html.ElementList, error) {
	var steps []queryFilter
	for _, opt := range opts {
		opt(&steps)
	}
	for _, st := range steps {
		f := st.fn
		if f == nil {
			var err error
			if f, err = selector.BuiltinFilter(st.name, st.args); err != nil {
				return nil, err
			}
			if f == nil && provider != nil {
				f = provider.Filter(st.name, st.args)
			}
		}
		if f != nil {
			filters = append(filters, f)
		}
	}

	s.stats.Queries++
	list := s.find(p)
	for _, f := range filters {
		list = f(list)
	}
	return list, nil
}

// find returns the cached or freshly discovered elements for p.
func (s *Session) find(p selector.Pattern) *html.ElementList {
	key := p.String()
	if list, ok := s.cache[key]; ok {
		s.stats.CacheHits++
		if list == nil {
			return html.NewElementList()
		}
		return list
	}

	spans, ok := s.discover(p)
	if !ok || len(spans) == 0 {
		s.cache[key] = nil
		return html.NewElementList()
	}

	// Parse everything before touching the index so a failure leaves it as is.
	els := make([]*html.Element, len(spans))
	for i, sp := range spans {
		if e, ok := s.ix.Find(sp.start, sp.end); ok {
			els[i] = s.elements[e.ID]
			continue
		}
		el, err := html.NewElement(s.buf[sp.start:sp.end])
		if err != nil {
			s.cache[key] = nil
			return html.NewElementList()
		}
		els[i] = el
	}
	for i, sp := range spans {
		if !s.Contains(els[i]) {
			s.register(els[i], s.buf[sp.start:sp.end], sp.start)
			s.stats.Discovered++
		}
	}

	list := html.NewElementList(els...)
	s.cache[key] = list
	return list
}

type span struct {
	start, end int
}

// discover locates the full span of every element whose open tag p matches.
// It fails as a whole when any non-void element has no balancing close tag
// or a span would partially overlap another.
func (s *Session) discover(p selector.Pattern) ([]span, bool) {
	var spans []span
	pairs := make(map[string]map[int]int)
	for _, m := range p.FindAll(s.buf) {
		tag := strings.ToLower(m.Tag)
		if tag == "html" {
			continue
		}
		rel := html.OpenTagEnd(s.buf[m.Start:])
		if rel < 0 {
			return nil, false
		}
		openEnd := m.Start + rel
		end := openEnd
		if !html.IsVoid(tag) && s.buf[openEnd-2] != '/' {
			closes, ok := pairs[tag]
			if !ok {
				closes = s.scanner(tag).pair(s.buf)
				pairs[tag] = closes
			}
			if end, ok = closes[m.Start]; !ok {
				return nil, false
			}
		}
		if s.ix.Overlaps(m.Start, end) {
			return nil, false
		}
		spans = append(spans, span{start: m.Start, end: end})
	}
	// Matches come in start order, so an open span that ends inside a later
	// one partially overlaps it.
	var open []span
	for _, sp := range spans {
		for len(open) > 0 && open[len(open)-1].end <= sp.start {
			open = open[:len(open)-1]
		}
		if len(open) > 0 && open[len(open)-1].end < sp.end {
			return nil, false
		}
		open = append(open, sp)
	}
	return spans, true
}

// tagScanner finds open and close tags of one tag name. The name must end at
// whitespace, '/' or '>' so scanning for b never stops at <br> or </body>.
type tagScanner struct {
	re *regexp.Regexp
}

func (s *Session) scanner(tag string) *tagScanner {
	if sc, ok := s.scanners[tag]; ok {
		return sc
	}
	sc := &tagScanner{
		re: regexp.MustCompile(`(?i)<(/?)` + regexp.QuoteMeta(tag) + `(?:[\x20\t\r\n\f/][^>]*)?>`),
	}
	s.scanners[tag] = sc
	return sc
}

// pair scans buf once and maps the start of every balanced open tag to the
// offset just past its close tag. Unbalanced open tags are left out; a close
// tag with nothing open is ignored.
func (sc *tagScanner) pair(buf string) map[int]int {
	closes := make(map[int]int)
	var stack []int
	for _, loc := range sc.re.FindAllStringSubmatchIndex(buf, -1) {
		switch {
		case loc[3] > loc[2]:
			if len(stack) > 0 {
				closes[stack[len(stack)-1]] = loc[1]
				stack = stack[:len(stack)-1]
			}
		case strings.HasSuffix(buf[loc[0]:loc[1]], "/>"):
			// self-closed, does not nest
		default:
			stack = append(stack, loc[0])
		}
	}
	return closes
}
