// Package selector turns selector syntax into matchers that locate open tags
// directly in raw markup, and into filters that narrow the elements found.
package selector

import (
	"errors"
	"fmt"
	"regexp"

	"htmlpatch/internal/html"
)

// ErrInvalidSelector is wrapped by every selector syntax error.
var ErrInvalidSelector = errors.New("invalid selector")

// SupportedForms lists the selector syntax understood without custom parsers.
const SupportedForms = `*, tag, #id, tag#id, .class, tag.class, [attr="value"], ` +
	`tag[attr="value"] with =, ^=, $=, *= or ~=, optionally followed by :first, :last or :eq(n)`

// InvalidSelectorError reports selector text nothing could classify.
type InvalidSelectorError struct {
	Selector string
	Reason   string
}

func (e *InvalidSelectorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid selector %q: %s", e.Selector, e.Reason)
	}
	return fmt.Sprintf("invalid selector %q: supported forms are %s, or a registered custom selector",
		e.Selector, SupportedForms)
}

func (e *InvalidSelectorError) Unwrap() error {
	return ErrInvalidSelector
}

// Pattern is a compiled matcher over raw markup. Each match starts at the
// '<' of an open tag and submatch 1 is the tag name. An optional reject
// expression discards matches whose open tag it finds.
type Pattern struct {
	re     *regexp.Regexp
	reject *regexp.Regexp
}

// Match is one open tag located by a Pattern.
type Match struct {
	Start int // offset of '<'
	Tag   string
}

// NewPattern compiles expr into a Pattern.
func NewPattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("failed to compile pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return Pattern{}, fmt.Errorf("pattern %q has no tag group", expr)
	}
	return Pattern{re: re}, nil
}

// MustPattern is like NewPattern but panics on error.
func MustPattern(expr string) Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Rejecting returns a copy of p that discards matches whose open tag
// contains a match of reject.
func (p Pattern) Rejecting(reject *regexp.Regexp) Pattern {
	p.reject = reject
	return p
}

// IsZero reports whether p was never compiled.
func (p Pattern) IsZero() bool {
	return p.re == nil
}

// String returns the canonical text of the pattern, used as cache key.
func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	if p.reject != nil {
		return p.re.String() + " !" + p.reject.String()
	}
	return p.re.String()
}

// FindAll returns the open tags matched in buf in document order.
func (p Pattern) FindAll(buf string) []Match {
	if p.re == nil {
		return nil
	}
	var out []Match
	for _, loc := range p.re.FindAllStringSubmatchIndex(buf, -1) {
		if p.reject != nil && p.reject.MatchString(buf[loc[0]:loc[1]]) {
			continue
		}
		out = append(out, Match{Start: loc[0], Tag: buf[loc[2]:loc[3]]})
	}
	return out
}

// MatchString reports whether text holds a match.
func (p Pattern) MatchString(text string) bool {
	return len(p.FindAll(text)) > 0
}

// FilterFunc narrows a query result.
type FilterFunc func(*html.ElementList) *html.ElementList

// Selector describes a family of elements and the named filters it offers.
type Selector interface {
	// Matcher returns the pattern locating candidate open tags.
	Matcher() Pattern
	// Filter returns the filter registered under name, or nil.
	Filter(name string, args []string) FilterFunc
}

// Parser is the extension point for custom selector syntax.
type Parser interface {
	Match(text string) bool
	Parse(text string) (Pattern, error)
}

// FilterProvider is implemented by parsers that offer named filters.
type FilterProvider interface {
	Filter(name string, args []string) FilterFunc
}

// Registry holds the custom parsers consulted when built-in syntax does not
// apply. The first parser whose Match reports true wins.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry holding parsers in order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Register appends a parser.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Lookup returns the first parser accepting text.
func (r *Registry) Lookup(text string) (Parser, bool) {
	if r == nil {
		return nil, false
	}
	for _, p := range r.parsers {
		if p.Match(text) {
			return p, true
		}
	}
	return nil, false
}

// Static is a Selector with a fixed pattern and no named filters.
type Static struct {
	Pattern Pattern
}

// Matcher implements Selector.
func (s Static) Matcher() Pattern {
	return s.Pattern
}

// Filter implements Selector.
func (s Static) Filter(string, []string) FilterFunc {
	return nil
}
