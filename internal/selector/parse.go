package selector

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"htmlpatch/internal/html"
)

var (
	filterSuffix = regexp.MustCompile(`:([^(:]+)(?:\(([^)]*)\))?$`)
	tagSyntax    = regexp.MustCompile(`^` + identifier + `$`)
	idSyntax     = regexp.MustCompile(`^(` + identifier + `)?#([\w-]+)$`)
	classSyntax  = regexp.MustCompile(`^(` + identifier + `)?\.([\w-]+)$`)
	attrSyntax   = regexp.MustCompile(`^(` + identifier + `)?\[\s*([\w:-]+)\s*([~^$*]?)=\s*(?:"([^"]*)"|'([^']*)'|([^\]\s"']*))\s*\]$`)
)

// Resolved is the outcome of resolving selector text.
type Resolved struct {
	Pattern Pattern
	// Filter is nil when the text carried no known filter suffix.
	Filter FilterFunc
	// Provider offers the named filters of the custom selector that
	// resolved the text; nil for built-in syntax.
	Provider FilterProvider
}

// Resolve classifies selector text and compiles it. A trailing :name or
// :name(args) suffix selects a filter: first, last and eq(n) are built in;
// other names are offered to the custom parser that resolved the text.
// Unknown filter names are ignored.
func Resolve(text string, reg *Registry) (Resolved, error) {
	body, name, args, hasFilter := SplitFilter(strings.TrimSpace(text))
	if body == "" {
		return Resolved{}, &InvalidSelectorError{Selector: text, Reason: "empty selector"}
	}

	var res Resolved
	switch {
	case body == "*":
		res.Pattern = Global()
	case tagSyntax.MatchString(body):
		res.Pattern = Tag(body)
	case attrSyntax.MatchString(body):
		m := attrSyntax.FindStringSubmatch(body)
		value := m[4] + m[5] + m[6]
		res.Pattern = Attr(m[2], value, m[1], equivalenceBySymbol[m[3]])
	case idSyntax.MatchString(body):
		m := idSyntax.FindStringSubmatch(body)
		res.Pattern = ID(m[2], m[1])
	case classSyntax.MatchString(body):
		m := classSyntax.FindStringSubmatch(body)
		res.Pattern = Class(m[2], m[1])
	default:
		p, ok := reg.Lookup(body)
		if !ok {
			return Resolved{}, &InvalidSelectorError{Selector: text}
		}
		pattern, err := p.Parse(body)
		if err != nil {
			return Resolved{}, &InvalidSelectorError{Selector: text, Reason: err.Error()}
		}
		res.Pattern = pattern
		res.Provider, _ = p.(FilterProvider)
	}

	if !hasFilter {
		return res, nil
	}
	f, err := builtinFilter(name, args)
	if err != nil {
		return Resolved{}, &InvalidSelectorError{Selector: text, Reason: err.Error()}
	}
	if f == nil && res.Provider != nil {
		f = res.Provider.Filter(name, args)
	}
	res.Filter = f
	return res, nil
}

// SplitFilter separates a trailing :name(args) suffix from selector text.
// Only text after the last ']' is inspected so attribute values may hold ':'.
func SplitFilter(text string) (body, name string, args []string, ok bool) {
	from := strings.LastIndexByte(text, ']') + 1
	loc := filterSuffix.FindStringSubmatchIndex(text[from:])
	if loc == nil {
		return text, "", nil, false
	}
	name = strings.TrimSpace(text[from+loc[2] : from+loc[3]])
	if loc[4] >= 0 {
		for _, a := range strings.Split(text[from+loc[4]:from+loc[5]], ",") {
			if a = strings.TrimSpace(a); a != "" {
				args = append(args, a)
			}
		}
	}
	return strings.TrimSpace(text[:from+loc[0]]), name, args, true
}

// BuiltinFilter returns the built-in filter for name, or nil when name is
// not built in.
func BuiltinFilter(name string, args []string) (FilterFunc, error) {
	f, err := builtinFilter(name, args)
	if err != nil {
		return nil, &InvalidSelectorError{Selector: ":" + name, Reason: err.Error()}
	}
	return f, nil
}

func builtinFilter(name string, args []string) (FilterFunc, error) {
	switch strings.ToLower(name) {
	case "first":
		return (*html.ElementList).First, nil
	case "last":
		return (*html.ElementList).Last, nil
	case "eq":
		if len(args) != 1 {
			return nil, errors.New("eq takes exactly one index")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("eq index %q is not an integer", args[0])
		}
		return func(l *html.ElementList) *html.ElementList { return l.Eq(n) }, nil
	}
	return nil, nil
}
