package selector

import (
	"regexp"
	"strings"

	"htmlpatch/internal/html"
)

// classTokenExpr matches a class attribute value holding a token that is base
// or starts with base-.
func classTokenExpr(base string) string {
	q := regexp.QuoteMeta(base)
	return `(?:[^"']*` + whitespace + `)?` + q + `(?:-[^\s"']+)?(?:` + whitespace + `[^"']*)?`
}

// suffixFilter keeps elements carrying a "<base>-<suffix>" class for which
// keep reports true.
func suffixFilter(base string, keep func(suffix string) bool) FilterFunc {
	return func(l *html.ElementList) *html.ElementList {
		return l.Filter(func(el *html.Element) bool {
			prefix := base + "-"
			for _, c := range el.Classes() {
				if strings.HasPrefix(c, prefix) && len(c) > len(prefix) && keep(c[len(prefix):]) {
					return true
				}
			}
			return false
		})
	}
}

// bareFilter keeps elements whose class list holds base itself.
func bareFilter(base string) FilterFunc {
	return func(l *html.ElementList) *html.ElementList {
		return l.Filter(func(el *html.Element) bool { return el.HasClass(base) })
	}
}

// namesFilter keeps elements named by one of names, or by the filter name
// itself when no list is given.
func namesFilter(base, name string, names []string) FilterFunc {
	if len(names) == 0 {
		names = []string{name}
	}
	return suffixFilter(base, func(s string) bool {
		for _, n := range names {
			if s == n {
				return true
			}
		}
		return false
	})
}

// Content container filters
const (
	NamedContainers     = "named"
	UnnamedContainers   = "unnamed"
	GeneratedContainers = "generated"
)

var generatedSuffix = regexp.MustCompile(`^_cnt_[0-9]+$`)

// ContentContainerSelector finds editable regions marked by a base class.
type ContentContainerSelector struct {
	BaseClass string
}

// Matcher implements Selector.
func (s ContentContainerSelector) Matcher() Pattern {
	return Attr("class", classTokenExpr(s.BaseClass), "", Regexp)
}

// Filter implements Selector. Besides named, unnamed and generated, any other
// name keeps the container of that name; name(a,b) keeps any of a and b.
func (s ContentContainerSelector) Filter(name string, args []string) FilterFunc {
	switch name {
	case NamedContainers:
		return suffixFilter(s.BaseClass, func(string) bool { return true })
	case UnnamedContainers:
		return bareFilter(s.BaseClass)
	case GeneratedContainers:
		return suffixFilter(s.BaseClass, generatedSuffix.MatchString)
	case "":
		return nil
	}
	return namesFilter(s.BaseClass, name, args)
}

// MainMenu is the filter keeping menus without a name suffix.
const MainMenu = "main"

// MenuSelector finds navigation menus marked by a base class.
type MenuSelector struct {
	BaseClass string
}

// Matcher implements Selector.
func (s MenuSelector) Matcher() Pattern {
	return Attr("class", classTokenExpr(s.BaseClass), "", Regexp)
}

// Filter implements Selector.
func (s MenuSelector) Filter(name string, args []string) FilterFunc {
	switch name {
	case MainMenu:
		return bareFilter(s.BaseClass)
	case "":
		return nil
	}
	return namesFilter(s.BaseClass, name, args)
}

func alternation(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return strings.Join(quoted, "|")
}

// resourcePath matches an uploaded resource URL under dir: a base name
// carrying -sc and 13 hex digits, then an extension.
func resourcePath(dir, ext string) string {
	return `[^\s"',]*(?:` + regexp.QuoteMeta(dir) + `)/[^\s"']*-sc[0-9a-f]{13}[^.\s"']*\.(?:` + ext + `)`
}

// ResourceImageSelector finds images uploaded through the editor.
type ResourceImageSelector struct {
	Dir        string
	Extensions []string
}

func (s ResourceImageSelector) source() string {
	return resourcePath(s.Dir, alternation(s.Extensions))
}

// Matcher implements Selector.
func (s ResourceImageSelector) Matcher() Pattern {
	return Attr("src", s.source(), "img", Regexp)
}

// Filter implements Selector.
func (s ResourceImageSelector) Filter(string, []string) FilterFunc {
	return nil
}

// MatchURL reports whether url points to an uploaded image.
func (s ResourceImageSelector) MatchURL(url string) bool {
	return regexp.MustCompile(`(?i)` + s.source()).MatchString(url)
}

// ResourceFileLinkSelector finds links to files uploaded through the editor.
// Links to files with a forbidden extension never match.
type ResourceFileLinkSelector struct {
	Dir       string
	Forbidden []string
}

func (s ResourceFileLinkSelector) forbidden() *regexp.Regexp {
	if len(s.Forbidden) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)-sc[0-9a-f]{13}[^.\s"']*\.(?:` + alternation(s.Forbidden) + `)`)
}

// Matcher implements Selector.
func (s ResourceFileLinkSelector) Matcher() Pattern {
	p := Attr("href", resourcePath(s.Dir, `[A-Za-z0-9]+`), "a", Regexp)
	if re := s.forbidden(); re != nil {
		p = p.Rejecting(re)
	}
	return p
}

// Filter implements Selector.
func (s ResourceFileLinkSelector) Filter(string, []string) FilterFunc {
	return nil
}

// MatchURL reports whether url points to an uploaded file that may be served.
func (s ResourceFileLinkSelector) MatchURL(url string) bool {
	if !regexp.MustCompile(`(?i)` + resourcePath(s.Dir, `[A-Za-z0-9]+`)).MatchString(url) {
		return false
	}
	re := s.forbidden()
	return re == nil || !re.MatchString(url)
}
