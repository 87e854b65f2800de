package html

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is one located element. It owns an independent copy of its markup,
// split into the open tag, inner content and closing tag, so edits never leak
// into other elements. Only the parts that were edited are re-serialized:
// an untouched open tag or inner content is reproduced byte for byte.
type Element struct {
	tag      string
	void     bool
	srcOpen  string     // open tag as it appears in the source text
	token    html.Token // parsed open tag, edited in place by attribute setters
	inner    string
	tail     string // fragments appended after the source inner content
	closeTag string

	// detached is set once the inner content was replaced wholesale; nested
	// elements of the source inner content are gone from then on.
	detached bool

	contentModified    bool
	attributesModified bool
}

// NewElement parses markup holding exactly one element.
func NewElement(raw string) (*Element, error) {
	el := &Element{}
	if err := el.load(raw); err != nil {
		return nil, err
	}
	return el, nil
}

// MustElement is like NewElement but panics on malformed markup.
func MustElement(raw string) *Element {
	el, err := NewElement(raw)
	if err != nil {
		panic(err)
	}
	return el
}

func (el *Element) load(raw string) error {
	open, tok, inner, closing, err := split(raw)
	if err != nil {
		return err
	}
	el.tag = tok.Data
	el.void = closing == ""
	el.srcOpen = open
	el.token = tok
	el.inner = inner
	el.tail = ""
	el.closeTag = closing
	return nil
}

// TagName returns the lower-cased tag name.
func (el *Element) TagName() string {
	return el.tag
}

// IsVoid reports whether the element has no closing tag.
func (el *Element) IsVoid() bool {
	return el.void
}

// ID returns the element's id attribute.
func (el *Element) ID() string {
	id, _ := el.Attr("id")
	return id
}

// Classes returns the element's class list.
func (el *Element) Classes() []string {
	class, ok := el.Attr("class")
	if !ok || class == "" {
		return []string{}
	}
	return strings.Fields(class)
}

// Attr returns the value of the named attribute.
func (el *Element) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range el.token.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when it is missing.
func (el *Element) AttrOr(name, def string) string {
	if v, ok := el.Attr(name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the named attribute is present.
func (el *Element) HasAttr(name string) bool {
	_, ok := el.Attr(name)
	return ok
}

// Attributes returns all attributes as a map
func (el *Element) Attributes() map[string]string {
	attrs := make(map[string]string, len(el.token.Attr))
	for _, a := range el.token.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

// SetAttribute sets an attribute, keeping the position of an existing one.
func (el *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	el.attributesModified = true
	for i, a := range el.token.Attr {
		if a.Key == name {
			el.token.Attr[i].Val = value
			return
		}
	}
	el.token.Attr = append(el.token.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttribute removes an attribute if present.
func (el *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	for i, a := range el.token.Attr {
		if a.Key == name {
			el.token.Attr = append(el.token.Attr[:i:i], el.token.Attr[i+1:]...)
			el.attributesModified = true
			return
		}
	}
}

// DataAttr returns the value of data-<name>.
func (el *Element) DataAttr(name string) string {
	v, _ := el.Attr("data-" + name)
	return v
}

// HasDataAttr reports whether data-<name> is present.
func (el *Element) HasDataAttr(name string) bool {
	return el.HasAttr("data-" + name)
}

// SetDataAttr sets data-<name>.
func (el *Element) SetDataAttr(name, value string) {
	el.SetAttribute("data-"+name, value)
}

// HasClass reports whether className is in the class list.
func (el *Element) HasClass(className string) bool {
	for _, c := range el.Classes() {
		if c == className {
			return true
		}
	}
	return false
}

// AddClass appends className unless present and returns the class attribute.
func (el *Element) AddClass(className string) string {
	classes := el.Classes()
	if el.HasClass(className) {
		return strings.Join(classes, " ")
	}
	class := strings.Join(append(classes, className), " ")
	el.SetAttribute("class", class)
	return class
}

// RemoveClass drops className if present and returns the class attribute.
func (el *Element) RemoveClass(className string) string {
	classes := el.Classes()
	kept := classes[:0]
	found := false
	for _, c := range classes {
		if c == className {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	class := strings.Join(kept, " ")
	if found {
		el.SetAttribute("class", class)
	}
	return class
}

// InnerHTML returns the inner content as currently held by the element.
func (el *Element) InnerHTML() string {
	return el.inner + el.tail
}

// SetHTML replaces the inner content.
func (el *Element) SetHTML(content string) {
	if el.void {
		return
	}
	el.inner = content
	el.tail = ""
	el.detached = true
	el.contentModified = true
}

// SetText replaces the inner content with escaped text.
func (el *Element) SetText(content string) {
	el.SetHTML(html.EscapeString(content))
}

// AppendHTML appends a raw fragment to the inner content. Nested elements of
// the existing content stay in place.
func (el *Element) AppendHTML(fragment string) {
	if el.void || fragment == "" {
		return
	}
	el.tail += fragment
	el.contentModified = true
}

// OpenTag returns the open tag, re-rendered only when attributes changed.
func (el *Element) OpenTag() string {
	if el.attributesModified {
		return el.token.String()
	}
	return el.srcOpen
}

// OuterHTML returns the element's current markup.
func (el *Element) OuterHTML() string {
	if el.void {
		return el.OpenTag()
	}
	return el.OpenTag() + el.inner + el.tail + el.closeTag
}

// String implements fmt.Stringer.
func (el *Element) String() string {
	return el.OuterHTML()
}

// Len returns the byte length of the current markup.
func (el *Element) Len() int {
	return len(el.OuterHTML())
}

// IsModified reports whether the element differs from its source text.
func (el *Element) IsModified() bool {
	return el.contentModified || el.attributesModified
}

// ContentModified reports whether the inner content changed.
func (el *Element) ContentModified() bool {
	return el.contentModified
}

// AttributesModified reports whether attributes changed.
func (el *Element) AttributesModified() bool {
	return el.attributesModified
}

// MarkContentModified flags the inner content as changed. Used when nested
// elements were inserted or removed around an otherwise untouched element.
func (el *Element) MarkContentModified() {
	el.contentModified = true
}

// Clone returns an independent copy with the same markup and dirty state.
func (el *Element) Clone() *Element {
	c := *el
	c.token.Attr = append([]html.Attribute(nil), el.token.Attr...)
	return &c
}

// Parts is the split markup the renderer folds nested edits into.
type Parts struct {
	Open       string // current open tag
	SourceOpen string // open tag as found in the source text
	Inner      string
	Tail       string
	Close      string
	Void       bool
	Detached   bool
}

// Parts returns the element's markup pieces.
func (el *Element) Parts() Parts {
	return Parts{
		Open:       el.OpenTag(),
		SourceOpen: el.srcOpen,
		Inner:      el.inner,
		Tail:       el.tail,
		Close:      el.closeTag,
		Void:       el.void,
		Detached:   el.detached,
	}
}

// Resync updates the element after the source text of its span changed
// underneath it, such as a nested element being inserted. Pending attribute
// edits and replaced inner content are kept.
func (el *Element) Resync(text string) error {
	var fresh Element
	if err := fresh.load(text); err != nil {
		return err
	}
	el.srcOpen = fresh.srcOpen
	el.closeTag = fresh.closeTag
	if !el.attributesModified {
		el.token = fresh.token
	}
	if !el.detached {
		el.inner = fresh.inner
	}
	return nil
}

// Reset reloads the element from text and clears its dirty state.
func (el *Element) Reset(text string) error {
	var fresh Element
	if err := fresh.load(text); err != nil {
		return err
	}
	*el = fresh
	return nil
}
