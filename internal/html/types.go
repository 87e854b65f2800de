package html

import (
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotElement is returned when markup does not hold exactly one element.
var ErrNotElement = errors.New("markup is not a single element")

// Node is the view of a located element that selectors, filters and the
// page layer work against. Every mutating method records whether it touched
// the element's attributes or its inner content.
type Node interface {
	// Core node information
	TagName() string
	ID() string
	Classes() []string
	Attr(name string) (string, bool)
	Attributes() map[string]string

	// Content access
	Text() string
	InnerHTML() string
	OuterHTML() string

	// Descendant lookup over the element's own markup
	Find(selector string) *goquery.Selection
	Matches(selector string) (bool, error)

	// Attribute modification
	SetAttribute(name, value string)
	RemoveAttribute(name string)

	// Content modification
	SetHTML(content string)
	SetText(content string)
	AppendHTML(fragment string)

	// Dirty state
	IsModified() bool
	ContentModified() bool
	AttributesModified() bool
}

var _ Node = (*Element)(nil)
