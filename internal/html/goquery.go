package html

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// The read view parses an element's current markup into a node tree on
// demand. It is never written back: edits go through the Element setters.

// fragmentContext returns the parent an element of the given tag needs so the
// HTML parser does not drop it (a bare <td> outside a row is discarded).
func fragmentContext(tag string) *html.Node {
	var a atom.Atom
	switch atom.Lookup([]byte(tag)) {
	case atom.Td, atom.Th:
		a = atom.Tr
	case atom.Tr:
		a = atom.Tbody
	case atom.Tbody, atom.Thead, atom.Tfoot, atom.Caption, atom.Colgroup:
		a = atom.Table
	case atom.Col:
		a = atom.Colgroup
	case atom.Li:
		a = atom.Ul
	default:
		a = atom.Body
	}
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

// parseNode parses markup holding one element of the given tag and returns
// that element's node.
func parseNode(tag, markup string) (*html.Node, error) {
	switch tag {
	case "html", "head", "body":
		root, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML: %w", err)
		}
		if n := findElement(root, tag); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("%w: <%s> lost while parsing", ErrNotElement, tag)
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext(tag))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: <%s> lost while parsing", ErrNotElement, tag)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Document returns a goquery document rooted at the element's current markup.
func (el *Element) Document() (*goquery.Document, error) {
	n, err := parseNode(el.tag, el.OuterHTML())
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(n), nil
}

// Text returns the text content with markup stripped.
func (el *Element) Text() string {
	doc, err := el.Document()
	if err != nil {
		return ""
	}
	return doc.Text()
}

// Find returns the descendants of the element matching a CSS selector. The
// selection is a detached snapshot of the current markup.
func (el *Element) Find(selector string) *goquery.Selection {
	doc, err := el.Document()
	if err != nil {
		return &goquery.Selection{}
	}
	return doc.Find(selector)
}

// Matches checks if the element itself matches a CSS selector
func (el *Element) Matches(selector string) (bool, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false, fmt.Errorf("failed to compile selector %q: %w", selector, err)
	}
	n, err := parseNode(el.tag, el.OuterHTML())
	if err != nil {
		return false, err
	}
	return sel.Match(n), nil
}
