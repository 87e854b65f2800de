package page

import (
	"htmlpatch/internal/html"
	"htmlpatch/pkg/htmlpatch"
)

// Asset positions
const (
	InHead = "head"
	InBody = "body"
)

// AssetOptions controls where and how AddScript and AddStyle insert an asset.
type AssetOptions struct {
	// Position is InHead (default) or InBody; styles always go to the head.
	Position string
	// Inline treats the source as code rather than a URL.
	Inline bool
	// Attrs are extra attributes as name/value pairs.
	Attrs []string
}

func (p *Page) first(tag string) *html.Element {
	list, err := p.session.Query(tag, htmlpatch.WithFilter("first"))
	if err != nil || list.Len() == 0 {
		return nil
	}
	return list.Get(0)
}

func (p *Page) head() (*html.Element, error) {
	if h := p.first("head"); h != nil {
		return h, nil
	}
	return nil, ErrNoHead
}

// Title returns the text of the <title> element.
func (p *Page) Title() string {
	if t := p.first("title"); t != nil {
		return t.Text()
	}
	return ""
}

// SetTitle sets the page title. An empty title removes the element; a page
// without one gets a new <title> at the end of its head.
func (p *Page) SetTitle(title string) error {
	t := p.first("title")
	switch {
	case t != nil && title == "":
		p.session.Remove(t)
	case t != nil:
		t.SetText(title)
	case title != "":
		h, err := p.head()
		if err != nil {
			return err
		}
		p.session.AppendTo(h, html.NewTitle(title))
	}
	p.logger.Debug("title set", "title", title)
	return nil
}

func (p *Page) meta(name string) *html.Element {
	list, err := p.session.Query("meta")
	if err != nil {
		return nil
	}
	for _, el := range list.All() {
		if el.AttrOr("name", "") == name {
			return el
		}
	}
	return nil
}

// Meta returns the content of the named meta tag.
func (p *Page) Meta(name string) (string, bool) {
	if m := p.meta(name); m != nil {
		return m.Attr("content")
	}
	return "", false
}

// EnsureMeta sets the content of the named meta tag, adding the tag to the
// head when the page has none. Extra attributes only apply to a new tag.
func (p *Page) EnsureMeta(name, content string, attrs ...string) error {
	if m := p.meta(name); m != nil {
		m.SetAttribute("content", content)
		return nil
	}
	h, err := p.head()
	if err != nil {
		return err
	}
	m, err := html.NewMeta(name, content, attrs...)
	if err != nil {
		return err
	}
	p.session.AppendTo(h, m)
	p.logger.Debug("meta added", "name", name)
	return nil
}

// Description returns the content of the description meta tag.
func (p *Page) Description() string {
	d, _ := p.Meta("description")
	return d
}

// SetDescription sets the content of the description meta tag.
func (p *Page) SetDescription(description string) error {
	return p.EnsureMeta("description", description)
}

func (p *Page) target(position string) (*html.Element, error) {
	if position == InBody {
		if b := p.first("body"); b != nil {
			return b, nil
		}
	}
	return p.head()
}

// AddScript appends a script to the head or the body. An external script the
// page already loads is not added again.
func (p *Page) AddScript(src string, opts AssetOptions) error {
	if !opts.Inline && p.hasAsset("script", "src", src) {
		return nil
	}
	parent, err := p.target(opts.Position)
	if err != nil {
		return err
	}
	var el *html.Element
	if opts.Inline {
		el, err = html.NewInlineScript(src, opts.Attrs...)
	} else {
		el, err = html.NewScript(src, opts.Attrs...)
	}
	if err != nil {
		return err
	}
	p.session.AppendTo(parent, el)
	p.logger.Debug("script added", "inline", opts.Inline, "position", parent.TagName())
	return nil
}

// AddStyle appends a stylesheet link, or an inline style, to the head.
func (p *Page) AddStyle(href string, opts AssetOptions) error {
	if !opts.Inline && p.hasAsset("link", "href", href) {
		return nil
	}
	h, err := p.head()
	if err != nil {
		return err
	}
	var el *html.Element
	if opts.Inline {
		el, err = html.NewInlineStyle(href)
	} else {
		el, err = html.NewStylesheet(href, opts.Attrs...)
	}
	if err != nil {
		return err
	}
	p.session.AppendTo(h, el)
	p.logger.Debug("style added", "inline", opts.Inline)
	return nil
}

func (p *Page) hasAsset(tag, attr, url string) bool {
	list, err := p.session.Query(tag)
	if err != nil {
		return false
	}
	for _, el := range list.All() {
		if el.AttrOr(attr, "") == url {
			return true
		}
	}
	return false
}
