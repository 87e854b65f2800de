package html

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMenuName is the name of a menu whose class carries no suffix.
const DefaultMenuName = "main"

// DefaultMenuTemplate renders one menu item.
const DefaultMenuTemplate = `<li><a class="${active}" href="${url}" title="${titleText}">${title}</a></li>`

// Menu item types
const (
	ItemTypeDefault = "default"
	ItemTypePage    = "page"
	ItemTypeCustom  = "custom"
)

// MenuItem is one navigation entry.
type MenuItem struct {
	Type      string `json:"type" yaml:"type"`
	Text      string `json:"text" yaml:"text"`
	URL       string `json:"url" yaml:"url"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Target    string `json:"target,omitempty" yaml:"target,omitempty"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// Menu is a navigation element whose class list holds the menu base class.
type Menu struct {
	*Element
	name        string
	template    string
	activeClass string
	items       []MenuItem
	loaded      bool
}

// AsMenu views el as a menu of the given base class.
func AsMenu(el *Element, baseClass string) *Menu {
	name := ClassSuffix(el, baseClass)
	if name == "" {
		name = DefaultMenuName
	}
	return &Menu{Element: el, name: name, template: DefaultMenuTemplate}
}

// Name returns the menu name.
func (m *Menu) Name() string {
	return m.name
}

// SetTemplate sets the per-item template.
func (m *Menu) SetTemplate(template string) {
	if template != "" {
		m.template = template
	}
}

// SetActiveClass sets the class substituted for ${active} on the current item.
func (m *Menu) SetActiveClass(class string) {
	m.activeClass = class
}

// Items returns the menu items, read from the element's links on first use.
func (m *Menu) Items() []MenuItem {
	if !m.loaded {
		m.items = m.findItems()
		m.loaded = true
	}
	return m.items
}

func (m *Menu) findItems() []MenuItem {
	var items []MenuItem
	m.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		item := MenuItem{
			Type:   ItemTypeDefault,
			Text:   text,
			URL:    s.AttrOr("href", ""),
			Title:  s.AttrOr("title", ""),
			Target: s.AttrOr("target", ""),
		}
		if item.Title == "" {
			item.Title = text
		}
		items = append(items, item)
	})
	return items
}

// SetItems replaces the menu items, passing each through process if given.
func (m *Menu) SetItems(items []MenuItem, process func(MenuItem) MenuItem) {
	out := make([]MenuItem, len(items))
	for i, item := range items {
		if process != nil {
			item = process(item)
		}
		out[i] = item
	}
	m.items = out
	m.loaded = true
}

// Render writes the items into the element through the template. isActive
// decides which item URL gets the active class; nil marks none.
func (m *Menu) Render(isActive func(url string) bool) {
	var b strings.Builder
	for i, item := range m.Items() {
		url := html.EscapeString(item.URL)
		if item.Target != "" {
			url += `" target="` + html.EscapeString(item.Target)
		}
		titleText := item.Title
		if titleText == "" {
			titleText = item.Text
		}
		active := ""
		if isActive != nil && isActive(item.URL) {
			active = m.activeClass
		}
		r := strings.NewReplacer(
			"${url}", url,
			"${titleText}", html.EscapeString(titleText),
			"${title}", html.EscapeString(item.Text),
			"${order}", strconv.Itoa(i),
			"${active}", html.EscapeString(active),
		)
		b.WriteString(r.Replace(m.template))
	}
	m.SetHTML(b.String())
}
