// Package page edits a site page: its content containers, navigation menus,
// title, meta tags and assets. Server-side template code is kept out of the
// way while editing and every byte the edits do not touch is written back
// unchanged.
package page

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"htmlpatch/internal/config"
	"htmlpatch/internal/html"
	"htmlpatch/internal/selector"
	"htmlpatch/pkg/htmlpatch"
)

var (
	// ErrTooLarge is returned for sources above the configured size limit.
	ErrTooLarge = errors.New("document too large")
	// ErrNoHead is returned when an edit needs a <head> the page lacks.
	ErrNoHead = errors.New("document has no head element")
	// ErrNotFound is returned when a named container or menu does not exist.
	ErrNotFound = errors.New("not found")
)

// Page is one loaded page.
type Page struct {
	id        string
	cfg       config.Config
	logger    *slog.Logger
	session   *htmlpatch.Session
	fragments *fragments
	images    selector.ResourceImageSelector
	files     selector.ResourceFileLinkSelector
	sanitizer *bluemonday.Policy
	markdown  *converter.Converter
}

// New loads source for editing.
func New(source string, cfg config.Config) (*Page, error) {
	cfg.ApplyDefaults()
	if cfg.MaxDocumentSize > 0 && len(source) > cfg.MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(source), cfg.MaxDocumentSize)
	}

	p := &Page{
		id:  uuid.Must(uuid.NewV7()).String(),
		cfg: cfg,
		images: selector.ResourceImageSelector{
			Dir:        cfg.ImageDir,
			Extensions: cfg.ImageExtensions,
		},
		files: selector.ResourceFileLinkSelector{
			Dir:       cfg.UploadDir,
			Forbidden: cfg.ForbiddenExtensions,
		},
		sanitizer: newSanitizer(),
		markdown:  newMarkdownConverter(),
	}
	p.logger = cfg.Logger.With("page", p.id)

	text := source
	if cfg.ProtectTemplateTags {
		text, p.fragments = protect(source)
		if n := p.fragments.Len(); n > 0 {
			p.logger.Debug("protected template fragments", "count", n)
		}
	}

	p.session = htmlpatch.Load(text,
		htmlpatch.WithStrict(cfg.Strict),
		htmlpatch.WithParsers(
			selector.Alias{Name: selector.ContainerAlias, Selector: selector.ContentContainerSelector{BaseClass: cfg.ContainerBaseClass}},
			selector.Alias{Name: selector.MenuAlias, Selector: selector.MenuSelector{BaseClass: cfg.MenuBaseClass}},
			selector.Alias{Name: selector.ImageAlias, Selector: p.images},
			selector.Alias{Name: selector.FileAlias, Selector: p.files},
		),
	)
	p.logger.Debug("page loaded", "bytes", len(source))
	return p, nil
}

// ID returns the page id, unique per load.
func (p *Page) ID() string {
	return p.id
}

// Session returns the editing session behind the page.
func (p *Page) Session() *htmlpatch.Session {
	return p.session
}

// Query runs selector text against the page, including the @container,
// @menu, @image and @file aliases.
func (p *Page) Query(text string, opts ...htmlpatch.QueryOption) (*html.ElementList, error) {
	return p.session.Query(text, opts...)
}

// String renders the page with its template code restored.
func (p *Page) String() string {
	return p.fragments.restore(p.session.Content())
}

// Containers returns the content containers, narrowed by the given filters:
// named, unnamed, generated or a container name.
func (p *Page) Containers(opts ...htmlpatch.QueryOption) ([]*html.ContentContainer, error) {
	list, err := p.session.Query(selector.ContainerAlias, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]*html.ContentContainer, 0, list.Len())
	list.Each(func(_ int, el *html.Element) {
		out = append(out, html.AsContainer(el, p.cfg.ContainerBaseClass))
	})
	return out, nil
}

// ContainerNames lists the distinct container names in document order.
// Unnamed containers are skipped.
func (p *Page) ContainerNames() ([]string, error) {
	containers, err := p.Containers()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range containers {
		if c.Name() != "" && !slices.Contains(names, c.Name()) {
			names = append(names, c.Name())
		}
	}
	return names, nil
}

// HasContainer reports whether a container of the given name exists.
func (p *Page) HasContainer(name string) bool {
	containers, err := p.containersNamed(name)
	return err == nil && len(containers) > 0
}

// NameContainers gives every unnamed container a generated name so it can be
// addressed by name. It returns the generated names.
func (p *Page) NameContainers() ([]string, error) {
	containers, err := p.Containers(htmlpatch.WithFilter(selector.UnnamedContainers))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range containers {
		if c.Name() != "" {
			continue
		}
		name, err := c.GenerateName(false)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if len(names) > 0 {
		p.logger.Debug("named containers", "count", len(names))
	}
	return names, nil
}

// SetContainerContent replaces the content of every container of the given
// name.
func (p *Page) SetContainerContent(name, content string) error {
	containers, err := p.containersNamed(name)
	if err != nil {
		return err
	}
	if p.cfg.SanitizeContent {
		content = p.sanitizer.Sanitize(content)
	}
	for _, c := range containers {
		c.SetHTML(content)
	}
	p.logger.Debug("container content set", "name", name, "containers", len(containers), "bytes", len(content))
	return nil
}

// SetContainersContent sets the content of several containers, keyed by name.
// Nothing is changed when any name is missing.
func (p *Page) SetContainersContent(contents map[string]string) error {
	names := make([]string, 0, len(contents))
	for name := range contents {
		if !p.HasContainer(name) {
			return fmt.Errorf("%w: container %q", ErrNotFound, name)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := p.SetContainerContent(name, contents[name]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Page) containersNamed(name string) ([]*html.ContentContainer, error) {
	all, err := p.Containers()
	if err != nil {
		return nil, err
	}
	var out []*html.ContentContainer
	for _, c := range all {
		if c.Name() == name {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: container %q", ErrNotFound, name)
	}
	return out, nil
}

// ResourceURLs lists the uploaded images and files referenced by container
// content, each once.
func (p *Page) ResourceURLs() ([]string, error) {
	containers, err := p.Containers()
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, c := range containers {
		for _, u := range c.ResourceURLs(p.files.MatchURL, p.images.MatchURL) {
			if !slices.Contains(urls, u) {
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

// IsEditableElement reports whether el lies inside a content container.
func (p *Page) IsEditableElement(el *html.Element) bool {
	containers, err := p.Containers()
	if err != nil {
		return false
	}
	for _, c := range containers {
		if p.session.IsChildOf(el, c.Element) {
			return true
		}
	}
	return false
}

// Menus returns the navigation menus, narrowed by the given filters: main or
// a menu name.
func (p *Page) Menus(opts ...htmlpatch.QueryOption) ([]*html.Menu, error) {
	list, err := p.session.Query(selector.MenuAlias, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]*html.Menu, 0, list.Len())
	list.Each(func(_ int, el *html.Element) {
		m := html.AsMenu(el, p.cfg.MenuBaseClass)
		m.SetTemplate(p.cfg.MenuItemTemplate)
		m.SetActiveClass(p.cfg.ActiveMenuClass)
		out = append(out, m)
	})
	return out, nil
}

// SaveMenus renders items into every menu of the given name. isActive picks
// the item linking to the current page.
func (p *Page) SaveMenus(name string, items []html.MenuItem, isActive func(url string) bool) error {
	menus, err := p.Menus()
	if err != nil {
		return err
	}
	saved := 0
	for _, m := range menus {
		if m.Name() != name {
			continue
		}
		m.SetItems(items, nil)
		m.Render(isActive)
		saved++
	}
	if saved == 0 {
		return fmt.Errorf("%w: menu %q", ErrNotFound, name)
	}
	p.logger.Debug("menu saved", "name", name, "menus", saved, "items", len(items))
	return nil
}
