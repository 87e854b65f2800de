package html

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNamedContainer is returned when a name is generated for a container that
// already carries an author-given name.
var ErrNamedContainer = errors.New("cannot generate name on named container")

// GeneratedNamePrefix starts every machine-generated container name.
const GeneratedNamePrefix = "_cnt_"

var generatedName = regexp.MustCompile(`_cnt_[0-9]+`)

// ContentContainer is an editable region: an element whose class list holds
// the container base class, optionally suffixed with -<name>.
type ContentContainer struct {
	*Element
	baseClass string
	name      string
	named     bool
}

// AsContainer views el as a content container of the given base class.
func AsContainer(el *Element, baseClass string) *ContentContainer {
	c := &ContentContainer{Element: el, baseClass: baseClass}
	c.name = ClassSuffix(el, baseClass)
	c.named = c.name != "" && !generatedName.MatchString(c.name)
	return c
}

// ClassSuffix returns <name> from the first "<baseClass>-<name>" class of el.
func ClassSuffix(el *Element, baseClass string) string {
	prefix := baseClass + "-"
	for _, class := range el.Classes() {
		if strings.HasPrefix(class, prefix) && len(class) > len(prefix) {
			return class[len(prefix):]
		}
	}
	return ""
}

// Name returns the container name; empty for an unnamed container that has
// not had one generated.
func (c *ContentContainer) Name() string {
	return c.name
}

// IsNamed reports whether the name was given by the page author.
func (c *ContentContainer) IsNamed() bool {
	return c.named
}

// IsGenerated reports whether the container carries a generated name.
func (c *ContentContainer) IsGenerated() bool {
	return !c.named && c.name != ""
}

// GenerateName gives an unnamed container a generated name and adds the
// matching class. An existing generated name is kept unless regenerate is set.
func (c *ContentContainer) GenerateName(regenerate bool) (string, error) {
	if c.named {
		return "", fmt.Errorf("%w: %s", ErrNamedContainer, c.name)
	}
	if c.name != "" && !regenerate {
		return c.name, nil
	}
	if c.name != "" {
		c.RemoveClass(c.baseClass + "-" + c.name)
	}
	c.name = fmt.Sprintf("%s%d%d", GeneratedNamePrefix, rand.Uint32(), rand.Uint32())
	c.AddClass(c.baseClass + "-" + c.name)
	return c.name, nil
}

// ClearGeneratedName removes a generated name class.
func (c *ContentContainer) ClearGeneratedName() {
	if c.named || c.name == "" {
		return
	}
	c.RemoveClass(c.baseClass + "-" + c.name)
	c.name = ""
}

// ResourceURLs lists uploaded resources referenced inside the container:
// link targets accepted by isFile, image sources and srcset candidates
// accepted by isImage.
func (c *ContentContainer) ResourceURLs(isFile, isImage func(string) bool) []string {
	var urls []string
	c.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href := s.AttrOr("href", ""); isFile(href) {
			urls = append(urls, href)
		}
	})
	c.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src := s.AttrOr("src", ""); src != "" && isImage(src) {
			urls = append(urls, src)
		}
		for _, candidate := range strings.Split(s.AttrOr("srcset", ""), ",") {
			fields := strings.Fields(candidate)
			if len(fields) > 0 && isImage(fields[0]) {
				urls = append(urls, fields[0])
			}
		}
	})
	return urls
}
