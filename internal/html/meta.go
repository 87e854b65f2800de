package html

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrAttributeName is returned when a builder is given an attribute name
	// that cannot be written as markup.
	ErrAttributeName = errors.New("invalid attribute name")
	// ErrRawTextClose is returned when inline script or style text would
	// close its own element.
	ErrRawTextClose = errors.New("inline text contains a closing tag")
)

var attrName = regexp.MustCompile(`^[A-Za-z_:][-A-Za-z0-9_:.]*$`)

// NewMeta builds a <meta name=".." content=".."> element. Extra attributes
// are appended in the order given as name/value pairs.
func NewMeta(name, content string, attrs ...string) (*Element, error) {
	extra, err := attrList(attrs, false)
	if err != nil {
		return nil, err
	}
	return MustElement(`<meta name="` + html.EscapeString(name) + `" content="` +
		html.EscapeString(content) + `"` + extra + ">"), nil
}

// NewTitle builds a <title> element holding text.
func NewTitle(text string) *Element {
	return MustElement("<title>" + html.EscapeString(text) + "</title>")
}

// NewScript builds an external <script> element. An extra attribute with an
// empty value is written without one.
func NewScript(src string, attrs ...string) (*Element, error) {
	extra, err := attrList(attrs, true)
	if err != nil {
		return nil, err
	}
	return MustElement(`<script src="` + html.EscapeString(src) + `"` + extra + "></script>"), nil
}

// NewStylesheet builds a <link rel="stylesheet"> element.
func NewStylesheet(href string, attrs ...string) (*Element, error) {
	extra, err := attrList(attrs, true)
	if err != nil {
		return nil, err
	}
	return MustElement(`<link rel="stylesheet" href="` + html.EscapeString(href) + `"` + extra + ">"), nil
}

// NewInlineScript builds a <script> element holding code.
func NewInlineScript(code string, attrs ...string) (*Element, error) {
	if err := checkRawText("script", code); err != nil {
		return nil, err
	}
	extra, err := attrList(attrs, false)
	if err != nil {
		return nil, err
	}
	return MustElement("<script" + extra + ">" + code + "</script>"), nil
}

// NewInlineStyle builds a <style> element holding css.
func NewInlineStyle(css string) (*Element, error) {
	if err := checkRawText("style", css); err != nil {
		return nil, err
	}
	return MustElement("<style>" + css + "</style>"), nil
}

// attrList writes name/value pairs as attributes. A trailing name without a
// value is an error.
func attrList(pairs []string, bare bool) (string, error) {
	if len(pairs)%2 != 0 {
		return "", fmt.Errorf("%w: %q has no value", ErrAttributeName, pairs[len(pairs)-1])
	}
	var b strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		name, value := pairs[i], pairs[i+1]
		if !attrName.MatchString(name) {
			return "", fmt.Errorf("%w: %q", ErrAttributeName, name)
		}
		b.WriteString(" " + name)
		if bare && value == "" {
			continue
		}
		b.WriteString(`="` + html.EscapeString(value) + `"`)
	}
	return b.String(), nil
}

func checkRawText(tag, text string) error {
	if strings.Contains(strings.ToLower(text), "</"+tag) {
		return fmt.Errorf("%w: </%s", ErrRawTextClose, tag)
	}
	return nil
}
