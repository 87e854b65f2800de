package html

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsVoid reports whether tag never has a closing counterpart.
func IsVoid(tag string) bool {
	switch atom.Lookup([]byte(strings.ToLower(tag))) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

// OpenTagEnd returns the offset just past the '>' closing the tag that starts
// at s[0], ignoring '>' inside quoted attribute values. -1 if unterminated.
func OpenTagEnd(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			// Quotes only open a value directly after '=' (possibly spaced).
			if prevNonSpace(s, i) == '=' {
				quote = c
			}
		case c == '>':
			return i + 1
		}
	}
	return -1
}

func prevNonSpace(s string, i int) byte {
	for j := i - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t', '\r', '\n', '\f':
			continue
		}
		return s[j]
	}
	return 0
}

// split breaks the markup of one element into its source open tag, parsed
// open-tag token, inner content and closing tag.
func split(raw string) (open string, tok html.Token, inner, closing string, err error) {
	if len(raw) < 3 || raw[0] != '<' || !isLetter(raw[1]) {
		return "", tok, "", "", fmt.Errorf("%w: %q", ErrNotElement, clip(raw))
	}
	end := OpenTagEnd(raw)
	if end < 0 {
		return "", tok, "", "", fmt.Errorf("%w: unterminated open tag in %q", ErrNotElement, clip(raw))
	}
	open = raw[:end]

	z := html.NewTokenizer(strings.NewReader(open))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return "", tok, "", "", fmt.Errorf("%w: %q", ErrNotElement, clip(raw))
	}
	tok = z.Token()

	if IsVoid(tok.Data) || (tt == html.SelfClosingTagToken && end == len(raw)) {
		if end != len(raw) {
			return "", tok, "", "", fmt.Errorf("%w: trailing markup after <%s>", ErrNotElement, tok.Data)
		}
		return open, tok, "", "", nil
	}

	i := strings.LastIndex(raw, "</")
	if i < end || !strings.HasSuffix(raw, ">") {
		return "", tok, "", "", fmt.Errorf("%w: missing </%s>", ErrNotElement, tok.Data)
	}
	name := strings.Fields(raw[i+2 : len(raw)-1])
	if len(name) == 0 || !strings.EqualFold(name[0], tok.Data) {
		return "", tok, "", "", fmt.Errorf("%w: missing </%s>", ErrNotElement, tok.Data)
	}
	return open, tok, raw[end:i], raw[i:], nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// clip shortens s to at most 40 bytes for error messages, cutting on a rune
// boundary.
func clip(s string) string {
	if len(s) <= 40 {
		return s
	}
	i := 40
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "..."
}
