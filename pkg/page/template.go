package page

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// templateTag matches a server-side template fragment: <?php .. ?>, <?= .. ?>
// or <% .. %>. An unterminated fragment runs to the end of the source.
var templateTag = regexp.MustCompile(`(?s)<[?%]=?(?:php)?\s.*?(?:[?%]>|\z)`)

// fragments remembers the template code hidden behind placeholders.
type fragments struct {
	replacer *strings.Replacer
	count    int
}

// protect swaps every template fragment in source for a placeholder that
// loads as ordinary markup: an empty script element in text, a bare
// attribute name inside a tag.
func protect(source string) (string, *fragments) {
	locs := templateTag.FindAllStringIndex(source, -1)
	if len(locs) == 0 {
		return source, &fragments{}
	}
	var (
		b     strings.Builder
		pairs []string
		last  int
	)
	for _, loc := range locs {
		code := source[loc[0]:loc[1]]
		id := uuid.NewString()
		b.WriteString(source[last:loc[0]])
		// Earlier fragments are already swapped out, so inspect the output.
		if insideTag(b.String()) {
			token := "sc-tpl-" + id
			b.WriteString(token)
			// A re-rendered open tag writes the token as an empty attribute.
			pairs = append(pairs, token+`=""`, code, token, code)
		} else {
			placeholder := `<script data-sc-script="` + id + `"></script>`
			b.WriteString(placeholder)
			pairs = append(pairs, placeholder, code)
		}
		last = loc[1]
	}
	b.WriteString(source[last:])
	return b.String(), &fragments{replacer: strings.NewReplacer(pairs...), count: len(locs)}
}

// restore puts the template code back in place of its placeholders.
func (f *fragments) restore(text string) string {
	if f == nil || f.replacer == nil {
		return text
	}
	return f.replacer.Replace(text)
}

// Len returns the number of protected fragments.
func (f *fragments) Len() int {
	return f.count
}

// insideTag reports whether text ends between the '<' of an open or close
// tag and its '>'.
func insideTag(text string) bool {
	open := strings.LastIndexByte(text, '<')
	if open < 0 || open < strings.LastIndexByte(text, '>') {
		return false
	}
	next := text[open+1:]
	if strings.HasPrefix(next, "/") {
		next = next[1:]
	}
	return next != "" && isLetter(next[0])
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
