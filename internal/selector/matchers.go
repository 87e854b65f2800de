package selector

import (
	"regexp"
)

const (
	whitespace = `[\x20\t\r\n\f]`
	identifier = `[a-zA-Z][\w:-]*`
)

// Equivalence selects how an attribute value is compared.
type Equivalence int

const (
	Equals     Equivalence = iota // [attr="v"]
	StartsWith                    // [attr^="v"]
	EndsWith                      // [attr$="v"]
	Contains                      // [attr*="v"]
	Word                          // [attr~="v"], whitespace-separated token
	Regexp                        // value is a raw regular expression spanning the whole value
)

var equivalenceBySymbol = map[string]Equivalence{
	"":  Equals,
	"^": StartsWith,
	"$": EndsWith,
	"*": Contains,
	"~": Word,
}

func tagExpr(tag string) string {
	if tag == "" {
		return identifier
	}
	return regexp.QuoteMeta(tag)
}

// openTag builds the expression for an open tag of tag (any tag when empty)
// whose attribute area holds attr, which must follow whitespace.
func openTag(tag, attr string) string {
	if attr == "" {
		return `(?i)<(` + tagExpr(tag) + `)(?:` + whitespace + `[^>]*|/)?>`
	}
	return `(?i)<(` + tagExpr(tag) + `)(?:` + whitespace + `[^>]*?)?` + whitespace + attr + `[^>]*>`
}

// Global matches every open tag.
func Global() Pattern {
	return MustPattern(openTag("", ""))
}

// Tag matches open tags with the given name. The name must be followed by
// whitespace, '/' or '>' so <b> never matches <br> or <body>.
func Tag(name string) Pattern {
	return MustPattern(openTag(name, ""))
}

// ID matches the element whose id equals id, optionally restricted to tag.
func ID(id, tag string) Pattern {
	return Attr("id", id, tag, Equals)
}

// Class matches elements whose class list holds class as a whole token.
func Class(class, tag string) Pattern {
	return Attr("class", class, tag, Word)
}

// Attr matches elements whose attr value relates to value by eq. With
// Regexp, value is used as is and must compile.
func Attr(attr, value, tag string, eq Equivalence) Pattern {
	p, err := NewPattern(attrExpr(attr, value, tag, eq))
	if err != nil {
		panic(err)
	}
	return p
}

func attrExpr(attr, value, tag string, eq Equivalence) string {
	v := value
	if eq != Regexp {
		v = regexp.QuoteMeta(value)
	}
	// form receives the quote and the class of characters allowed inside it.
	quoted := func(form func(q, in string) string) string {
		return "(?:" + form(`"`, `[^"]`) + "|" + form(`'`, `[^']`) + ")"
	}
	var val string
	switch eq {
	case StartsWith:
		val = quoted(func(q, in string) string { return q + v + in + "*" + q })
	case EndsWith:
		val = quoted(func(q, in string) string { return q + in + "*" + v + q })
	case Contains:
		val = quoted(func(q, in string) string { return q + in + "*" + v + in + "*" + q })
	case Word:
		val = quoted(func(q, in string) string {
			return q + "(?:" + in + "*" + whitespace + ")?" + v + "(?:" + whitespace + in + "*)?" + q
		})
	case Regexp:
		val = quoted(func(q, in string) string { return q + "(?:" + v + ")" + q })
	default:
		val = quoted(func(q, in string) string { return q + v + q })
	}
	return openTag(tag, regexp.QuoteMeta(attr)+whitespace+`*=`+whitespace+`*`+val)
}
