package htmlpatch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htmlpatch/internal/html"
	"htmlpatch/internal/selector"
)

const page = "<!DOCTYPE html>\n<html>\n<head>\n  <title>T</title>\n</head>\n<body>\n" +
	"  <div   class=\"sc-content-outer\" >\n" +
	"    <p class=\"x\">one</p>\n" +
	"    <p class='x'>two</p>\n" +
	"  </div>\n" +
	"  <?php echo $footer; ?>\n" +
	"</body>\n</html>\n"

func query(t *testing.T, s *Session, sel string) *html.ElementList {
	t.Helper()
	l, err := s.Query(sel)
	require.NoError(t, err)
	return l
}

// spanText returns the buffer text currently addressed by el.
func spanText(t *testing.T, s *Session, el *html.Element) string {
	t.Helper()
	start, end, ok := s.Span(el)
	require.True(t, ok, "element not indexed")
	return s.Buffer()[start:end]
}

func TestLoadAndRender_Untouched(t *testing.T) {
	s := Load(page)
	all := query(t, s, "*")
	assert.Equal(t, 6, all.Len())
	assert.Equal(t, page, s.Content())
	assert.Equal(t, page, s.Content())
	assert.Equal(t, 0, s.Stats().Renders)
}

func TestQuery_SkipsDocumentRoot(t *testing.T) {
	s := Load(page)
	assert.Equal(t, 0, query(t, s, "html").Len())
	tags := []string{}
	query(t, s, "*").Each(func(_ int, el *html.Element) {
		tags = append(tags, el.TagName())
	})
	assert.Equal(t, []string{"head", "title", "body", "div", "p", "p"}, tags)
}

func TestQuery_VoidElement(t *testing.T) {
	s := Load(`<p><img src="a.png"> x</p>`)
	imgs := query(t, s, "img")
	require.Equal(t, 1, imgs.Len())
	start, end, ok := s.Span(imgs.Get(0))
	require.True(t, ok)
	assert.Equal(t, 3, start)
	assert.Equal(t, 20, end)
	assert.Equal(t, `<img src="a.png">`, imgs.Get(0).OuterHTML())
}

func TestQuery_UnbalancedTagYieldsEmpty(t *testing.T) {
	s := Load(`<div><div>x</div><p>ok</p>`)
	divs, err := s.Query("div")
	require.NoError(t, err)
	assert.Equal(t, 0, divs.Len())
	assert.Equal(t, 1, query(t, s, "p").Len())
}

func TestQuery_OverlappingMarkupYieldsEmpty(t *testing.T) {
	s := Load(`<b><i></b></i>`)
	assert.Equal(t, 1, query(t, s, "b").Len())
	assert.Equal(t, 0, query(t, s, "i").Len())
	require.NoError(t, s.Validate())
}

func TestQuery_InvalidSelector(t *testing.T) {
	s := Load(page)
	_, err := s.Query("div > p")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestQuery_CachedListIdentity(t *testing.T) {
	s := Load(page)
	first := query(t, s, "p")
	again := query(t, s, "p")
	assert.Same(t, first, again)
	assert.Equal(t, 1, s.Stats().CacheHits)

	// Equivalent selectors share the cache key.
	assert.Same(t, first, query(t, s, "p:hover"))

	s.InsertBefore(html.MustElement(`<hr>`), first.Get(0))
	fresh := query(t, s, "p")
	assert.NotSame(t, first, fresh)
	assert.Same(t, first.Get(0), fresh.Get(0))
	assert.Same(t, first.Get(1), fresh.Get(1))
}

func TestQuery_NothingMatchedIsCached(t *testing.T) {
	s := Load(page)
	assert.Equal(t, 0, query(t, s, "table").Len())
	assert.Equal(t, 0, query(t, s, "table").Len())
	assert.Equal(t, 1, s.Stats().CacheHits)
}

func TestQuery_Nesting(t *testing.T) {
	s := Load(page)
	ps := query(t, s, "p")
	div := query(t, s, "div").Get(0)
	body := query(t, s, "body").Get(0)

	assert.Same(t, div, s.Parent(ps.Get(0)))
	assert.Equal(t, []*html.Element{ps.Get(0), ps.Get(1)}, s.Children(div))
	assert.True(t, s.IsChildOf(ps.Get(1), body))
	assert.False(t, s.IsChildOf(body, ps.Get(1)))
	assert.Nil(t, s.Parent(body))
	require.NoError(t, s.Validate())
	assert.Contains(t, s.Tree(), "<p class=\"x\">one</p>")
}

func TestFilterChaining(t *testing.T) {
	s := Load(`<p>0</p><p>1</p><p>2</p>`)
	second := query(t, s, "p:eq(1)")
	require.Equal(t, 1, second.Len())
	el := second.Get(0)
	assert.Equal(t, `<p>1</p>`, el.OuterHTML())

	all := query(t, s, "p")
	all.Get(0).SetText("zero")
	s.Remove(all.Get(2))
	assert.Equal(t, `<p>zero</p><p>1</p>`, s.Content())

	again := query(t, s, "p:eq(1)")
	require.Equal(t, 1, again.Len())
	assert.Same(t, el, again.Get(0))
	assert.Equal(t, `<p>1</p>`, spanText(t, s, el))
}

func TestQuery_FilterOptions(t *testing.T) {
	s := Load(`<p>0</p><p class="k">1</p><p class="k">2</p>`)
	l, err := s.Query("p", WithFilterFunc(func(l *html.ElementList) *html.ElementList {
		return l.Filter(func(el *html.Element) bool { return el.HasClass("k") })
	}), WithFilter("last"))
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, `<p class="k">2</p>`, l.Get(0).OuterHTML())

	_, err = s.Query("p", WithFilter("eq", "x"))
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestSurgicalLocality(t *testing.T) {
	s := Load(page)
	ps := query(t, s, "p")
	ps.Get(0).SetAttribute("data-k", "v")

	want := strings.Replace(page, `<p class="x">one</p>`, `<p class="x" data-k="v">one</p>`, 1)
	assert.Equal(t, want, s.Content())
	assert.Equal(t, `<p class='x'>two</p>`, spanText(t, s, ps.Get(1)))
	assert.False(t, ps.Get(0).IsModified())
	require.NoError(t, s.Validate())
}

func TestNestedContainers(t *testing.T) {
	doc := `<div class="sc-content-outer"><div class="sc-content-inner">x</div></div>`
	s := Load(doc)
	containers, err := s.Select(selector.ContentContainerSelector{BaseClass: "sc-content"})
	require.NoError(t, err)
	require.Equal(t, 2, containers.Len())
	outer, inner := containers.Get(0), containers.Get(1)
	assert.Same(t, outer, s.Parent(inner))

	inner.SetText("y")
	assert.False(t, outer.IsModified())
	out := s.Content()
	assert.Equal(t, `<div class="sc-content-outer"><div class="sc-content-inner">y</div></div>`, out)
	assert.Contains(t, outer.OuterHTML(), ">y<")
	assert.Equal(t, 1, s.Stats().Substitutions)
}

func TestNestedEditsFoldIntoParent(t *testing.T) {
	s := Load(`<main><div id="a">  <p>x</p>  <p>y</p> </div></main>`)
	div := query(t, s, "#a").Get(0)
	ps := query(t, s, "p")
	div.SetAttribute("class", "c")
	ps.Get(1).SetText("z")

	assert.Equal(t, `<main><div id="a" class="c">  <p>x</p>  <p>z</p> </div></main>`, s.Content())
	assert.Equal(t, `<p>x</p>`, spanText(t, s, ps.Get(0)))
	assert.Equal(t, `<p>z</p>`, spanText(t, s, ps.Get(1)))
	require.NoError(t, s.Validate())
}

func TestDuplicateTextIsNotCorrupted(t *testing.T) {
	s := Load(`<p>same</p><p>same</p>`)
	ps := query(t, s, "p")
	ps.Get(1).SetText("second")
	assert.Equal(t, `<p>same</p><p>second</p>`, s.Content())
}

func TestReplacedContentDropsChildren(t *testing.T) {
	s := Load(`<ul><li>a</li><li>b</li></ul>`)
	lis := query(t, s, "li")
	ul := query(t, s, "ul").Get(0)
	ul.SetHTML(`<li>c</li>`)

	assert.Equal(t, `<ul><li>c</li></ul>`, s.Content())
	assert.False(t, s.Contains(lis.Get(0)))
	assert.False(t, s.Contains(lis.Get(1)))
	require.NoError(t, s.Validate())

	fresh := query(t, s, "li")
	require.Equal(t, 1, fresh.Len())
	assert.Same(t, ul, s.Parent(fresh.Get(0)))
}

func TestAppendTo(t *testing.T) {
	s := Load(`<ul id="m"><li>a</li></ul>`)
	ul := query(t, s, "ul").Get(0)
	li := html.MustElement(`<li>b</li>`)

	s.AppendTo(ul, li)
	assert.Equal(t, `<ul id="m"><li>a</li><li>b</li></ul>`, s.Buffer())
	ins := s.Inserted()
	require.NotNil(t, ins)
	assert.NotSame(t, li, ins)
	assert.Same(t, ul, s.Parent(ins))
	assert.True(t, ul.ContentModified())
	assert.Equal(t, `<ul id="m"><li>a</li><li>b</li></ul>`, ul.OuterHTML())
	require.NoError(t, s.Validate())

	assert.Equal(t, `<ul id="m"><li>a</li><li>b</li></ul>`, s.Content())
}

func TestAppendTo_ReplacedContent(t *testing.T) {
	s := Load(`<div><p>a</p></div>`)
	div := query(t, s, "div").Get(0)
	div.SetHTML(`<p>b</p>`)
	s.AppendTo(div, html.MustElement(`<p>c</p>`))
	assert.Equal(t, `<div><p>b</p><p>c</p></div>`, s.Content())
}

func TestAppendTo_AfterAppendedHTML(t *testing.T) {
	s := Load(`<div><p>a</p></div>`)
	div := query(t, s, "div").Get(0)
	div.AppendHTML(`<i>first</i>`)
	s.AppendTo(div, html.MustElement(`<b>second</b>`))
	assert.Equal(t, `<div><p>a</p><i>first</i><b>second</b></div>`, s.Content())
	require.NoError(t, s.Validate())
}

func TestInsertBeforeAndAfter(t *testing.T) {
	s := Load(`<div><p>a</p></div>`)
	p := query(t, s, "p").Get(0)
	div := query(t, s, "div").Get(0)

	s.InsertBefore(html.MustElement(`<hr>`), p).
		InsertAfter(html.MustElement(`<br>`), p)
	assert.Equal(t, `<div><hr><p>a</p><br></div>`, s.Buffer())
	assert.Equal(t, `<p>a</p>`, spanText(t, s, p))
	assert.Equal(t, `<br>`, spanText(t, s, s.Inserted()))
	assert.Same(t, div, s.Parent(s.Inserted()))
	assert.True(t, div.ContentModified())
	require.NoError(t, s.Validate())
}

func TestReplace(t *testing.T) {
	s := Load(`<div><p>a</p><span>s</span></div>`)
	p := query(t, s, "p").Get(0)
	span := query(t, s, "span").Get(0)

	s.Replace(html.MustElement(`<p class="n">longer</p>`), p)
	assert.Equal(t, `<div><p class="n">longer</p><span>s</span></div>`, s.Buffer())
	assert.False(t, s.Contains(p))
	assert.Equal(t, `<span>s</span>`, spanText(t, s, span))
	require.NoError(t, s.Validate())
}

func TestRemove(t *testing.T) {
	s := Load(`<div id="a"><p>x</p></div><span>y</span>`)
	p := query(t, s, "p").Get(0)
	div := query(t, s, "div").Get(0)
	span := query(t, s, "span").Get(0)

	s.Remove(div)
	assert.Equal(t, `<span>y</span>`, s.Buffer())
	assert.False(t, s.Contains(p))
	assert.False(t, s.Contains(div))
	assert.Equal(t, `<span>y</span>`, spanText(t, s, span))
	require.NoError(t, s.Validate())

	// Edits through stale references are ignored.
	s.Remove(div).InsertAfter(html.MustElement(`<b>x</b>`), p).AppendTo(div, p)
	assert.Equal(t, `<span>y</span>`, s.Buffer())
}

func TestOffsetSoundness(t *testing.T) {
	s := Load(`<section><ul><li>0</li></ul><div><p>a</p></div></section>`, WithStrict(true))
	for i := 0; i < 24; i++ {
		ul := query(t, s, "ul").Get(0)
		lis := query(t, s, "li")
		ps := query(t, s, "p")
		assert.NotPanics(t, func() {
			switch i % 5 {
			case 0:
				s.AppendTo(ul, html.MustElement(fmt.Sprintf("<li>%d</li>", i)))
			case 1:
				s.InsertBefore(html.MustElement(fmt.Sprintf("<p>%d</p>", i)), ps.First().Get(0))
			case 2:
				if lis.Len() > 1 {
					s.Remove(lis.Last().Get(0))
				}
			case 3:
				s.Replace(html.MustElement(fmt.Sprintf("<p>r%d</p>", i)), ps.Last().Get(0))
			case 4:
				ps.First().Get(0).SetText(fmt.Sprint(i))
				s.Content()
			}
		})
		require.NoError(t, s.Validate(), "after step %d", i)
		query(t, s, "*").Each(func(_ int, el *html.Element) {
			if !el.IsModified() {
				assert.Equal(t, el.OuterHTML(), spanText(t, s, el), "step %d", i)
			}
		})
	}
	out := s.Content()
	assert.True(t, strings.HasPrefix(out, "<section><ul>"))
	assert.Equal(t, out, s.Content())
}

func TestTemplateFragmentsSurvive(t *testing.T) {
	doc := "<div class=\"a\"><?= $x ?>\n\t<p>x</p></div><!-- <p>not me</p> -->"
	s := Load(doc)
	div := query(t, s, "div").Get(0)
	div.SetAttribute("class", "b")
	assert.Equal(t, strings.Replace(doc, `class="a"`, `class="b"`, 1), s.Content())
}

func repeatedBlocks(n int) string {
	return strings.Repeat(`<div class="c"><p>x</p></div>`, n)
}

func TestQuery_ManyRepeatedBlocks(t *testing.T) {
	const n = 5000
	s := Load(repeatedBlocks(n))
	assert.Equal(t, 2*n, query(t, s, "*").Len())
	assert.Equal(t, n, query(t, s, "div.c").Len())
	assert.Equal(t, n, query(t, s, "div p").Len())
	require.NoError(t, s.Validate())

	last := query(t, s, "p").Last().Get(0)
	last.SetText("y")
	out := s.Content()
	assert.True(t, strings.HasSuffix(out, `<div class="c"><p>y</p></div>`))
	assert.Equal(t, n-1, strings.Count(out, `<p>x</p>`))
}

func BenchmarkQuery(b *testing.B) {
	for _, n := range []int{1000, 16000} {
		text := repeatedBlocks(n)
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				s := Load(text)
				if _, err := s.Query("div p"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
