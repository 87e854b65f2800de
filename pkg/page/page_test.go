package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htmlpatch/internal/config"
	"htmlpatch/internal/html"
	"htmlpatch/pkg/htmlpatch"
)

const mainInner = `<p>Welcome <img src="images/cat-sc0123456789abc.jpg" srcset="images/cat-sc0123456789abc.jpg 1x, images/cat2-sc0123456789abd.png 2x"></p>` +
	`<a href="files/doc-sc0123456789abc.pdf">doc</a> <a href="files/evil-sc0123456789abc.php">x</a>`

const site = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Home</title>
<?php include 'header.php'; ?>
</head>
<body class="<?= $bodyClass ?>">
<ul class="sc-nav"><li><a href="/" title="Start">Home</a></li><li><a href="/about.html">About</a></li></ul>
<div class="sc-content-main">` + mainInner + `</div>
<div class="sc-content intro"><p>Unnamed</p></div>
<div class="sc-content-sidebar">Side</div>
</body>
</html>`

func load(t *testing.T, source string, edit ...func(*config.Config)) *Page {
	t.Helper()
	cfg := config.Default()
	cfg.Strict = true
	for _, fn := range edit {
		fn(&cfg)
	}
	p, err := New(source, cfg)
	require.NoError(t, err)
	return p
}

func TestNew_UntouchedRoundTrip(t *testing.T) {
	p := load(t, site)
	assert.NotEmpty(t, p.ID())
	assert.NotContains(t, p.Session().Buffer(), "<?php")
	assert.Equal(t, site, p.String())
}

func TestNew_TooLarge(t *testing.T) {
	_, err := New(site, config.Config{MaxDocumentSize: 10})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestContainers(t *testing.T) {
	p := load(t, site)

	all, err := p.Containers()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	named, err := p.Containers(htmlpatch.WithFilter("named"))
	require.NoError(t, err)
	assert.Len(t, named, 2)

	sidebar, err := p.Containers(htmlpatch.WithFilter("sidebar"))
	require.NoError(t, err)
	require.Len(t, sidebar, 1)
	assert.Equal(t, "Side", sidebar[0].InnerHTML())

	names, err := p.ContainerNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "sidebar"}, names)
	assert.True(t, p.HasContainer("main"))
	assert.False(t, p.HasContainer("footer"))
}

func TestSetContainerContent(t *testing.T) {
	p := load(t, site)
	require.NoError(t, p.SetContainerContent("main", "<p>New</p>"))

	want := strings.Replace(site, mainInner, "<p>New</p>", 1)
	assert.Equal(t, want, p.String())

	err := p.SetContainerContent("footer", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetContainersContent(t *testing.T) {
	p := load(t, site)

	err := p.SetContainersContent(map[string]string{"main": "A", "missing": "B"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, site, p.String(), "nothing changes when a name is missing")

	require.NoError(t, p.SetContainersContent(map[string]string{"main": "A", "sidebar": "B"}))
	out := p.String()
	assert.Contains(t, out, `<div class="sc-content-main">A</div>`)
	assert.Contains(t, out, `<div class="sc-content-sidebar">B</div>`)
}

func TestSetContainerContent_Sanitized(t *testing.T) {
	p := load(t, site, func(c *config.Config) { c.SanitizeContent = true })
	require.NoError(t, p.SetContainerContent("sidebar", `<p onclick="steal()">Hi<script>alert(1)</script></p>`))
	assert.Contains(t, p.String(), `<div class="sc-content-sidebar"><p>Hi</p></div>`)
}

func TestNameContainers(t *testing.T) {
	p := load(t, site)
	generated, err := p.NameContainers()
	require.NoError(t, err)
	require.Len(t, generated, 1)
	assert.True(t, strings.HasPrefix(generated[0], html.GeneratedNamePrefix))

	names, err := p.ContainerNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"main", generated[0], "sidebar"}, names)
	assert.Contains(t, p.String(), `<div class="sc-content intro sc-content-`+generated[0]+`"><p>Unnamed</p></div>`)

	again, err := p.NameContainers()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestResourceURLs(t *testing.T) {
	p := load(t, site)
	urls, err := p.ResourceURLs()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"files/doc-sc0123456789abc.pdf",
		"images/cat-sc0123456789abc.jpg",
		"images/cat2-sc0123456789abd.png",
	}, urls)
}

func TestIsEditableElement(t *testing.T) {
	p := load(t, site)
	paragraphs, err := p.Query("p")
	require.NoError(t, err)
	require.Equal(t, 2, paragraphs.Len())
	assert.True(t, p.IsEditableElement(paragraphs.Get(0)))

	items, err := p.Query("li")
	require.NoError(t, err)
	require.Equal(t, 2, items.Len())
	assert.False(t, p.IsEditableElement(items.Get(0)))
}

func TestContainerMarkdown(t *testing.T) {
	p := load(t, `<div class="sc-content-doc"><h1>Title</h1><p>Some <strong>bold</strong> text</p></div>`)
	md, err := p.ContainerMarkdown("doc")
	require.NoError(t, err)
	assert.Contains(t, md, "# Title")
	assert.Contains(t, md, "Some **bold** text")

	_, err = p.ContainerMarkdown("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMenus(t *testing.T) {
	p := load(t, site)
	menus, err := p.Menus()
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, html.DefaultMenuName, menus[0].Name())

	items := menus[0].Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Start", items[0].Title)
	assert.Equal(t, "/about.html", items[1].URL)
	assert.Equal(t, "About", items[1].Title)
}

func TestSaveMenus(t *testing.T) {
	p := load(t, site)
	items := []html.MenuItem{
		{Type: html.ItemTypePage, Text: "Home", URL: "/", Title: "Start"},
		{Type: html.ItemTypePage, Text: "About", URL: "/about.html"},
	}
	require.NoError(t, p.SaveMenus("main", items, func(url string) bool { return url == "/about.html" }))
	assert.Contains(t, p.String(), `<ul class="sc-nav">`+
		`<li><a class="" href="/" title="Start">Home</a></li>`+
		`<li><a class="active" href="/about.html" title="About">About</a></li></ul>`)

	err := p.SaveMenus("footer", items, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTitle(t *testing.T) {
	p := load(t, site)
	assert.Equal(t, "Home", p.Title())

	require.NoError(t, p.SetTitle("About & more"))
	assert.Contains(t, p.String(), "<title>About &amp; more</title>")
	assert.Equal(t, "About & more", p.Title())

	require.NoError(t, p.SetTitle(""))
	assert.NotContains(t, p.String(), "<title>")
	assert.Equal(t, "", p.Title())

	require.NoError(t, p.SetTitle("Back"))
	assert.Contains(t, p.String(), "<?php include 'header.php'; ?>\n<title>Back</title></head>")
}

func TestSetTitle_NoHead(t *testing.T) {
	p := load(t, `<p>fragment</p>`)
	assert.ErrorIs(t, p.SetTitle("x"), ErrNoHead)
	assert.ErrorIs(t, p.SetDescription("x"), ErrNoHead)
	assert.NoError(t, p.SetTitle(""))
}

func TestDescription(t *testing.T) {
	p := load(t, site)
	assert.Equal(t, "", p.Description())

	require.NoError(t, p.SetDescription("A site"))
	assert.Equal(t, "A site", p.Description())
	assert.Contains(t, p.String(), "<?php include 'header.php'; ?>\n<meta name=\"description\" content=\"A site\"></head>")

	require.NoError(t, p.SetDescription("Changed"))
	out := p.String()
	assert.Contains(t, out, `<meta name="description" content="Changed">`)
	assert.Equal(t, 1, strings.Count(out, `name="description"`))
}

func TestEnsureMeta_Attributes(t *testing.T) {
	p := load(t, site)
	require.NoError(t, p.EnsureMeta("robots", "noindex", "data-origin", "editor"))
	assert.Contains(t, p.String(), `<meta name="robots" content="noindex" data-origin="editor">`)

	charset, ok := p.Meta("charset")
	assert.False(t, ok)
	assert.Empty(t, charset)
}

func TestAddScript(t *testing.T) {
	p := load(t, site)
	require.NoError(t, p.AddScript("/js/app.js", AssetOptions{Attrs: []string{"defer", ""}}))
	require.NoError(t, p.AddScript("/js/app.js", AssetOptions{}))
	require.NoError(t, p.AddScript("init();", AssetOptions{Position: InBody, Inline: true}))

	out := p.String()
	assert.Equal(t, 1, strings.Count(out, `src="/js/app.js"`))
	assert.Contains(t, out, `<script src="/js/app.js" defer></script></head>`)
	assert.Contains(t, out, "<script>init();</script></body>")
}

func TestAddStyle(t *testing.T) {
	p := load(t, site)
	require.NoError(t, p.AddStyle("/css/site.css", AssetOptions{}))
	require.NoError(t, p.AddStyle("/css/site.css", AssetOptions{}))
	require.NoError(t, p.AddStyle("body{margin:0}", AssetOptions{Inline: true}))

	out := p.String()
	assert.Equal(t, 1, strings.Count(out, `href="/css/site.css"`))
	assert.Contains(t, out, `<link rel="stylesheet" href="/css/site.css"><style>body{margin:0}</style></head>`)
}

func TestAssets_RejectUnsafeMarkup(t *testing.T) {
	p := load(t, site)
	err := p.AddScript("/a.js", AssetOptions{Attrs: []string{`onload="x"`, "1"}})
	assert.ErrorIs(t, err, html.ErrAttributeName)
	err = p.AddScript(`x("</script>")`, AssetOptions{Inline: true})
	assert.ErrorIs(t, err, html.ErrRawTextClose)
	err = p.AddStyle("a{}</style>", AssetOptions{Inline: true})
	assert.ErrorIs(t, err, html.ErrRawTextClose)
	err = p.EnsureMeta("robots", "noindex", "bad name", "x")
	assert.ErrorIs(t, err, html.ErrAttributeName)

	assert.Equal(t, site, p.String())
}

func TestTemplateTagsUnprotected(t *testing.T) {
	p := load(t, site, func(c *config.Config) { c.ProtectTemplateTags = false })
	assert.Contains(t, p.Session().Buffer(), "<?php include")
	assert.Equal(t, site, p.String())
}

func TestTemplateTagInsideEditedTag(t *testing.T) {
	source := `<p><a class="<?php echo $c; ?>" <?php echo $attrs; ?>>x</a></p>`
	p := load(t, source)

	links, err := p.Query("a")
	require.NoError(t, err)
	require.Equal(t, 1, links.Len())
	links.Get(0).SetAttribute("title", "t")

	assert.Equal(t, `<p><a class="<?php echo $c; ?>" <?php echo $attrs; ?> title="t">x</a></p>`, p.String())
}
