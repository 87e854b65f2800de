package page

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// newSanitizer returns the policy applied to content saved into containers.
// Class names survive so nested containers and styling hooks are kept.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("target").OnElements("a")
	return p
}

// ContainerMarkdown converts the content of the named container to Markdown.
// Containers sharing the name are joined with a blank line.
func (p *Page) ContainerMarkdown(name string) (string, error) {
	containers, err := p.containersNamed(name)
	if err != nil {
		return "", err
	}
	var out string
	for i, c := range containers {
		md, err := p.markdown.ConvertString(c.InnerHTML())
		if err != nil {
			return "", fmt.Errorf("failed to convert container %q: %w", name, err)
		}
		if i > 0 {
			out += "\n\n"
		}
		out += md
	}
	return out, nil
}
