package index

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xlab/treeprint"
)

// Tree renders the parent/child structure of the index, one node per entry
// labelled with its id, span and the first line of its text.
func (ix *Index) Tree() string {
	root := treeprint.NewWithRoot(fmt.Sprintf("index (%d entries)", ix.Len()))
	var add func(branch treeprint.Tree, e *Entry)
	add = func(branch treeprint.Tree, e *Entry) {
		label := fmt.Sprintf("#%d [%d,%d) %s", e.ID, e.Start, e.End, preview(e.Original))
		children := ix.ChildEntries(e)
		if len(children) == 0 {
			branch.AddNode(label)
			return
		}
		sub := branch.AddBranch(label)
		for _, c := range children {
			add(sub, c)
		}
	}
	for _, e := range ix.Roots() {
		add(root, e)
	}
	return root.String()
}

func preview(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i] + "…"
	}
	if len(s) > 48 {
		i := 48
		for i > 0 && !utf8.RuneStart(s[i]) {
			i--
		}
		s = s[:i] + "…"
	}
	return s
}
