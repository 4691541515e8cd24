package indexer

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/care-engine/care/internal/repository"
)

// renderTree renders a depth-limited directory tree from the already
// filtered candidate list, so exclusions are honoured automatically (§4.5
// step 2). Depth 1 is the set of top-level entries; files and directories
// below maxDepth are omitted, not truncated silently into their parent.
func renderTree(candidates []repository.FileCandidate, maxDepth int) string {
	if maxDepth <= 0 {
		maxDepth = 5
	}

	type node struct {
		children map[string]*node
		isFile   bool
	}
	root := &node{children: map[string]*node{}}

	for _, c := range candidates {
		fullParts := strings.Split(filepath.ToSlash(c.RelPath), "/")
		parts := fullParts
		truncated := len(fullParts) > maxDepth
		if truncated {
			parts = fullParts[:maxDepth]
		}
		cur := root
		for i, part := range parts {
			child, ok := cur.children[part]
			if !ok {
				child = &node{children: map[string]*node{}}
				cur.children[part] = child
			}
			if i == len(parts)-1 && !truncated {
				child.isFile = true
			}
			cur = child
		}
	}

	var b strings.Builder
	var walk func(n *node, prefix string, depth int)
	walk = func(n *node, prefix string, depth int) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := n.children[name]
			b.WriteString(prefix)
			b.WriteString(name)
			if !child.isFile {
				b.WriteString("/")
			}
			b.WriteString("\n")
			if depth < maxDepth {
				walk(child, prefix+"  ", depth+1)
			}
		}
	}
	walk(root, "", 1)
	return b.String()
}
