package ws

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"wsync-go/internal/model"
)

// NodeKind tags a TreeNode as a folder or a leaf file.
type NodeKind string

const (
	NodeFolder NodeKind = "folder"
	NodeFile   NodeKind = "file"
)

// TreeNode is one entry in the rendered file tree. Folder nodes carry
// children; Implicit marks folders synthesized from a path prefix with no
// explicit directory record behind them.
type TreeNode struct {
	Kind     NodeKind
	Path     string
	Name     string
	File     *model.File // nil for implicit folders
	Expanded bool        // display flag, folders only
	Implicit bool
	Children []*TreeNode
}

// BuildTree turns a flat collection of file records belonging to one
// workspace into a sorted, nested tree. It is a pure function: identical
// input yields structurally identical output.
//
// Ancestor path prefixes of leaf files that have no explicit directory
// record become implicit folder nodes. A directory record whose path also
// appears as a derived prefix is the same node, identified by path, never
// duplicated. Siblings sort folders first, then by name under a
// case-insensitive locale-aware collation.
func BuildTree(files []*model.File, expanded map[string]bool) []*TreeNode {
	nodes := make(map[string]*TreeNode)

	// Explicit directory records first so derived prefixes find them.
	for _, f := range files {
		if !f.IsDirectory {
			continue
		}
		nodes[f.Path] = &TreeNode{
			Kind:     NodeFolder,
			Path:     f.Path,
			Name:     f.Name,
			File:     f,
			Expanded: expanded[f.Path],
		}
	}

	for _, f := range files {
		if f.IsDirectory {
			continue
		}
		for _, prefix := range ancestorPrefixes(f.Path) {
			if _, ok := nodes[prefix]; ok {
				continue
			}
			nodes[prefix] = &TreeNode{
				Kind:     NodeFolder,
				Path:     prefix,
				Name:     baseName(prefix),
				Expanded: expanded[prefix],
				Implicit: true,
			}
		}
		nodes[f.Path] = &TreeNode{
			Kind: NodeFile,
			Path: f.Path,
			Name: f.Name,
			File: f,
		}
	}

	// Attach each node to its parent; nodes with no parent are roots.
	var roots []*TreeNode
	for _, n := range nodes {
		parentPath := parentOf(n.Path)
		if parentPath == "" {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[parentPath]; ok {
			parent.Children = append(parent.Children, n)
		} else {
			roots = append(roots, n)
		}
	}

	coll := collate.New(language.Und, collate.IgnoreCase)
	sortLevel(roots, coll)
	return roots
}

// sortLevel orders siblings folders-before-files then by collated name,
// recursing into folder children.
func sortLevel(nodes []*TreeNode, coll *collate.Collator) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Kind != b.Kind {
			return a.Kind == NodeFolder
		}
		if c := coll.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		// Collation ties (case-insensitive equals) fall back to the raw
		// path so ordering stays total and deterministic.
		return a.Path < b.Path
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortLevel(n.Children, coll)
		}
	}
}

// ancestorPrefixes returns every ancestor path of p, shortest first.
// "src/lib/util.ts" yields ["src", "src/lib"]. A path with no slashes
// yields nil.
func ancestorPrefixes(p string) []string {
	var prefixes []string
	for i, r := range p {
		if r == '/' && i > 0 {
			prefixes = append(prefixes, p[:i])
		}
	}
	return prefixes
}

func parentOf(p string) string {
	if i := strings.LastIndexByte(p, '/'); i > 0 {
		return p[:i]
	}
	return ""
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
