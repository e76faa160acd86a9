// Package pathindex provides an O(k) prefix index over every path a
// commit stack touches, grounded on the retrieval pack's
// PatriciaPathIndex (armon/go-radix), trimmed to what the CLI's `paths`
// command needs: exact lookup of which rev last modified a path, and
// listing of indexed paths by prefix.
package pathindex

import (
	"sort"
	"strings"

	radix "github.com/armon/go-radix"

	shared "histedit/shared/types"
)

// Index maps every path known to a commit stack (its BottomFiles plus
// every commit's modified paths) to the highest rev that touches it.
type Index struct {
	tree *radix.Tree
}

// Build indexes bottom, then every commit in rev order so a later
// modification overwrites an earlier one for the same path.
func Build(bottom shared.BottomFiles, commits []shared.CommitState) *Index {
	tree := radix.New()
	for path := range bottom {
		tree.Insert(path, shared.RevBottom)
	}
	for _, c := range commits {
		for path := range c.Files {
			tree.Insert(path, c.Rev)
		}
	}
	return &Index{tree: tree}
}

// Lookup returns the highest rev that modifies path.
func (idx *Index) Lookup(path string) (shared.Rev, bool) {
	v, ok := idx.tree.Get(path)
	if !ok {
		return shared.RevBottom, false
	}
	return v.(shared.Rev), true
}

// WithPrefix returns every indexed path starting with prefix, sorted.
func (idx *Index) WithPrefix(prefix string) []string {
	var out []string
	idx.tree.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		out = append(out, key)
		return false
	})
	sort.Strings(out)
	return out
}

// Len returns the number of distinct indexed paths.
func (idx *Index) Len() int {
	return idx.tree.Len()
}

// LongestPrefixMatch returns the longest indexed path that is a prefix of
// path, mirroring the retrieval pack's directory-ancestor lookup idiom.
func (idx *Index) LongestPrefixMatch(path string) (string, bool) {
	key, _, ok := idx.tree.LongestPrefix(path)
	if !ok || !strings.HasPrefix(path, key) {
		return "", false
	}
	return key, true
}
