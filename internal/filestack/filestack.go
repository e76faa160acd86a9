// Package filestack implements the file-stack black-box contract of
// spec §4.2: the linear history of one path's UTF-8 content, with a
// per-line provenance analysis that backs CalculateDepMap. The core
// commit-stack engine never looks past this interface.
//
// Line provenance is grounded on the teacher's internal/diff.Engine
// (LCS-based line diffing): each new revision is diffed against its
// predecessor, and every retained line inherits the origin its
// predecessor already recorded for it, so a line's origin always
// points at the revision that *introduced* it, not merely its
// immediate parent.
package filestack

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	shared "histedit/shared/types"
)

// FileStack is an ordered sequence of UTF-8 text revisions, labeled by
// Rev. Revisions are immutable; every mutating method returns a new
// FileStack sharing nothing observable with the original (copy-on-write).
type FileStack struct {
	labels   []shared.Rev
	contents []string
	index    map[shared.Rev]int
}

// New constructs a FileStack from an ordered list of revision contents,
// labeling them 0..len(revisions)-1. fileRev 0 is conventionally the
// pre-stack (or prior-commit) content, per spec I6.
func New(revisions []string) *FileStack {
	fs := &FileStack{
		labels:   make([]shared.Rev, len(revisions)),
		contents: append([]string(nil), revisions...),
		index:    make(map[shared.Rev]int, len(revisions)),
	}
	for i := range revisions {
		fs.labels[i] = shared.Rev(i)
		fs.index[shared.Rev(i)] = i
	}
	return fs
}

func (fs *FileStack) RevLength() int { return len(fs.contents) }

func (fs *FileStack) Revs() []shared.Rev {
	return append([]shared.Rev(nil), fs.labels...)
}

func (fs *FileStack) GetRev(r shared.Rev) (string, error) {
	idx, ok := fs.index[r]
	if !ok {
		return "", fmt.Errorf("filestack: rev %d not present", r)
	}
	return fs.contents[idx], nil
}

// EditText replaces rev r's content. immutable=false signals that
// downstream revisions are permitted to reflow around the edit; this
// implementation never reflows automatically (reflow is a diff-engine
// concern out of scope per spec §1), so the flag is accepted for
// interface parity and to let callers record editing intent.
func (fs *FileStack) EditText(r shared.Rev, s string, immutable bool) (*FileStack, error) {
	idx, ok := fs.index[r]
	if !ok {
		return nil, fmt.Errorf("filestack: rev %d not present", r)
	}
	nc := append([]string(nil), fs.contents...)
	nc[idx] = s
	return &FileStack{labels: append([]shared.Rev(nil), fs.labels...), contents: nc, index: cloneIndex(fs.index)}, nil
}

// RemapRevs relabels revs per m; labels absent from m keep their value.
// Used by the stack builder's appendRev to carry the existing labels over
// to a freshly rebuilt stack.
func (fs *FileStack) RemapRevs(m map[shared.Rev]shared.Rev) *FileStack {
	newLabels := make([]shared.Rev, len(fs.labels))
	for i, l := range fs.labels {
		if nl, ok := m[l]; ok {
			newLabels[i] = nl
		} else {
			newLabels[i] = l
		}
	}
	nc := &FileStack{
		labels:   newLabels,
		contents: append([]string(nil), fs.contents...),
		index:    make(map[shared.Rev]int, len(newLabels)),
	}
	for i, l := range newLabels {
		nc.index[l] = i
	}
	return nc
}

func cloneIndex(m map[shared.Rev]int) map[shared.Rev]int {
	nc := make(map[shared.Rev]int, len(m))
	for k, v := range m {
		nc[k] = v
	}
	return nc
}

// CalculateDepMap returns, for each rev, the minimal set of earlier revs
// its content depends upon: the distinct origins of every line it still
// carries, plus the origins of every predecessor line it deleted or
// replaced, excluding its own label. A revision that rewrites a path's
// content wholesale still depends on whoever held that content before.
func (fs *FileStack) CalculateDepMap() map[shared.Rev]mapset.Set[shared.Rev] {
	result := make(map[shared.Rev]mapset.Set[shared.Rev], len(fs.labels))
	if len(fs.contents) == 0 {
		return result
	}

	prevLines := splitLines(fs.contents[0])
	prevOrigins := make([]shared.Rev, len(prevLines))
	for i := range prevOrigins {
		prevOrigins[i] = fs.labels[0]
	}
	result[fs.labels[0]] = mapset.NewSet[shared.Rev]()

	for i := 1; i < len(fs.contents); i++ {
		curLines := splitLines(fs.contents[i])
		curOrigins, removedOrigins := originsFor(prevLines, prevOrigins, curLines, fs.labels[i])

		deps := mapset.NewSet[shared.Rev]()
		for _, o := range curOrigins {
			if o != fs.labels[i] {
				deps.Add(o)
			}
		}
		for _, o := range removedOrigins {
			if o != fs.labels[i] {
				deps.Add(o)
			}
		}
		result[fs.labels[i]] = deps

		prevLines = curLines
		prevOrigins = curOrigins
	}
	return result
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// originsFor diffs prevLines against curLines with the teacher's LCS
// technique and propagates provenance: a line curLines[j] that matches
// the LCS-aligned prevLines[i] inherits prevOrigins[i]; an unmatched
// (inserted) line originates at self. It also returns the origins of every
// prevLines entry that the LCS alignment drops — a revision that replaces
// or deletes a predecessor's content still depends on whoever introduced
// that content, even when it retains none of it.
func originsFor(prevLines []string, prevOrigins []shared.Rev, curLines []string, self shared.Rev) (curOrigins []shared.Rev, removedOrigins []shared.Rev) {
	n, m := len(prevLines), len(curLines)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if prevLines[i-1] == curLines[j-1] {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else if lcs[i-1][j] >= lcs[i][j-1] {
				lcs[i][j] = lcs[i-1][j]
			} else {
				lcs[i][j] = lcs[i][j-1]
			}
		}
	}

	curOrigins = make([]shared.Rev, m)
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && prevLines[i-1] == curLines[j-1]:
			curOrigins[j-1] = prevOrigins[i-1]
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			curOrigins[j-1] = self
			j--
		default:
			removedOrigins = append(removedOrigins, prevOrigins[i-1])
			i--
		}
	}
	return curOrigins, removedOrigins
}
