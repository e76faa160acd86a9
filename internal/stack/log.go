package stack

import shared "histedit/shared/types"

// logRevs implements spec §4.5's log(): a depth-first walk starting at
// start and recursing into parents. Merge commits are rejected at
// construction time (§4.1), so every commit has at most one parent and
// this degenerates to a walk up the parent chain, but is written as a
// general DFS so it stays correct if that restriction ever loosens.
func logRevs(commits []shared.CommitState, start shared.Rev) []shared.Rev {
	var out []shared.Rev
	visited := make(map[shared.Rev]bool)
	var visit func(r shared.Rev)
	visit = func(r shared.Rev) {
		if r < 0 || int(r) >= len(commits) || visited[r] {
			return
		}
		visited[r] = true
		out = append(out, r)
		for _, p := range commits[r].Parents {
			visit(p)
		}
	}
	visit(start)
	return out
}

// logFileRevs filters logRevs(start) to commits that record a modification
// of path, following renames through CopyFrom when followRenames is set.
func logFileRevs(commits []shared.CommitState, start shared.Rev, path string, followRenames bool) []shared.Rev {
	var out []shared.Rev
	cur := path
	visited := make(map[shared.Rev]bool)
	var walk func(r shared.Rev)
	walk = func(r shared.Rev) {
		if r < 0 || int(r) >= len(commits) || visited[r] {
			return
		}
		visited[r] = true
		c := commits[r]
		if f, ok := c.Files[cur]; ok {
			out = append(out, r)
			if followRenames && f.CopyFrom != "" {
				cur = f.CopyFrom
			}
		}
		for _, p := range c.Parents {
			walk(p)
		}
	}
	walk(start)
	return out
}

// findParentFile locates the nearest ancestor (strictly before rev) that
// records a modification of path. It looks up path as given; to follow a
// rename, callers pass the entry's CopyFrom as path. Returns (prevRev=-1,
// bottom file) when no ancestor modifies path.
func findParentFile(commits []shared.CommitState, bottom shared.BottomFiles, rev shared.Rev, path string) (shared.Rev, string, shared.FileState, bool) {
	if int(rev) >= len(commits) || rev < 0 {
		return shared.RevBottom, path, shared.FileState{}, false
	}
	parents := commits[rev].Parents
	if len(parents) == 0 {
		if bf, ok := bottom[path]; ok {
			return shared.RevBottom, path, bf, true
		}
		return shared.RevBottom, path, shared.FileState{}, false
	}
	for _, ancestor := range logRevs(commits, parents[0]) {
		if f, ok := commits[ancestor].Files[path]; ok {
			return ancestor, path, f, true
		}
	}
	if bf, ok := bottom[path]; ok {
		return shared.RevBottom, path, bf, true
	}
	return shared.RevBottom, path, shared.FileState{}, false
}
