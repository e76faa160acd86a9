package stack

import (
	mapset "github.com/deckarep/golang-set/v2"

	"histedit/internal/filestack"
	shared "histedit/shared/types"
)

// calculateDepMap implements spec §4.6: for every commit, the union of its
// content dependencies (translated from each file stack's own dependency
// analysis through the dual index) and its structural dependencies (a
// modified path whose parent file differs in absence-state or path, i.e. a
// rename, a delete, or a revival).
func calculateDepMap(
	commits []shared.CommitState,
	stacks []*filestack.FileStack,
	fileToCommit map[fileStackKey]commitFileKey,
	bottom shared.BottomFiles,
) map[shared.Rev]mapset.Set[shared.Rev] {
	deps := make(map[shared.Rev]mapset.Set[shared.Rev], len(commits))
	for _, c := range commits {
		deps[c.Rev] = mapset.NewSet[shared.Rev]()
	}

	for idx, fs := range stacks {
		fsDeps := fs.CalculateDepMap()
		for fileRev, originSet := range fsDeps {
			ck, ok := fileToCommit[fileStackKey{StackIdx: idx, FileRev: fileRev}]
			if !ok {
				continue
			}
			for _, originRev := range originSet.ToSlice() {
				originCk, ok := fileToCommit[fileStackKey{StackIdx: idx, FileRev: originRev}]
				if !ok {
					continue
				}
				if originCk.Rev != ck.Rev {
					deps[ck.Rev].Add(originCk.Rev)
				}
			}
		}
	}

	for _, c := range commits {
		for path, f := range c.Files {
			parentPath := path
			if f.CopyFrom != "" {
				parentPath = f.CopyFrom
			}
			parentRev, _, parentFile, found := findParentFile(commits, bottom, c.Rev, parentPath)
			if !found || parentRev < 0 {
				continue
			}
			if f.IsAbsent() != parentFile.IsAbsent() || path != parentPath {
				deps[c.Rev].Add(parentRev)
			}
		}
	}
	return deps
}
