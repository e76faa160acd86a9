package stack

import (
	"fmt"

	shared "histedit/shared/types"
)

// UseFileStack implements spec §4.8: returns an equivalent state whose
// commit file entries that have a dual-index mapping are represented as
// lazy (fileStackIndex, fileRev) references instead of inline text. Purely
// a view change: Export materializes lazy entries before comparing and
// emitting, so it produces the same result either way. GetFile returns the
// stored FileState as is, so in this view it hands back the lazy reference
// rather than its text.
func (s *CommitStackState) UseFileStack() *CommitStackState {
	ns := s.clone()
	for i, c := range ns.commits {
		for path, f := range c.Files {
			if f.Kind != shared.DataText {
				continue
			}
			fk, ok := ns.commitToFile[commitFileKey{Rev: shared.Rev(i), Path: path}]
			if !ok {
				continue
			}
			nf := f
			nf.Kind = shared.DataLazy
			nf.FileIdx = fk.StackIdx
			nf.FileRev = fk.FileRev
			nf.Text = ""
			c.Files[path] = nf
		}
	}
	return ns
}

// UseFileContent is UseFileStack's inverse: materializes every lazy file
// reference back into inline text read from the backing file stack.
func (s *CommitStackState) UseFileContent() (*CommitStackState, error) {
	ns := s.clone()
	for i, c := range ns.commits {
		for path, f := range c.Files {
			if f.Kind != shared.DataLazy {
				continue
			}
			if f.FileIdx < 0 || f.FileIdx >= len(ns.fileStacks) {
				return nil, fmt.Errorf("commit %d path %q: stale file-stack index %d", i, path, f.FileIdx)
			}
			text, err := ns.fileStacks[f.FileIdx].GetRev(f.FileRev)
			if err != nil {
				return nil, fmt.Errorf("commit %d path %q: %w", i, path, err)
			}
			nf := f
			nf.Kind = shared.DataText
			nf.Text = text
			c.Files[path] = nf
		}
	}
	return ns, nil
}
