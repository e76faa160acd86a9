package stack

import shared "histedit/shared/types"

// GetFile returns the file a commit's tree actually contains at path
// (spec §4.4), walking ancestors when rev itself didn't modify path.
func (s *CommitStackState) GetFile(rev shared.Rev, path string) (shared.FileState, shared.Rev, error) {
	return s.getFile(rev, path)
}

// Log returns rev and its ancestors, depth-first (spec §4.5).
func (s *CommitStackState) Log(rev shared.Rev) []shared.Rev {
	return s.log(rev)
}

// LogFile returns the revs (rev first) that modify path, optionally
// following renames through CopyFrom.
func (s *CommitStackState) LogFile(rev shared.Rev, path string, followRenames bool) []shared.Rev {
	return s.logFile(rev, path, followRenames)
}

// BottomFiles returns the stack's BottomFiles (spec §4.1); callers must
// treat the result as read-only.
func (s *CommitStackState) BottomFiles() shared.BottomFiles {
	return s.bottomFiles
}

// FileStackCount returns the number of file stacks backing the state.
func (s *CommitStackState) FileStackCount() int {
	return len(s.fileStacks)
}

// IsStackLinear reports whether every commit's sole parent is its
// immediate predecessor.
func (s *CommitStackState) IsStackLinear() bool {
	return s.isStackLinear()
}
