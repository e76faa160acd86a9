package stack

import (
	"histedit/internal/stackerr"
	shared "histedit/shared/types"
	"histedit/shared/utils"
)

// compactSequence returns the identity permutation [0, 1, ..., n-1] with
// the element at position from relocated to position to, preserving the
// relative order of everything else. Used to derive the permutation that
// MoveUp/MoveDown hand to Reorder from a single-step move.
func compactSequence(n int, from, to int) []shared.Rev {
	order := make([]shared.Rev, 0, n)
	seq := make([]shared.Rev, n)
	for i := range seq {
		seq[i] = shared.Rev(i)
	}
	moved := seq[from]
	rest := append(append([]shared.Rev(nil), seq[:from]...), seq[from+1:]...)
	order = append(order, rest[:to]...)
	order = append(order, moved)
	order = append(order, rest[to:]...)
	return order
}

func isPermutation(order []shared.Rev, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make(map[shared.Rev]bool, n)
	for _, r := range order {
		if r < 0 || int(r) >= n || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

// CanReorder reports whether permuting the stack into newOrder (newOrder[i]
// names the old rev that should occupy new position i) is legal (spec
// §4.7.3): newOrder must be a genuine permutation, no immutable historical
// commit may change position, and every content or structural dependency
// recorded in DepMap must still be satisfied — a commit may never end up
// before something it depends on.
func (s *CommitStackState) CanReorder(newOrder []shared.Rev) bool {
	key := utils.CacheKey(newOrder, "canReorder")
	return s.memoLegal(key, func() bool {
		n := len(s.commits)
		if !isPermutation(newOrder, n) {
			return false
		}
		if !s.isStackLinear() {
			return false
		}

		newPositionOf := make(map[shared.Rev]int, n)
		for pos, oldRev := range newOrder {
			newPositionOf[oldRev] = pos
		}

		for i, oldRev := range newOrder {
			c, _ := s.Commit(oldRev)
			if c.ImmutableKind != shared.ImmutableNone && i != int(oldRev) {
				return false
			}
		}

		deps := s.DepMap()
		for r, depSet := range deps {
			rPos := newPositionOf[r]
			for _, d := range depSet.ToSlice() {
				if newPositionOf[d] >= rPos {
					return false
				}
			}
		}
		return true
	})
}

// Reorder permutes the stack per newOrder and rebuilds the dual index from
// scratch against the new commit order (spec §4.7.3).
func (s *CommitStackState) Reorder(newOrder []shared.Rev) (*CommitStackState, error) {
	if !s.CanReorder(newOrder) {
		return nil, stackerr.IllegalEdit("reorder is illegal: it would move an immutable commit or violate a dependency", newOrder)
	}

	ns := s.clone()
	newCommits := make([]shared.CommitState, len(newOrder))
	for i, oldRev := range newOrder {
		c := ns.commits[oldRev]
		c.Rev = shared.Rev(i)
		if i == 0 {
			c.Parents = nil
		} else {
			c.Parents = []shared.Rev{shared.Rev(i - 1)}
		}
		newCommits[i] = c
	}
	ns.commits = newCommits

	if err := ns.rebuildFileStacksFromScratch(); err != nil {
		return nil, stackerr.InvariantViolation(err.Error(), nil)
	}
	return ns, nil
}

// CanMoveUp reports whether rev can swap with its immediate predecessor.
func (s *CommitStackState) CanMoveUp(rev shared.Rev) bool {
	if rev <= 0 || int(rev) >= len(s.commits) {
		return false
	}
	return s.CanReorder(compactSequence(len(s.commits), int(rev), int(rev)-1))
}

// MoveUp swaps rev with its immediate predecessor.
func (s *CommitStackState) MoveUp(rev shared.Rev) (*CommitStackState, error) {
	if rev <= 0 || int(rev) >= len(s.commits) {
		return nil, stackerr.IllegalEdit("commit has no predecessor to move above", rev)
	}
	return s.Reorder(compactSequence(len(s.commits), int(rev), int(rev)-1))
}

// CanMoveDown reports whether rev can swap with its immediate successor.
func (s *CommitStackState) CanMoveDown(rev shared.Rev) bool {
	if int(rev) < 0 || int(rev) >= len(s.commits)-1 {
		return false
	}
	return s.CanReorder(compactSequence(len(s.commits), int(rev), int(rev)+1))
}

// MoveDown swaps rev with its immediate successor.
func (s *CommitStackState) MoveDown(rev shared.Rev) (*CommitStackState, error) {
	if int(rev) < 0 || int(rev) >= len(s.commits)-1 {
		return nil, stackerr.IllegalEdit("commit has no successor to move below", rev)
	}
	return s.Reorder(compactSequence(len(s.commits), int(rev), int(rev)+1))
}

// reorderedRevs returns the permutation that moving rev by delta positions
// would apply, without performing it, or nil when the target position is
// outside the stack.
func (s *CommitStackState) reorderedRevs(rev shared.Rev, delta int) []shared.Rev {
	target := int(rev) + delta
	if target < 0 || target >= len(s.commits) {
		return nil
	}
	return compactSequence(len(s.commits), int(rev), target)
}
