package stack

import (
	"histedit/internal/stackerr"
	shared "histedit/shared/types"
	"histedit/shared/utils"
)

// CanDrop reports whether rev can be removed (spec §4.7.2): it must not be
// an immutable historical commit, and no other commit's content or
// structural dependencies may point at it.
func (s *CommitStackState) CanDrop(rev shared.Rev) bool {
	key := utils.CacheKey([]shared.Rev{rev}, "canDrop")
	return s.memoLegal(key, func() bool {
		c, ok := s.Commit(rev)
		if !ok {
			return false
		}
		if c.ImmutableKind != shared.ImmutableNone {
			return false
		}
		deps := s.DepMap()
		for r, set := range deps {
			if r == rev {
				continue
			}
			if set.Contains(rev) {
				return false
			}
		}
		return true
	})
}

// Drop removes rev from the stack (spec §4.7.2). The commit list is
// shortened and every surviving commit's rev renumbered, then the whole
// dual index is rebuilt from scratch against the new commit list — the
// only way to be sure a dropped commit's file-stack entries are neither
// dangling nor silently inherited by the wrong neighbor.
func (s *CommitStackState) Drop(rev shared.Rev) (*CommitStackState, error) {
	if !s.CanDrop(rev) {
		return nil, stackerr.IllegalEdit("commit cannot be dropped: a later commit depends on it, or it is immutable", rev)
	}

	ns := s.clone()

	newCommits := make([]shared.CommitState, 0, len(ns.commits)-1)
	for i, c := range ns.commits {
		if shared.Rev(i) == rev {
			continue
		}
		nc := c
		newRev := shared.Rev(len(newCommits))
		nc.Rev = newRev
		if len(newCommits) == 0 {
			nc.Parents = nil
		} else {
			nc.Parents = []shared.Rev{shared.Rev(len(newCommits) - 1)}
		}
		newCommits = append(newCommits, nc)
	}
	ns.commits = newCommits

	if err := ns.rebuildFileStacksFromScratch(); err != nil {
		return nil, stackerr.InvariantViolation(err.Error(), nil)
	}
	return ns, nil
}
