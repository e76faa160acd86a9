package stack

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"histedit/internal/stackerr"
	shared "histedit/shared/types"
	"histedit/shared/utils"
)

// meaningfulMessageThreshold is the commit-message length (after trimming
// whitespace) above which foldDown's message-merge heuristic appends the
// folded commit's message to its parent's, rather than discarding it.
const meaningfulMessageThreshold = 20

// CanFoldDown reports whether rev can be folded into its parent (spec
// §4.7.1): rev must not be the root, and neither rev nor its parent may be
// an immutable historical commit.
func (s *CommitStackState) CanFoldDown(rev shared.Rev) bool {
	key := utils.CacheKey([]shared.Rev{rev}, "canFoldDown")
	return s.memoLegal(key, func() bool {
		if rev <= 0 {
			return false
		}
		c, ok := s.Commit(rev)
		if !ok || c.ImmutableKind != shared.ImmutableNone {
			return false
		}
		parent, ok := s.Commit(rev - 1)
		if !ok || parent.ImmutableKind != shared.ImmutableNone {
			return false
		}
		return true
	})
}

// FoldDown merges rev into rev-1 (spec §4.7.1): file-by-file, rev's final
// state at a path supersedes its parent's, unless it exactly reverts the
// parent's own change (the cancel-out case), in which case the path drops
// out of the parent entirely, as if neither commit had touched it. Commit
// messages merge when rev's message is "meaningful" (non-whitespace,
// longer than meaningfulMessageThreshold); originalNodes always merge.
// Having folded the content in, it delegates the removal of rev itself to
// Drop.
func (s *CommitStackState) FoldDown(rev shared.Rev) (*CommitStackState, error) {
	if !s.CanFoldDown(rev) {
		return nil, stackerr.IllegalEdit("commit cannot be folded down: it is the root, or it or its parent is immutable", rev)
	}

	ns := s.clone()
	target := ns.commits[rev-1]
	incoming := ns.commits[rev]

	origTargetFiles := target.Files

	mergedFiles := make(map[string]shared.FileState, len(target.Files)+len(incoming.Files))
	for p, f := range target.Files {
		mergedFiles[p] = f
	}
	for path, revFile := range incoming.Files {
		revFile = resolveCopyFromChain(revFile, origTargetFiles, ns.commits, ns.bottomFiles, target.Rev)
		if _, had := mergedFiles[path]; had {
			if _, _, before, found := findParentFile(ns.commits, ns.bottomFiles, target.Rev, path); found && revFile.Equal(before) {
				delete(mergedFiles, path)
				continue
			}
		}
		mergedFiles[path] = revFile
	}
	target.Files = mergedFiles

	if msg := strings.TrimSpace(incoming.Text); len(msg) > meaningfulMessageThreshold {
		if strings.TrimSpace(target.Text) == "" {
			target.Text = incoming.Text
		} else {
			target.Text = target.Text + "\n\n" + incoming.Text
		}
	}

	merged := mapset.NewSet[shared.Hash]()
	merged = merged.Union(target.OriginalNodes)
	merged = merged.Union(incoming.OriginalNodes)
	target.OriginalNodes = merged

	ns.commits[rev-1] = target

	if err := ns.rebuildFileStacksFromScratch(); err != nil {
		return nil, stackerr.InvariantViolation(err.Error(), nil)
	}

	return ns.Drop(rev)
}

// resolveCopyFromChain reconciles f's CopyFrom against the commit being
// folded into, per the fold chain rule (spec §4.7.1): if the parent commit
// (origTargetFiles, its pre-merge file set) didn't itself touch f's source
// path, f's CopyFrom is unrelated to the fold and is kept as-is. If the
// parent did touch that path in the very commit being folded away, f's
// rename source won't survive the fold, so the chain is followed through
// to whatever the parent copied it from. CopyFrom drops entirely when the
// parent's entry wasn't itself a copy, or when the resolved source isn't
// present any earlier than the fold target.
func resolveCopyFromChain(f shared.FileState, origTargetFiles map[string]shared.FileState, commits []shared.CommitState, bottom shared.BottomFiles, targetRev shared.Rev) shared.FileState {
	if f.CopyFrom == "" {
		return f
	}
	parentEntry, touched := origTargetFiles[f.CopyFrom]
	if !touched {
		return f
	}
	if parentEntry.CopyFrom == "" {
		f.CopyFrom = ""
		return f
	}
	f.CopyFrom = parentEntry.CopyFrom
	if _, _, grand, found := findParentFile(commits, bottom, targetRev, f.CopyFrom); !found || grand.IsAbsent() {
		f.CopyFrom = ""
	}
	return f
}
