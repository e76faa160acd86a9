package stack

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	shared "histedit/shared/types"
)

// Export implements spec §4.9's calculateImportStack: the minimal
// ImportStack that takes the host repository from the originally imported
// state to this one. Commits are only re-emitted from the first rev whose
// key, position, or content diverges from the snapshot captured at
// construction; everything before that point is addressed by its original
// hash rather than re-committed. Surviving commits keep their key across
// fold/drop/reorder, so key identity (not rev number) is what "unchanged"
// means here. Lazy file-stack references are materialized first, so the
// comparison against the snapshot is by content, not representation.
func (s *CommitStackState) Export() (shared.ImportStack, error) {
	s, err := s.UseFileContent()
	if err != nil {
		return nil, err
	}
	firstChanged := s.firstChangedRev()
	if firstChanged == -1 {
		return shared.ImportStack{}, nil
	}

	var actions shared.ImportStack
	marks := make(map[shared.Rev]string, len(s.commits)-firstChanged)

	for i := firstChanged; i < len(s.commits); i++ {
		c := s.commits[i]
		mark := fmt.Sprintf(":r%d", i)
		marks[shared.Rev(i)] = mark

		var parents []string
		if i == firstChanged {
			if i > 0 {
				parentKey := s.commits[i-1].Key
				if h, ok := s.originalHashByKey[parentKey]; ok && i-1 < firstChanged {
					parents = []string{string(h)}
				} else if pm, ok := marks[shared.Rev(i-1)]; ok {
					parents = []string{pm}
				}
			}
		} else if pm, ok := marks[shared.Rev(i-1)]; ok {
			parents = []string{pm}
		}

		files, err := exportFilesForCommit(s, shared.Rev(i), c)
		if err != nil {
			return nil, err
		}

		actions = append(actions, shared.ImportAction{
			Kind: shared.ActionCommit,
			Mark: mark,
			Commit: &shared.ImportCommit{
				Mark:         mark,
				Author:       c.Author,
				Date:         c.Date,
				TZOffset:     c.TZOffset,
				Text:         c.Text,
				Parents:      parents,
				Predecessors: predecessorHashes(s, c),
				Files:        files,
			},
		})
	}

	tip := marks[shared.Rev(len(s.commits)-1)]
	actions = append(actions, shared.ImportAction{Kind: shared.ActionGoto, Mark: tip})

	if orphans := s.orphanedNodes(); len(orphans) > 0 {
		actions = append(actions, shared.ImportAction{Kind: shared.ActionHide, Nodes: orphans})
	}
	return actions, nil
}

// firstChangedRev returns the lowest rev whose key, position, or content
// differs from the original construction-time snapshot, or -1 if the
// stack is observably identical to what was imported.
func (s *CommitStackState) firstChangedRev() int {
	if len(s.commits) != len(s.originalOrder) {
		return 0
	}
	for i, c := range s.commits {
		if c.Key != s.originalOrder[i] {
			return i
		}
		orig := s.originalByKey[c.Key]
		if !commitContentEqual(c, orig) {
			return i
		}
	}
	return -1
}

func commitContentEqual(a, b shared.CommitState) bool {
	if a.Text != b.Text || a.Author != b.Author {
		return false
	}
	if len(a.Files) != len(b.Files) {
		return false
	}
	for path, fa := range a.Files {
		fb, ok := b.Files[path]
		if !ok || !fa.Equal(fb) {
			return false
		}
	}
	return true
}

// exportFilesForCommit resolves every file a commit modifies to its final
// textual/binary form (materializing any lazy file-stack reference) for
// inclusion in an ImportCommit.
func exportFilesForCommit(s *CommitStackState, rev shared.Rev, c shared.CommitState) (map[string]*shared.ExportFile, error) {
	out := make(map[string]*shared.ExportFile, len(c.Files))
	for path, f := range c.Files {
		ef, err := fileStateToExportFile(s, f)
		if err != nil {
			return nil, fmt.Errorf("rev %d path %q: %w", rev, path, err)
		}
		out[path] = ef
	}
	return out, nil
}

func fileStateToExportFile(s *CommitStackState, f shared.FileState) (*shared.ExportFile, error) {
	if f.IsAbsent() {
		return &shared.ExportFile{Deleted: true, Flags: f.Flags}, nil
	}
	switch f.Kind {
	case shared.DataLazy:
		text, err := s.fileStacks[f.FileIdx].GetRev(f.FileRev)
		if err != nil {
			return nil, err
		}
		return &shared.ExportFile{Data: text, CopyFrom: f.CopyFrom, Flags: f.Flags}, nil
	case shared.DataBinary:
		return &shared.ExportFile{Binary: f.Binary, CopyFrom: f.CopyFrom, Flags: f.Flags}, nil
	default:
		return &shared.ExportFile{Data: f.Text, CopyFrom: f.CopyFrom, Flags: f.Flags}, nil
	}
}

// predecessorHashes records the original commit hash(es) folded/rewritten
// into c, so the host repository can link obsolescence markers back to
// what it originally knew about.
func predecessorHashes(s *CommitStackState, c shared.CommitState) []string {
	var out []string
	for _, h := range c.OriginalNodes.ToSlice() {
		out = append(out, string(h))
	}
	return out
}

// orphanedNodes returns every hash present in the originally imported
// stack that no surviving commit still claims as one of its
// originalNodes — i.e. commits that were dropped. A folded commit's hash
// is carried in the originalNodes of the commit it was folded into, so it
// is not orphaned.
func (s *CommitStackState) orphanedNodes() []shared.Hash {
	keep := mapset.NewSet[shared.Hash]()
	for _, c := range s.commits {
		keep = keep.Union(c.OriginalNodes)
	}
	var orphans []shared.Hash
	for _, h := range s.allOriginalHashes.ToSlice() {
		if !keep.Contains(h) {
			orphans = append(orphans, h)
		}
	}
	return orphans
}
