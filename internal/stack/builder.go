// Package stack implements the commit-stack editing engine: the dual-index
// bijection between commits and file stacks, the stack-builder that derives
// it, the dependency analyzer, the fold/drop/reorder operators, and the
// minimal-diff exporter. Grounded on the teacher's content-addressed store
// (internal/content) and diff engine (internal/diff), generalized from a
// single-workspace content tracker into a rewritable, multi-commit stack.
package stack

import (
	"fmt"

	"histedit/internal/filestack"
	shared "histedit/shared/types"
	"histedit/shared/utils"
)

// buildFileStacks implements the stack-builder algorithm of spec §4.3. It
// processes commits in rev order, and within each commit groups its
// modified paths into three priority classes processed in this order:
// rename destinations, plain modifications, then copies — alphabetically
// by path within each class. A path's absence entry is skipped once it has
// already been consumed as a rename source earlier in the same commit.
func buildFileStacks(commits []shared.CommitState, bottom shared.BottomFiles) ([]*filestack.FileStack, map[commitFileKey]fileStackKey, map[fileStackKey]commitFileKey, error) {
	var stacks []*filestack.FileStack
	commitToFile := make(map[commitFileKey]fileStackKey)
	fileToCommit := make(map[fileStackKey]commitFileKey)

	for _, c := range commits {
		class0, class1, class2 := classifyFiles(c)
		consumed := make(map[string]bool)

		for _, path := range class0 {
			f := c.Files[path]
			consumed[f.CopyFrom] = true
			if err := handleTuple(&stacks, commitToFile, fileToCommit, commits, bottom, c.Rev, path, f); err != nil {
				return nil, nil, nil, err
			}
		}
		for _, path := range class1 {
			f := c.Files[path]
			if consumed[path] && f.IsAbsent() {
				continue
			}
			if err := handleTuple(&stacks, commitToFile, fileToCommit, commits, bottom, c.Rev, path, f); err != nil {
				return nil, nil, nil, err
			}
		}
		for _, path := range class2 {
			f := c.Files[path]
			if err := handleTuple(&stacks, commitToFile, fileToCommit, commits, bottom, c.Rev, path, f); err != nil {
				return nil, nil, nil, err
			}
		}
	}
	return stacks, commitToFile, fileToCommit, nil
}

// classifyFiles splits a commit's modified paths into the three processing
// classes, each returned sorted alphabetically.
func classifyFiles(c shared.CommitState) (renameDest, plain, copies []string) {
	isRename := make(map[string]bool, len(c.Files))
	for path, f := range c.Files {
		if f.CopyFrom == "" {
			continue
		}
		if src, ok := c.Files[f.CopyFrom]; ok && src.IsAbsent() {
			isRename[path] = true
		}
	}
	for _, path := range utils.SortedKeys(c.Files) {
		f := c.Files[path]
		switch {
		case isRename[path]:
			renameDest = append(renameDest, path)
		case f.CopyFrom != "":
			copies = append(copies, path)
		default:
			plain = append(plain, path)
		}
	}
	return renameDest, plain, copies
}

// handleTuple attaches one (rev, path) modification to a file stack,
// continuing an existing stack when the parent revision is the last entry
// of one, otherwise seeding a new one.
func handleTuple(
	stacks *[]*filestack.FileStack,
	commitToFile map[commitFileKey]fileStackKey,
	fileToCommit map[fileStackKey]commitFileKey,
	commits []shared.CommitState,
	bottom shared.BottomFiles,
	rev shared.Rev,
	path string,
	file shared.FileState,
) error {
	if file.Kind == shared.DataBinary {
		return nil
	}

	parentPath := path
	if file.CopyFrom != "" {
		parentPath = file.CopyFrom
	}
	prevRev, _, prevFile, found := findParentFile(commits, bottom, rev, parentPath)
	if !found {
		return fmt.Errorf("path %q is not tracked in bottomFiles or any ancestor of commit %d", parentPath, rev)
	}

	curText := file.Text

	if prevRev >= 0 {
		if key, ok := commitToFile[commitFileKey{Rev: prevRev, Path: parentPath}]; ok {
			fs := (*stacks)[key.StackIdx]
			if int(key.FileRev) == fs.RevLength()-1 {
				newFs, err := appendRev(fs, curText)
				if err != nil {
					return err
				}
				(*stacks)[key.StackIdx] = newFs
				newKey := fileStackKey{StackIdx: key.StackIdx, FileRev: shared.Rev(newFs.RevLength() - 1)}
				commitToFile[commitFileKey{Rev: rev, Path: path}] = newKey
				fileToCommit[newKey] = commitFileKey{Rev: rev, Path: path}
				return nil
			}
		}
	}

	// New stack: seed with the parent's text content when representable,
	// otherwise only the new content.
	var seed []string
	if prevFile.Kind == shared.DataBinary {
		seed = []string{curText}
	} else {
		seed = []string{prevFile.Text, curText}
	}
	idx := len(*stacks)
	*stacks = append(*stacks, filestack.New(seed))

	if len(seed) == 2 {
		parentKey := commitFileKey{Rev: prevRev, Path: parentPath}
		if prevRev >= 0 {
			if _, already := commitToFile[parentKey]; !already {
				pk := fileStackKey{StackIdx: idx, FileRev: 0}
				commitToFile[parentKey] = pk
				fileToCommit[pk] = parentKey
			}
		}
		k := fileStackKey{StackIdx: idx, FileRev: 1}
		commitToFile[commitFileKey{Rev: rev, Path: path}] = k
		fileToCommit[k] = commitFileKey{Rev: rev, Path: path}
		return nil
	}
	k := fileStackKey{StackIdx: idx, FileRev: 0}
	commitToFile[commitFileKey{Rev: rev, Path: path}] = k
	fileToCommit[k] = commitFileKey{Rev: rev, Path: path}
	return nil
}

func appendRev(fs *filestack.FileStack, text string) (*filestack.FileStack, error) {
	revs := fs.Revs()
	last := revs[len(revs)-1]
	newRev := last + 1
	contents := make([]string, 0, fs.RevLength()+1)
	for _, r := range revs {
		s, err := fs.GetRev(r)
		if err != nil {
			return nil, err
		}
		contents = append(contents, s)
	}
	contents = append(contents, text)
	built := filestack.New(contents)
	remap := make(map[shared.Rev]shared.Rev, len(revs)+1)
	for i, r := range revs {
		remap[shared.Rev(i)] = r
	}
	remap[shared.Rev(len(revs))] = newRev
	return built.RemapRevs(remap), nil
}
