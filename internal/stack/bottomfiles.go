package stack

import (
	"fmt"

	shared "histedit/shared/types"
)

// buildBottomFiles implements spec §4.1: merge relevantFiles from every
// commit (first-wins, earlier commits sit lower in the stack), then for
// every path a commit modifies but which never appeared in a
// relevantFiles snapshot, insert an absent placeholder (it is introduced
// later in the stack). Rejects multi-root stacks.
func buildBottomFiles(export shared.ExportStack) (shared.BottomFiles, error) {
	if err := validateSingleRoot(export); err != nil {
		return nil, err
	}

	bottom := make(shared.BottomFiles)
	for _, c := range export {
		for path, ef := range c.RelevantFiles {
			if _, ok := bottom[path]; !ok {
				bottom[path] = exportFileToState(ef)
			}
		}
	}
	for _, c := range export {
		for path := range c.Files {
			if _, ok := bottom[path]; !ok {
				bottom[path] = shared.Absent()
			}
		}
	}
	return bottom, nil
}

func validateSingleRoot(export shared.ExportStack) error {
	roots := 0
	for i, c := range export {
		if len(c.Parents) == 0 {
			roots++
			if i != 0 {
				return fmt.Errorf("commit %s has no parent but is not the first commit", c.Node)
			}
		}
		if len(c.Parents) > 1 {
			return fmt.Errorf("commit %s is a merge commit (%d parents), merges are rejected", c.Node, len(c.Parents))
		}
	}
	if roots == 0 {
		return fmt.Errorf("stack has no root commit")
	}
	if roots > 1 {
		return fmt.Errorf("stack has %d root commits, exactly one is required", roots)
	}
	return nil
}

func exportFileToState(ef shared.ExportFile) shared.FileState {
	if ef.Deleted {
		return shared.Absent()
	}
	if ef.DataBase85 != "" || ef.Binary != nil {
		return shared.FileState{Kind: shared.DataBinary, Binary: ef.Binary, CopyFrom: ef.CopyFrom, Flags: ef.Flags}
	}
	return shared.FileState{Kind: shared.DataText, Text: ef.Data, CopyFrom: ef.CopyFrom, Flags: ef.Flags}
}
