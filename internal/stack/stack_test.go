package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "histedit/shared/types"
)

func file(data string) shared.ExportFile {
	return shared.ExportFile{Data: data}
}

// linearStack builds a three-commit stack: add a.txt, modify a.txt, add
// b.txt — the base fixture most of the scenario tests build on.
func linearStack(t *testing.T) *CommitStackState {
	t.Helper()
	export := shared.ExportStack{
		{
			Node:   "c0",
			Author: "alice",
			Text:   "add a.txt",
			Files:  map[string]shared.ExportFile{"a.txt": file("line1\n")},
		},
		{
			Node:    "c1",
			Author:  "alice",
			Text:    "modify a.txt",
			Parents: []shared.Hash{"c0"},
			Files:   map[string]shared.ExportFile{"a.txt": file("line1\nline2\n")},
		},
		{
			Node:    "c2",
			Author:  "alice",
			Text:    "add b.txt",
			Parents: []shared.Hash{"c1"},
			Files:   map[string]shared.ExportFile{"b.txt": file("hello\n")},
		},
	}
	st, err := NewCommitStackState(export, nil)
	require.NoError(t, err)
	return st
}

func TestNewCommitStackState_Linear(t *testing.T) {
	st := linearStack(t)
	require.Equal(t, 3, st.Len())
	assert.True(t, st.IsStackLinear())

	c1, ok := st.Commit(1)
	require.True(t, ok)
	assert.Equal(t, shared.Rev(1), c1.Rev)
	assert.Equal(t, []shared.Rev{0}, c1.Parents)
}

func TestNewCommitStackState_RejectsMultiRoot(t *testing.T) {
	export := shared.ExportStack{
		{Node: "c0", Files: map[string]shared.ExportFile{"a.txt": file("a\n")}},
		{Node: "c1", Files: map[string]shared.ExportFile{"b.txt": file("b\n")}},
	}
	_, err := NewCommitStackState(export, nil)
	assert.Error(t, err)
}

func TestNewCommitStackState_RejectsMergeCommit(t *testing.T) {
	export := shared.ExportStack{
		{Node: "c0", Files: map[string]shared.ExportFile{"a.txt": file("a\n")}},
		{Node: "c1", Parents: []shared.Hash{"c0"}, Files: map[string]shared.ExportFile{"b.txt": file("b\n")}},
		{Node: "c2", Parents: []shared.Hash{"c0", "c1"}, Files: map[string]shared.ExportFile{"c.txt": file("c\n")}},
	}
	_, err := NewCommitStackState(export, nil)
	assert.Error(t, err)
}

func TestNewCommitStackState_RejectsDuplicateHash(t *testing.T) {
	export := shared.ExportStack{
		{Node: "c0", Files: map[string]shared.ExportFile{"a.txt": file("a\n")}},
		{Node: "c0", Parents: []shared.Hash{"c0"}, Files: map[string]shared.ExportFile{"b.txt": file("b\n")}},
	}
	_, err := NewCommitStackState(export, nil)
	assert.Error(t, err)
}

func TestCanMoveUp_RefusesWhenContentModifiesExistingPath(t *testing.T) {
	// rev 0 adds x.txt="1", rev 1 modifies it to "12" — no line survives
	// from rev 0 into rev 1, but rev 1 still depends on rev 0's add, so
	// moving it up must stay illegal even though the two revisions share no
	// text.
	export := shared.ExportStack{
		{Node: "c0", Files: map[string]shared.ExportFile{"x.txt": file("1\n")}},
		{Node: "c1", Parents: []shared.Hash{"c0"}, Files: map[string]shared.ExportFile{"x.txt": file("12\n")}},
	}
	st, err := NewCommitStackState(export, nil)
	require.NoError(t, err)

	assert.False(t, st.CanMoveUp(1))
}

func TestGetFile_WalksAncestors(t *testing.T) {
	st := linearStack(t)

	// rev 2 never touched a.txt; getFile must walk back to rev 1.
	f, owner, err := st.GetFile(2, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, shared.Rev(1), owner)
	assert.Equal(t, "line1\nline2\n", f.Text)
}

func TestLog(t *testing.T) {
	st := linearStack(t)
	assert.Equal(t, []shared.Rev{2, 1, 0}, st.Log(2))
}

func TestCanDropAndDrop_Independent(t *testing.T) {
	st := linearStack(t)

	// rev 2 (b.txt) has no dependency on rev 1 or rev 0's a.txt changes.
	assert.True(t, st.CanDrop(2))

	dropped, err := st.Drop(2)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped.Len())
	assert.True(t, dropped.IsStackLinear())
}

func TestCanDrop_RefusesWhenDependedOn(t *testing.T) {
	st := linearStack(t)
	// rev 1 introduces content that rev 2 doesn't depend on, but rev 1's
	// own existence is what rev 2 is stacked atop; dropping rev 0 (which
	// rev 1's modification of a.txt depends on) must be illegal.
	assert.False(t, st.CanDrop(0))
}

func TestFoldDown_MergesFiles(t *testing.T) {
	st := linearStack(t)

	folded, err := st.FoldDown(1)
	require.NoError(t, err)
	assert.Equal(t, 2, folded.Len())

	f, _, err := folded.GetFile(0, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", f.Text)
}

func TestFoldDown_ResolvesCopyFromChain(t *testing.T) {
	// A renames x.txt -> y.txt, B renames y.txt -> z.txt. Once folded, y.txt
	// is gone (whether dropped from the map entirely or left as a tombstone
	// is an internal merge detail), so z.txt's copyFrom must chain through
	// to x.txt rather than dangle on a y.txt with no history of its own.
	export := shared.ExportStack{
		{Node: "c0", Files: map[string]shared.ExportFile{"x.txt": file("content\n")}},
		{
			Node:    "c1",
			Parents: []shared.Hash{"c0"},
			Files: map[string]shared.ExportFile{
				"x.txt": {Deleted: true},
				"y.txt": {Data: "content\n", CopyFrom: "x.txt"},
			},
		},
		{
			Node:    "c2",
			Parents: []shared.Hash{"c1"},
			Files: map[string]shared.ExportFile{
				"y.txt": {Deleted: true},
				"z.txt": {Data: "content\n", CopyFrom: "y.txt"},
			},
		},
	}
	st, err := NewCommitStackState(export, nil)
	require.NoError(t, err)

	folded, err := st.FoldDown(2)
	require.NoError(t, err)
	require.Equal(t, 2, folded.Len())

	merged, ok := folded.Commit(1)
	require.True(t, ok)
	if y, hasY := merged.Files["y.txt"]; hasY {
		assert.True(t, y.IsAbsent(), "y.txt only ever existed between A and B's edits, so it must not survive the fold as a live file")
	}

	z, hasZ := merged.Files["z.txt"]
	require.True(t, hasZ)
	assert.Equal(t, "x.txt", z.CopyFrom, "z.txt's copyFrom must chain through y.txt to the grandparent source")
}

func TestFoldDown_DropsCopyFromWhenGrandparentAbsent(t *testing.T) {
	// A creates y.txt fresh (not a rename), B renames y.txt -> z.txt.
	// Folding B into A leaves nothing before A's commit for y.txt to have
	// come from, so z.txt must end up as a plain add, not copyFrom="y.txt".
	export := shared.ExportStack{
		{Node: "c0", Files: map[string]shared.ExportFile{"unrelated.txt": file("noise\n")}},
		{Node: "c1", Parents: []shared.Hash{"c0"}, Files: map[string]shared.ExportFile{"y.txt": file("content\n")}},
		{
			Node:    "c2",
			Parents: []shared.Hash{"c1"},
			Files: map[string]shared.ExportFile{
				"y.txt": {Deleted: true},
				"z.txt": {Data: "content\n", CopyFrom: "y.txt"},
			},
		},
	}
	st, err := NewCommitStackState(export, nil)
	require.NoError(t, err)

	folded, err := st.FoldDown(2)
	require.NoError(t, err)

	merged, ok := folded.Commit(1)
	require.True(t, ok)
	z, hasZ := merged.Files["z.txt"]
	require.True(t, hasZ)
	assert.Empty(t, z.CopyFrom, "y.txt had no history of its own, so z.txt's copyFrom must be dropped")
}

func TestFoldDown_RootIsIllegal(t *testing.T) {
	st := linearStack(t)
	assert.False(t, st.CanFoldDown(0))
	_, err := st.FoldDown(0)
	assert.Error(t, err)
}

func TestReorder_SwapIndependentCommits(t *testing.T) {
	st := linearStack(t)
	// rev 1 (modify a.txt) depends on rev 0; rev 2 (add b.txt) is
	// independent of both, so moving it up is legal...
	assert.True(t, st.CanMoveUp(2))
	reordered, err := st.MoveUp(2)
	require.NoError(t, err)
	assert.True(t, reordered.IsStackLinear())

	// ...but rev 1 can never move above rev 0, its content dependency.
	assert.False(t, st.CanMoveUp(1))
}

func TestUseFileStackAndBack(t *testing.T) {
	st := linearStack(t)
	lazy := st.UseFileStack()

	materialized, err := lazy.UseFileContent()
	require.NoError(t, err)

	f, _, err := materialized.GetFile(1, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", f.Text)
}

func TestExport_NoEditsIsEmpty(t *testing.T) {
	st := linearStack(t)
	actions, err := st.Export()
	require.NoError(t, err)
	assert.Empty(t, actions, "an unedited stack has nothing new to export")
}

func TestExport_AfterFoldEmitsFromFirstChange(t *testing.T) {
	st := linearStack(t)
	folded, err := st.FoldDown(1)
	require.NoError(t, err)

	actions, err := folded.Export()
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	last := actions[len(actions)-1]
	assert.Equal(t, shared.ActionGoto, last.Kind)

	var sawHide bool
	for _, a := range actions {
		if a.Kind == shared.ActionHide {
			sawHide = true
		}
		if a.Kind == shared.ActionCommit && a.Mark == ":r0" {
			assert.Contains(t, a.Commit.Predecessors, "c1", "the folded-away commit's original node must be carried as a predecessor of the merged commit")
		}
	}
	assert.False(t, sawHide, "c1 lives on in the merged commit's originalNodes, so nothing is orphaned")
}

func TestRename_ContinuesSameFileStack(t *testing.T) {
	export := shared.ExportStack{
		{
			Node:  "c0",
			Files: map[string]shared.ExportFile{"x.txt": file("content\n")},
		},
		{
			Node:    "c1",
			Parents: []shared.Hash{"c0"},
			Files: map[string]shared.ExportFile{
				"x.txt": {Deleted: true},
				"y.txt": {Data: "content\n", CopyFrom: "x.txt"},
			},
		},
	}
	st, err := NewCommitStackState(export, nil)
	require.NoError(t, err)

	f, _, err := st.GetFile(1, "y.txt")
	require.NoError(t, err)
	assert.Equal(t, "content\n", f.Text)

	before, _, err := st.GetFile(0, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, "content\n", before.Text)
}

func TestDescribe(t *testing.T) {
	st := linearStack(t)
	lines := st.Describe()
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "add a.txt")
}
