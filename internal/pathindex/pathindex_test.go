package pathindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "histedit/shared/types"
)

func TestBuildAndLookup(t *testing.T) {
	bottom := shared.BottomFiles{
		"src/a.go": shared.FileState{Kind: shared.DataText, Text: "package a\n"},
	}
	commits := []shared.CommitState{
		{Rev: 0, Files: map[string]shared.FileState{"src/a.go": {Kind: shared.DataText, Text: "package a\n\nfunc A() {}\n"}}},
		{Rev: 1, Files: map[string]shared.FileState{"src/b.go": {Kind: shared.DataText, Text: "package a\n"}}},
	}

	idx := Build(bottom, commits)
	require.Equal(t, 2, idx.Len())

	rev, ok := idx.Lookup("src/a.go")
	require.True(t, ok)
	assert.Equal(t, shared.Rev(0), rev, "the commit modifying a path must overwrite the bottom-file entry")

	_, ok = idx.Lookup("src/missing.go")
	assert.False(t, ok)
}

func TestWithPrefix(t *testing.T) {
	bottom := shared.BottomFiles{}
	commits := []shared.CommitState{
		{Rev: 0, Files: map[string]shared.FileState{
			"src/a.go":       {Kind: shared.DataText},
			"src/b.go":       {Kind: shared.DataText},
			"docs/readme.md": {Kind: shared.DataText},
		}},
	}
	idx := Build(bottom, commits)

	assert.Equal(t, []string{"src/a.go", "src/b.go"}, idx.WithPrefix("src/"))
	assert.Len(t, idx.WithPrefix(""), 3)
}

func TestLongestPrefixMatch(t *testing.T) {
	bottom := shared.BottomFiles{}
	commits := []shared.CommitState{
		{Rev: 0, Files: map[string]shared.FileState{"src/pkg/a.go": {Kind: shared.DataText}}},
	}
	idx := Build(bottom, commits)

	match, ok := idx.LongestPrefixMatch("src/pkg/a.go")
	require.True(t, ok)
	assert.Equal(t, "src/pkg/a.go", match)

	_, ok = idx.LongestPrefixMatch("src/other/b.go")
	assert.False(t, ok)
}
