package filestack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "histedit/shared/types"
)

func TestNewAndGetRev(t *testing.T) {
	fs := New([]string{"a\nb\nc\n", "a\nb\nc\nd\n"})

	assert.Equal(t, 2, fs.RevLength())
	assert.Equal(t, []shared.Rev{0, 1}, fs.Revs())

	content, err := fs.GetRev(1)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\nd\n", content)

	_, err = fs.GetRev(5)
	assert.Error(t, err)
}

func TestEditText(t *testing.T) {
	fs := New([]string{"a\n", "a\nb\n"})

	edited, err := fs.EditText(0, "z\n", false)
	require.NoError(t, err)

	content, err := edited.GetRev(0)
	require.NoError(t, err)
	assert.Equal(t, "z\n", content)

	original, err := fs.GetRev(0)
	require.NoError(t, err)
	assert.Equal(t, "a\n", original, "EditText must not mutate the receiver")
}

func TestRemapRevs(t *testing.T) {
	fs := New([]string{"a\n", "a\nb\n", "a\nb\nc\n"})
	remapped := fs.RemapRevs(map[shared.Rev]shared.Rev{1: 10})

	assert.Equal(t, []shared.Rev{0, 10, 2}, remapped.Revs())

	content, err := remapped.GetRev(10)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", content)

	_, err = fs.GetRev(10)
	assert.Error(t, err, "RemapRevs must not mutate the receiver's labels")
}

func TestCalculateDepMap_LinearAppend(t *testing.T) {
	fs := New([]string{"a\nb\nc\n", "a\nb\nc\nd\n", "a\nb\nc\nd\ne\n"})
	deps := fs.CalculateDepMap()

	require.Len(t, deps, 3)
	assert.Empty(t, deps[0].ToSlice())
	assert.ElementsMatch(t, []shared.Rev{0}, deps[1].ToSlice())
	assert.ElementsMatch(t, []shared.Rev{0, 1}, deps[2].ToSlice())
}

func TestCalculateDepMap_IndependentEdits(t *testing.T) {
	// rev 1 only touches the top of the file, rev 2 only the bottom; rev 2
	// carries rev 1's TOP line and replaces rev 0's bottom line, so it
	// depends on both rev 0 and rev 1.
	fs := New([]string{
		"top\nmiddle\nbottom\n",
		"TOP\nmiddle\nbottom\n",
		"TOP\nmiddle\nBOTTOM\n",
	})
	deps := fs.CalculateDepMap()

	assert.ElementsMatch(t, []shared.Rev{0}, deps[1].ToSlice())
	assert.ElementsMatch(t, []shared.Rev{0, 1}, deps[2].ToSlice())
}

func TestCalculateDepMap_FullRewrite(t *testing.T) {
	fs := New([]string{"a\nb\n", "x\ny\nz\n"})
	deps := fs.CalculateDepMap()

	assert.ElementsMatch(t, []shared.Rev{0}, deps[1].ToSlice(), "a full rewrite still depends on the revision whose content it replaced")
}
