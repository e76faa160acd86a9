package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_BelowMinSizeIsNoOp(t *testing.T) {
	m, err := NewManager(Options{MinSize: 256, Level: 2})
	require.NoError(t, err)

	small := []byte("short")
	assert.Equal(t, small, m.Compress(small))
}

func TestCompressDecompress_RoundTrip(t *testing.T) {
	m, err := NewManager(DefaultOptions())
	require.NoError(t, err)

	original := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50))
	compressed := m.Compress(original)
	assert.Less(t, len(compressed), len(original), "repetitive content should actually shrink")

	decompressed, err := m.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestDecompress_PassesThroughUncompressedContent(t *testing.T) {
	m, err := NewManager(DefaultOptions())
	require.NoError(t, err)

	raw := []byte("short, never compressed")
	out, err := m.Decompress(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
