package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmpty(t *testing.T) {
	c := New(500, 50)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitShortText(t *testing.T) {
	c := New(500, 50)
	chunks := c.Split("just a small note")
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a small note", chunks[0])
}

func TestSplitWindowAndOverlap(t *testing.T) {
	c := New(10, 3)
	chunks := c.Split("abcdefghijklmnopqrst")

	require.Equal(t, []string{"abcdefghij", "hijklmnopq", "opqrst"}, chunks)

	// Consecutive windows share the configured overlap.
	assert.Equal(t, chunks[0][7:], chunks[1][:3])
}

func TestSplitSnapsToSentenceBoundary(t *testing.T) {
	c := New(20, 5)
	chunks := c.Split("One sentence. Another following one.")

	require.NotEmpty(t, chunks)
	assert.Equal(t, "One sentence.", chunks[0])
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "one."))
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	c := New(500, 50)
	chunks := c.Split("hello   world\n\nacross\tlines")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world across lines", chunks[0])
}

func TestSplitMultibyteText(t *testing.T) {
	c := New(10, 3)
	chunks := c.Split(strings.Repeat("日本語テキスト", 10))

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		require.Truef(t, utf8.ValidString(chunk), "chunk %d is invalid UTF-8: %q", i, chunk)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
}

func TestSplitAlwaysMakesProgress(t *testing.T) {
	// Overlap one below size is the worst case for forward progress.
	c := New(5, 4)
	chunks := c.Split("aaaaaaaaaaaaaaaaaaaa")
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 5)
	}
}
