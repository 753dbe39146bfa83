// Package chunk splits extracted text into overlapping fixed-size segments,
// the unit of embedding.
package chunk

import (
	"strings"
	"unicode"
)

// Chunker implements sliding-window splitting with a configurable window and
// overlap. Windows snap back to a sentence boundary when one falls in the
// second half of the window.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Overlap must be smaller than size; the config layer
// enforces that before construction.
func New(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the chunks of text in order. Whitespace runs are collapsed
// first so window positions are stable across formatting differences. Window
// arithmetic is rune-based so a boundary never lands inside a multi-byte
// character.
func (c *Chunker) Split(text string) []string {
	runes := []rune(strings.TrimSpace(normalizeSpace(text)))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			for i := end; i > start+c.size/2; i-- {
				if r := runes[i]; r == '.' || r == '!' || r == '?' {
					end = i + 1
					break
				}
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}

		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

func normalizeSpace(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace {
				builder.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		builder.WriteRune(r)
		prevSpace = false
	}
	return builder.String()
}
