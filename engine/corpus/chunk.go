// Package corpus assembles the retrieval corpus for one chat request: it
// walks the requested scope, splits each document's extracted text into
// overlapping segments, and tags every segment with its provenance.
package corpus

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target number of bytes per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of bytes shared by consecutive chunks.
	DefaultChunkOverlap = 200
)

// Chunk splits text into segments of at most size bytes with the given
// overlap between consecutive segments. The cut point prefers, in order,
// a paragraph break, a line break, sentence-ending punctuation followed by a
// space, a plain space, and finally a hard cut at a rune boundary.
// Whitespace-only input yields no chunks. Output is deterministic for a
// fixed input and parameters.
func Chunk(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []string
	start := 0
	for start < len(text) {
		if len(text)-start <= size {
			if c := strings.TrimSpace(text[start:]); c != "" {
				chunks = append(chunks, c)
			}
			break
		}

		cut := start + cutPoint(text[start:start+size])
		if cut <= start {
			// Degenerate window (e.g. a size smaller than one rune); force progress.
			cut = start + size
		}
		if c := strings.TrimSpace(text[start:cut]); c != "" {
			chunks = append(chunks, c)
		}

		next := runeStart(text, cut-overlap)
		if next <= start {
			// Overlap would revisit the same window; move on instead.
			next = cut
		}
		start = next
	}
	return chunks
}

// cutPoint returns the end of the most natural cut inside window, falling
// down the boundary preference list when a higher one is absent.
func cutPoint(window string) int {
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return i + 2
	}
	if i := strings.LastIndex(window, "\n"); i > 0 {
		return i + 1
	}
	best := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, sep); i > best {
			best = i
		}
	}
	if best > 0 {
		return best + 2
	}
	if i := strings.LastIndex(window, " "); i > 0 {
		return i + 1
	}
	return hardCut(window)
}

// hardCut cuts at the end of window, backing up so a multi-byte rune is
// never split across chunks.
func hardCut(window string) int {
	end := len(window)
	start := end
	for start > 0 && !utf8.RuneStart(window[start-1]) {
		start--
	}
	if start == 0 {
		return end
	}
	start-- // first byte of the final rune
	if utf8.FullRuneInString(window[start:]) {
		return end
	}
	return start
}

// runeStart clamps i into [0, len(text)] and moves it back to a rune start.
func runeStart(text string, i int) int {
	if i < 0 {
		return 0
	}
	if i > len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
