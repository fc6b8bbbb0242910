// Package chunker splits profile text into overlapping, paragraph-aware
// segments sized for embedding. Lengths are measured in runes.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the target number of runes per chunk.
	DefaultSize = 400
	// DefaultOverlap is the carry-over between slices of an oversized paragraph.
	DefaultOverlap = 80

	paragraphSep = "\n\n"
)

// Chunker holds a size/overlap pair. The zero value is not usable; build one
// with New.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the chunk size in runes.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between slices of an oversized paragraph.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split segments text using the Chunker's size and overlap.
func (c *Chunker) Split(text string) []string {
	return Chunk(text, c.size, c.overlap)
}

// Chunk splits text on blank-line paragraph boundaries and greedily packs
// paragraphs into chunks of at most size runes. A paragraph longer than size
// is sliced with stride size-overlap. Empty input yields an empty slice.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}

	chunks := make([]string, 0)
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
		}
		current.Reset()
		currentLen = 0
	}

	for _, para := range paragraphs(text) {
		paraLen := utf8.RuneCountInString(para)
		needed := paraLen
		if currentLen > 0 {
			needed += currentLen + len(paragraphSep)
		}
		if needed <= size {
			if currentLen > 0 {
				current.WriteString(paragraphSep)
			}
			current.WriteString(para)
			currentLen = needed
			continue
		}

		flush()
		if paraLen > size {
			chunks = append(chunks, slice(para, size, overlap)...)
			continue
		}
		current.WriteString(para)
		currentLen = paraLen
	}
	flush()
	return chunks
}

// Truncate returns the first n runes of s. A negative n leaves s unchanged.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// paragraphs returns the trimmed, non-empty blocks of text separated by
// blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, paragraphSep)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// slice cuts an oversized paragraph into windows of size runes advancing by
// size-overlap, stopping after the window that reaches the end.
func slice(para string, size, overlap int) []string {
	runes := []rune(para)
	stride := size - overlap
	out := make([]string, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if sub := strings.TrimSpace(string(runes[start:end])); sub != "" {
			out = append(out, sub)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
