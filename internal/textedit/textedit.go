// Package textedit computes the minimal replacement that converts one version
// of a document into another and expresses it in protocol coordinates.
package textedit

import (
	"sort"
	"unicode/utf8"
)

// Position identifies a location in a document by zero-based line number and
// codepoint column within that line.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range covers the contiguous span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Edit is a single replacement converting the original document into the
// formatted one. Offsets are byte offsets into the original text and always
// land on codepoint boundaries.
type Edit struct {
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
	NewText     string `json:"newText"`
	Range       Range  `json:"range"`
}

// ComputeMinimalEdit returns the smallest contiguous byte span of oldText
// that, when replaced with the returned text, yields newText. The common
// prefix and suffix are measured codepoint by codepoint so the returned
// offsets never split a multi-byte character. Callers must check for equality
// first; equal inputs are a precondition violation.
func ComputeMinimalEdit(oldText, newText string) (int, int, string) {
	if oldText == newText {
		panic("textedit: ComputeMinimalEdit called with equal inputs")
	}

	prefixBytes := 0
	for prefixBytes < len(oldText) && prefixBytes < len(newText) {
		_, oldWidth := utf8.DecodeRuneInString(oldText[prefixBytes:])
		_, newWidth := utf8.DecodeRuneInString(newText[prefixBytes:])
		// Raw bytes are compared rather than decoded runes: distinct invalid
		// bytes all decode to the replacement rune and would falsely match.
		if oldWidth != newWidth || oldText[prefixBytes:prefixBytes+oldWidth] != newText[prefixBytes:prefixBytes+newWidth] {
			break
		}
		prefixBytes += oldWidth
	}

	// Suffix growth is bounded so it never overlaps the prefix region in
	// either string.
	suffixLimit := len(oldText)
	if len(newText) < suffixLimit {
		suffixLimit = len(newText)
	}
	suffixLimit -= prefixBytes

	suffixBytes := 0
	for suffixBytes < suffixLimit {
		_, oldWidth := utf8.DecodeLastRuneInString(oldText[:len(oldText)-suffixBytes])
		_, newWidth := utf8.DecodeLastRuneInString(newText[:len(newText)-suffixBytes])
		if oldWidth != newWidth || suffixBytes+oldWidth > suffixLimit {
			break
		}
		oldChunk := oldText[len(oldText)-suffixBytes-oldWidth : len(oldText)-suffixBytes]
		newChunk := newText[len(newText)-suffixBytes-newWidth : len(newText)-suffixBytes]
		if oldChunk != newChunk {
			break
		}
		suffixBytes += oldWidth
	}

	replacement := newText[prefixBytes : len(newText)-suffixBytes]
	return prefixBytes, len(oldText) - suffixBytes, replacement
}

// LineIndex resolves byte offsets within a fixed document to line and
// codepoint-column positions.
type LineIndex struct {
	text       string
	lineStarts []int
}

// NewLineIndex builds an index over the supplied document text.
func NewLineIndex(text string) *LineIndex {
	lineStarts := []int{0}
	for byteIndex := 0; byteIndex < len(text); byteIndex++ {
		if text[byteIndex] == '\n' {
			lineStarts = append(lineStarts, byteIndex+1)
		}
	}
	return &LineIndex{text: text, lineStarts: lineStarts}
}

// Position converts a byte offset into a line and codepoint column. Offsets
// past the end of the document clamp to the final position.
func (index *LineIndex) Position(offset int) Position {
	if offset > len(index.text) {
		offset = len(index.text)
	}
	if offset < 0 {
		offset = 0
	}
	lineNumber := sort.Search(len(index.lineStarts), func(candidate int) bool {
		return index.lineStarts[candidate] > offset
	}) - 1
	column := utf8.RuneCountInString(index.text[index.lineStarts[lineNumber]:offset])
	return Position{Line: uint32(lineNumber), Character: uint32(column)}
}

// BuildEdits returns the single-element edit list converting oldText into
// newText. The texts must differ; callers short-circuit equal documents to an
// explicit empty edit list instead.
func BuildEdits(oldText, newText string) []Edit {
	startOffset, endOffset, replacement := ComputeMinimalEdit(oldText, newText)
	index := NewLineIndex(oldText)
	return []Edit{{
		StartOffset: startOffset,
		EndOffset:   endOffset,
		NewText:     replacement,
		Range: Range{
			Start: index.Position(startOffset),
			End:   index.Position(endOffset),
		},
	}}
}
