package textedit_test

import (
	"strings"
	"testing"

	"github.com/temirov/fmtd/internal/textedit"
)

func TestComputeMinimalEditPanicsOnEqualInputs(t *testing.T) {
	defer func() {
		if recovered := recover(); recovered == nil {
			t.Fatalf("expected panic for equal inputs")
		}
	}()
	textedit.ComputeMinimalEdit("abc", "abc")
}

func TestComputeMinimalEdit(t *testing.T) {
	testCases := []struct {
		name        string
		oldText     string
		newText     string
		start       int
		end         int
		replacement string
	}{
		{name: "single char change", oldText: "abc", newText: "axc", start: 1, end: 2, replacement: "x"},
		{name: "insert char", oldText: "abc", newText: "abxc", start: 2, end: 2, replacement: "x"},
		{name: "delete char", oldText: "abc", newText: "ac", start: 1, end: 2, replacement: ""},
		{name: "replace multiple chars", oldText: "abcdef", newText: "abXYef", start: 2, end: 4, replacement: "XY"},
		{name: "overlap bounded by prefix", oldText: "aYabYb", newText: "aXabXb", start: 1, end: 5, replacement: "XabX"},
		{name: "emoji replaced on codepoint boundary", oldText: "a\U0001F600b", newText: "a\U0001F603b", start: 1, end: 5, replacement: "\U0001F603"},
		{name: "shrink repeated run", oldText: "aa", newText: "a", start: 1, end: 2, replacement: ""},
		{name: "drop leading char", oldText: "ab", newText: "b", start: 0, end: 1, replacement: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			start, end, replacement := textedit.ComputeMinimalEdit(testCase.oldText, testCase.newText)
			if start != testCase.start || end != testCase.end || replacement != testCase.replacement {
				t.Fatalf("got (%d, %d, %q), want (%d, %d, %q)",
					start, end, replacement, testCase.start, testCase.end, testCase.replacement)
			}
			patched := testCase.oldText[:start] + replacement + testCase.oldText[end:]
			if patched != testCase.newText {
				t.Fatalf("applying edit produced %q, want %q", patched, testCase.newText)
			}
		})
	}
}

func TestComputeMinimalEditInvalidBytesRoundTrip(t *testing.T) {
	// Distinct invalid bytes decode to the same replacement rune; the scans
	// must still treat them as different so the edit reconstructs newText.
	testCases := []struct {
		name    string
		oldText string
		newText string
	}{
		{name: "lone invalid bytes", oldText: "\xff", newText: "\xfe"},
		{name: "invalid byte between valid text", oldText: "a\xffb", newText: "a\xfeb"},
		{name: "invalid suffix bytes", oldText: "ab\xff", newText: "ab\xfe"},
		{name: "truncated multi-byte sequence", oldText: "a\xe2\x82", newText: "a\xe2\x98"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			start, end, replacement := textedit.ComputeMinimalEdit(testCase.oldText, testCase.newText)
			patched := testCase.oldText[:start] + replacement + testCase.oldText[end:]
			if patched != testCase.newText {
				t.Fatalf("applying edit (%d, %d, %q) produced %q, want %q",
					start, end, replacement, patched, testCase.newText)
			}
		})
	}
}

func TestComputeMinimalEditAppendAndPrepend(t *testing.T) {
	base := strings.Repeat("a", 100)

	start, end, replacement := textedit.ComputeMinimalEdit(base, base+"b")
	if start != 100 || end != 100 || replacement != "b" {
		t.Fatalf("append: got (%d, %d, %q)", start, end, replacement)
	}

	start, end, replacement = textedit.ComputeMinimalEdit(base, "b"+base)
	if start != 0 || end != 0 || replacement != "b" {
		t.Fatalf("prepend: got (%d, %d, %q)", start, end, replacement)
	}
}

func TestLineIndexPosition(t *testing.T) {
	document := "one\ntwö\nthree"
	index := textedit.NewLineIndex(document)

	testCases := []struct {
		offset    int
		line      uint32
		character uint32
	}{
		{offset: 0, line: 0, character: 0},
		{offset: 3, line: 0, character: 3},
		{offset: 4, line: 1, character: 0},
		{offset: 8, line: 1, character: 3}, // after the two-byte o-umlaut
		{offset: 9, line: 2, character: 0},
		{offset: 14, line: 2, character: 5},
		{offset: 99, line: 2, character: 5}, // clamped
	}

	for _, testCase := range testCases {
		position := index.Position(testCase.offset)
		if position.Line != testCase.line || position.Character != testCase.character {
			t.Fatalf("offset %d: got %d:%d, want %d:%d",
				testCase.offset, position.Line, position.Character, testCase.line, testCase.character)
		}
	}
}

func TestBuildEditsProducesSingleEditWithRange(t *testing.T) {
	oldText := "const a = 1\nconst b =2\n"
	newText := "const a = 1\nconst b = 2\n"

	edits := textedit.BuildEdits(oldText, newText)
	if len(edits) != 1 {
		t.Fatalf("expected a single edit, got %d", len(edits))
	}
	edit := edits[0]
	patched := oldText[:edit.StartOffset] + edit.NewText + oldText[edit.EndOffset:]
	if patched != newText {
		t.Fatalf("edit did not reproduce the formatted text: %q", patched)
	}
	if edit.Range.Start.Line != 1 || edit.Range.End.Line != 1 {
		t.Fatalf("expected edit confined to line 1, got range %+v", edit.Range)
	}
}

func TestPreviewMarksAddedAndRemovedLines(t *testing.T) {
	preview := textedit.Preview("alpha\nbeta\n", "alpha\ngamma\n")
	if !strings.Contains(preview, "- beta") {
		t.Fatalf("expected removed line in preview, got %q", preview)
	}
	if !strings.Contains(preview, "+ gamma") {
		t.Fatalf("expected added line in preview, got %q", preview)
	}
	if !strings.Contains(preview, "  alpha") {
		t.Fatalf("expected context line in preview, got %q", preview)
	}
}
