package textedit

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	previewContextPrefix = "  "
	previewAddedPrefix   = "+ "
	previewRemovedPrefix = "- "
)

// Preview renders a human-readable line diff between the original and
// formatted document, for display by front ends before an edit is applied.
func Preview(oldText, newText string) string {
	differ := diffmatchpatch.New()
	oldRunes, newRunes, lineArray := differ.DiffLinesToChars(oldText, newText)
	fragments := differ.DiffMain(oldRunes, newRunes, false)
	fragments = differ.DiffCharsToLines(fragments, lineArray)

	var builder strings.Builder
	for _, fragment := range fragments {
		fragmentLines := strings.Split(fragment.Text, "\n")
		if len(fragmentLines) > 0 && fragmentLines[len(fragmentLines)-1] == "" {
			fragmentLines = fragmentLines[:len(fragmentLines)-1]
		}
		prefix := previewContextPrefix
		switch fragment.Type {
		case diffmatchpatch.DiffInsert:
			prefix = previewAddedPrefix
		case diffmatchpatch.DiffDelete:
			prefix = previewRemovedPrefix
		}
		for _, line := range fragmentLines {
			builder.WriteString(prefix)
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
	}
	return builder.String()
}
