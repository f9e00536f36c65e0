package formatter

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFileNames are the ignore sources read from the project root when
// present.
var ignoreFileNames = []string{".gitignore", ".prettierignore"}

// ignoreMatcher decides whether files under the project root are excluded
// from formatting. Paths outside the root are never ignored.
type ignoreMatcher struct {
	rootDirectory string
	matcher       *gitignore.GitIgnore
}

// newIgnoreMatcher compiles the root's ignore files plus the explicit pattern
// lines from configuration.
func newIgnoreMatcher(rootDirectory string, configPatterns []string) (*ignoreMatcher, error) {
	var lines []string
	for _, ignoreFileName := range ignoreFileNames {
		fileLines, readErr := readIgnoreFileLines(filepath.Join(rootDirectory, ignoreFileName))
		if readErr != nil {
			return nil, readErr
		}
		lines = append(lines, fileLines...)
	}
	lines = append(lines, configPatterns...)

	return &ignoreMatcher{
		rootDirectory: rootDirectory,
		matcher:       gitignore.CompileIgnoreLines(lines...),
	}, nil
}

// readIgnoreFileLines returns the lines of one ignore file; a missing file
// contributes nothing.
func readIgnoreFileLines(path string) ([]string, error) {
	fileHandle, openErr := os.Open(path)
	if openErr != nil {
		if os.IsNotExist(openErr) {
			return nil, nil
		}
		return nil, openErr
	}
	defer fileHandle.Close()

	var lines []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// isIgnored reports whether the absolute path matches an ignore pattern. The
// check applies only below the ignore root.
func (matcher *ignoreMatcher) isIgnored(absolutePath string) bool {
	relativePath, relErr := filepath.Rel(matcher.rootDirectory, absolutePath)
	if relErr != nil {
		return false
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return false
	}
	return matcher.matcher.MatchesPath(filepath.ToSlash(relativePath))
}
