// Package utils provides the application logger and version retrieval.
package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion   = "unknown"
	gitDirectoryName = ".git"
)

// GetApplicationVersion determines the application version from Go build
// info, falling back to git describe when running from a source checkout.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}

	repositoryRoot, found := findRepositoryRoot(".")
	if !found {
		return unknownVersion
	}

	// #nosec G204
	describeCommand := exec.Command("git", "describe", "--tags", "--long", "--dirty")
	describeCommand.Dir = repositoryRoot
	describeOutput, describeErr := describeCommand.Output()
	if describeErr != nil || len(describeOutput) == 0 {
		return unknownVersion
	}
	return strings.TrimSpace(string(describeOutput))
}

// findRepositoryRoot walks upward from the starting directory until it finds
// a directory containing .git.
func findRepositoryRoot(startDirectory string) (string, bool) {
	absoluteStartDirectory, absoluteErr := filepath.Abs(startDirectory)
	if absoluteErr != nil {
		return "", false
	}

	currentDirectory := absoluteStartDirectory
	for {
		gitPath := filepath.Join(currentDirectory, gitDirectoryName)
		fileInformation, statErr := os.Stat(gitPath)
		if statErr == nil && fileInformation.IsDir() {
			return currentDirectory, true
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", false
		}
		currentDirectory = parentDirectory
	}
}
