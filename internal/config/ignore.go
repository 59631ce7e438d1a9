// Package config loads application configuration and ignore files.
package config

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/unify/internal/utils"
)

const (
	commentPrefix  = "#"
	negationPrefix = "!"
)

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns, negations
// included. A missing file yields no patterns.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer fileHandle.Close()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadRecursiveIgnorePatterns walks rootDirectoryPath and aggregates patterns from
// every utils.IgnoreFileName and utils.GitIgnoreFileName. Patterns found in a nested
// directory are prefixed with that directory's path relative to the root. Directories
// for which skipDirectory returns true are not visited. Unreadable directories are
// skipped here; the traversal proper reports them.
func LoadRecursiveIgnorePatterns(rootDirectoryPath string, skipDirectory func(relativePath string) bool) ([]string, error) {
	var aggregatedPatterns []string

	walkFunction := func(currentDirectoryPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if directoryEntry != nil && directoryEntry.IsDir() && currentDirectoryPath != rootDirectoryPath {
				return filepath.SkipDir
			}
			return walkError
		}
		if !directoryEntry.IsDir() {
			return nil
		}

		relativeDirectory := utils.RelativePathOrSelf(currentDirectoryPath, rootDirectoryPath)
		if relativeDirectory != "." && skipDirectory != nil && skipDirectory(relativeDirectory) {
			return filepath.SkipDir
		}
		prefix := ""
		if relativeDirectory != "." {
			prefix = relativeDirectory + "/"
		}

		for _, ignoreFileName := range []string{utils.IgnoreFileName, utils.GitIgnoreFileName} {
			ignoreFilePath := filepath.Join(currentDirectoryPath, ignoreFileName)
			patterns, loadError := LoadIgnoreFilePatterns(ignoreFilePath)
			if loadError != nil {
				return fmt.Errorf("loading %s from %s: %w", ignoreFileName, currentDirectoryPath, loadError)
			}
			for _, pattern := range patterns {
				aggregatedPatterns = append(aggregatedPatterns, prefixPattern(prefix, pattern))
			}
		}
		return nil
	}

	if walkError := filepath.WalkDir(rootDirectoryPath, walkFunction); walkError != nil {
		return nil, walkError
	}

	return utils.DeduplicatePatterns(aggregatedPatterns), nil
}

// prefixPattern scopes a nested ignore pattern to the directory that declared it.
// A leading negation marker stays in front of the prefix.
func prefixPattern(prefix string, pattern string) string {
	negation := ""
	if strings.HasPrefix(pattern, negationPrefix) {
		negation = negationPrefix
		pattern = strings.TrimPrefix(pattern, negationPrefix)
	}
	return negation + prefix + strings.TrimPrefix(pattern, "/")
}
