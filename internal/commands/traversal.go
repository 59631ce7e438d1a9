// Package commands walks a project tree and produces the unified and tree artifacts.
package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/unify/internal/rules"
	"github.com/temirov/unify/internal/types"
	"github.com/temirov/unify/internal/utils"
)

// TraversalState tracks the directory being processed and the counters reported
// in the summary. It lives for a single run.
type TraversalState struct {
	CurrentDirectory   string
	FilesProcessed     int
	FilesFailed        int
	DirectoriesSkipped int
	TotalBytes         int64
	TotalTokens        int
}

// Summary converts the counters into a RunSummary. The model is reported only
// when tokens were counted.
func (state *TraversalState) Summary(tokensCounted bool, model string) types.RunSummary {
	summary := types.RunSummary{
		FilesProcessed:     state.FilesProcessed,
		FilesFailed:        state.FilesFailed,
		DirectoriesSkipped: state.DirectoriesSkipped,
		TotalBytes:         state.TotalBytes,
		TotalTokens:        state.TotalTokens,
		TokensCounted:      tokensCounted,
	}
	if tokensCounted {
		summary.Model = model
	}
	return summary
}

// directoryListing is one directory after filtering: accepted files and the
// subdirectories to descend.
type directoryListing struct {
	files         []fileEntry
	directories   []string
	excludedCount int
}

// fileEntry is an accepted non-directory entry. Entries that are not regular
// files, such as named pipes, sockets and devices, must never be opened.
type fileEntry struct {
	name    string
	regular bool
}

// listDirectory reads absolutePath and partitions its entries with the rules.
// Excluded directories are counted but never returned. Entries whose absolute
// path is in skipPaths are dropped without being counted. Symbolic links to
// directories are not followed; links to files take the mode of their target and
// broken links are kept so that reading them reports the failure.
func listDirectory(absolutePath string, relativePath string, filter rules.Rules, skipPaths map[string]struct{}) (directoryListing, error) {
	directoryEntries, readDirectoryError := os.ReadDir(absolutePath)
	if readDirectoryError != nil {
		return directoryListing{}, readDirectoryError
	}

	var listing directoryListing
	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		childAbsolutePath := filepath.Join(absolutePath, entryName)
		if _, skipped := skipPaths[childAbsolutePath]; skipped {
			continue
		}
		childRelativePath := joinRelative(relativePath, entryName)

		isDirectory := directoryEntry.IsDir()
		isRegular := directoryEntry.Type().IsRegular()
		if directoryEntry.Type()&os.ModeSymlink != 0 {
			targetInfo, statError := os.Stat(childAbsolutePath)
			switch {
			case statError != nil:
				isRegular = true
			case targetInfo.IsDir():
				continue
			default:
				isRegular = targetInfo.Mode().IsRegular()
			}
		}

		if isDirectory {
			if filter.ExcludeDirectory(childRelativePath) {
				listing.excludedCount++
				continue
			}
			listing.directories = append(listing.directories, entryName)
			continue
		}
		if filter.IncludeFile(childRelativePath) {
			listing.files = append(listing.files, fileEntry{name: entryName, regular: isRegular})
		}
	}
	return listing, nil
}

// joinRelative appends name to a forward-slash relative path where "." denotes the root.
func joinRelative(relativePath string, name string) string {
	if relativePath == "" || relativePath == "." {
		return name
	}
	return relativePath + "/" + name
}

// sortFileEntries orders entries by the bytes of their names.
func sortFileEntries(entries []fileEntry) {
	sort.Slice(entries, func(leftIndex, rightIndex int) bool {
		return entries[leftIndex].name < entries[rightIndex].name
	})
}

// lessCaseInsensitive orders names case-insensitively with byte order breaking ties.
func lessCaseInsensitive(left string, right string) bool {
	lowerLeft, lowerRight := strings.ToLower(left), strings.ToLower(right)
	if lowerLeft != lowerRight {
		return lowerLeft < lowerRight
	}
	return left < right
}

// newSkipPathSet cleans and absolutizes paths into a lookup set.
func newSkipPathSet(paths []string) map[string]struct{} {
	skipSet := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == utils.EmptyString {
			continue
		}
		absolutePath, absoluteError := filepath.Abs(path)
		if absoluteError != nil {
			continue
		}
		skipSet[filepath.Clean(absolutePath)] = struct{}{}
	}
	return skipSet
}
