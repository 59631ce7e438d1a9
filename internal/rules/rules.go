// Package rules holds the immutable inclusion and exclusion configuration of a run
// together with the directory and file predicates derived from it.
package rules

import (
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/temirov/unify/internal/utils"
)

const extensionSeparator = "."

// ExclusionRules names directories to prune, files to skip and extensions to skip.
type ExclusionRules struct {
	Directories []string
	Files       []string
	Extensions  []string
}

// InclusionRules names the extensions eligible for processing.
type InclusionRules struct {
	Extensions []string
}

// Options configures New.
type Options struct {
	Exclusion ExclusionRules
	Inclusion InclusionRules
	// IgnorePatterns are .gitignore style patterns relative to the root.
	IgnorePatterns []string
}

// Rules is the normalized, read-only form of Options. The zero value accepts nothing.
type Rules struct {
	excludedDirectories []string
	excludedFiles       map[string]struct{}
	excludedExtensions  map[string]struct{}
	excludedSuffixes    []string
	includedExtensions  map[string]struct{}
	ignoreMatcher       *ignore.GitIgnore
}

// DefaultOptions returns Options populated with the built-in rule sets.
func DefaultOptions() Options {
	return Options{
		Exclusion: ExclusionRules{
			Directories: append([]string(nil), DefaultExcludedDirectories...),
			Files:       append([]string(nil), DefaultExcludedFiles...),
			Extensions:  append([]string(nil), DefaultExcludedExtensions...),
		},
		Inclusion: InclusionRules{
			Extensions: append([]string(nil), DefaultIncludedExtensions...),
		},
	}
}

// New normalizes options into Rules. Extensions are lower-cased and given a
// leading dot; empty entries are dropped.
func New(options Options) Rules {
	result := Rules{
		excludedFiles:      map[string]struct{}{},
		excludedExtensions: map[string]struct{}{},
		includedExtensions: map[string]struct{}{},
	}
	for _, directoryName := range utils.DeduplicatePatterns(options.Exclusion.Directories) {
		trimmed := strings.Trim(strings.TrimSpace(directoryName), "/\\")
		if trimmed != "" {
			result.excludedDirectories = append(result.excludedDirectories, trimmed)
		}
	}
	for _, fileName := range options.Exclusion.Files {
		trimmed := strings.TrimSpace(fileName)
		if trimmed != "" {
			result.excludedFiles[trimmed] = struct{}{}
		}
	}
	for _, extension := range options.Exclusion.Extensions {
		normalized := NormalizeExtension(extension)
		if normalized == "" {
			continue
		}
		if strings.Count(normalized, extensionSeparator) > 1 {
			result.excludedSuffixes = append(result.excludedSuffixes, normalized)
			continue
		}
		result.excludedExtensions[normalized] = struct{}{}
	}
	for _, extension := range options.Inclusion.Extensions {
		normalized := NormalizeExtension(extension)
		if normalized != "" {
			result.includedExtensions[normalized] = struct{}{}
		}
	}
	var ignorePatterns []string
	for _, pattern := range utils.DeduplicatePatterns(options.IgnorePatterns) {
		trimmed := strings.TrimSpace(pattern)
		if trimmed != "" {
			ignorePatterns = append(ignorePatterns, trimmed)
		}
	}
	if len(ignorePatterns) > 0 {
		result.ignoreMatcher = ignore.CompileIgnoreLines(ignorePatterns...)
	}
	return result
}

// NormalizeExtension lower-cases extension and ensures a single leading dot.
func NormalizeExtension(extension string) string {
	trimmed := strings.ToLower(strings.TrimSpace(extension))
	trimmed = strings.TrimLeft(trimmed, extensionSeparator)
	if trimmed == "" {
		return ""
	}
	return extensionSeparator + trimmed
}

// ExcludeDirectory reports whether traversal must not descend into the directory
// at relativePath. Any segment equal to or prefixed by an excluded directory
// name excludes the whole path. The root itself is never excluded.
func (rules Rules) ExcludeDirectory(relativePath string) bool {
	segments := utils.SplitPathSegments(relativePath)
	if len(segments) == 0 {
		return false
	}
	for _, segment := range segments {
		for _, excludedName := range rules.excludedDirectories {
			if strings.HasPrefix(segment, excludedName) {
				return true
			}
		}
	}
	return rules.ignored(strings.Join(segments, "/") + "/")
}

// IncludeFile reports whether the file at relativePath should have its contents
// emitted. Exclusion by name or extension takes precedence over inclusion.
func (rules Rules) IncludeFile(relativePath string) bool {
	segments := utils.SplitPathSegments(relativePath)
	if len(segments) == 0 {
		return false
	}
	baseName := segments[len(segments)-1]
	if _, excluded := rules.excludedFiles[baseName]; excluded {
		return false
	}
	lowerBaseName := strings.ToLower(baseName)
	for _, suffix := range rules.excludedSuffixes {
		if strings.HasSuffix(lowerBaseName, suffix) {
			return false
		}
	}
	extension := strings.ToLower(filepath.Ext(baseName))
	if _, excluded := rules.excludedExtensions[extension]; excluded {
		return false
	}
	if _, included := rules.includedExtensions[extension]; !included {
		return false
	}
	return !rules.ignored(strings.Join(segments, "/"))
}

// ignored reports whether the loaded ignore patterns match path. Directory
// paths carry a trailing slash so that "name/" patterns apply to them.
func (rules Rules) ignored(path string) bool {
	return rules.ignoreMatcher != nil && rules.ignoreMatcher.MatchesPath(path)
}

// IncludedExtensions returns the inclusion set in sorted order.
func (rules Rules) IncludedExtensions() []string {
	extensions := make([]string, 0, len(rules.includedExtensions))
	for extension := range rules.includedExtensions {
		extensions = append(extensions, extension)
	}
	sort.Strings(extensions)
	return extensions
}
