// Package output defines the text formats of the unified and tree artifacts.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/unify/internal/types"
	"github.com/temirov/unify/internal/utils"
)

const (
	delimiterWidth = 80

	repositoryLabel         = "Repository: "
	generatedLabel          = "Generated: "
	includedExtensionsLabel = "Included extensions: "
	projectLabel            = "Project: "

	sectionAnnotationFormat       = "File: %s (extension: %s)"
	sectionTokensAnnotationFormat = ", tokens: %d"
	noExtensionLabel              = "none"

	summaryTitle               = "Summary"
	filesProcessedFormat       = "Files processed: %d\n"
	filesFailedFormat          = "Files failed: %d\n"
	directoriesSkippedFormat   = "Directories skipped: %d\n"
	totalSizeFormat            = "Total size: %s\n"
	totalTokensFormat          = "Total tokens: %d\n"
	totalTokensWithModelFormat = "Total tokens: %d (model: %s)\n"

	readErrorNoteFormat      = "[error reading %s: %v]"
	binaryContentNoteFormat  = "[skipped %s: binary content]"
	irregularFileNoteFormat  = "[skipped %s: not a regular file]"
	directoryErrorNoteFormat = "[error listing directory %s: %v]"

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	treeDirectorySuffix = "/"
	treeErrorFormat     = "[error: %s]"

	unifiedArtifactKind = "unified"
	treeArtifactKind    = "tree"
	artifactExtension   = ".txt"
	artifactNameJoiner  = "_"
)

// DelimiterLine is the fixed-width separator framing headers, sections and the summary.
var DelimiterLine = strings.Repeat("=", delimiterWidth)

// UnifiedHeader describes the opening block of the unified artifact.
type UnifiedHeader struct {
	RootPath           string
	Generated          string
	IncludedExtensions []string
}

// WriteUnifiedHeader writes the repository path, generation time, optional
// extension list and a closing delimiter followed by a blank line.
func WriteUnifiedHeader(writer io.Writer, header UnifiedHeader) {
	fmt.Fprintln(writer, repositoryLabel+header.RootPath)
	fmt.Fprintln(writer, generatedLabel+header.Generated)
	if len(header.IncludedExtensions) > 0 {
		fmt.Fprintln(writer, includedExtensionsLabel+strings.Join(header.IncludedExtensions, ", "))
	}
	fmt.Fprintln(writer, DelimiterLine)
	fmt.Fprintln(writer)
}

// SectionAnnotation returns the path/extension line of a section.
func SectionAnnotation(section types.FileSection, includeTokens bool) string {
	extension := section.Extension
	if extension == "" {
		extension = noExtensionLabel
	}
	annotation := fmt.Sprintf(sectionAnnotationFormat, section.RelativePath, extension)
	if includeTokens {
		annotation += fmt.Sprintf(sectionTokensAnnotationFormat, section.Tokens)
	}
	return annotation
}

// WriteSection writes one file section: delimiter, annotation, delimiter, blank
// line, the content with its trailing line breaks normalized to one, and a blank line.
func WriteSection(writer io.Writer, section types.FileSection, includeTokens bool) {
	writeSectionHeader(writer, SectionAnnotation(section, includeTokens))
	fmt.Fprint(writer, NormalizeTrailingNewline(section.Content))
	fmt.Fprintln(writer)
}

// WriteReadErrorNote records a file whose content could not be read.
func WriteReadErrorNote(writer io.Writer, relativePath string, readError error) {
	writeNote(writer, fmt.Sprintf(readErrorNoteFormat, relativePath, readError))
}

// WriteBinaryContentNote records a file with an allowed extension whose content is binary.
func WriteBinaryContentNote(writer io.Writer, relativePath string) {
	writeNote(writer, fmt.Sprintf(binaryContentNoteFormat, relativePath))
}

// WriteIrregularFileNote records an accepted entry that is a named pipe, socket,
// device or other non-regular file. Such entries are never opened.
func WriteIrregularFileNote(writer io.Writer, relativePath string) {
	writeNote(writer, fmt.Sprintf(irregularFileNoteFormat, relativePath))
}

// WriteDirectoryErrorNote records a directory whose entries could not be listed.
func WriteDirectoryErrorNote(writer io.Writer, relativePath string, listError error) {
	writeNote(writer, fmt.Sprintf(directoryErrorNoteFormat, relativePath, listError))
}

// WriteSummary writes the closing counters of the unified artifact. The token
// total is written whenever tokens were counted, including a total of zero.
func WriteSummary(writer io.Writer, summary types.RunSummary) {
	fmt.Fprintln(writer, DelimiterLine)
	fmt.Fprintln(writer, summaryTitle)
	fmt.Fprintln(writer, DelimiterLine)
	fmt.Fprintf(writer, filesProcessedFormat, summary.FilesProcessed)
	fmt.Fprintf(writer, filesFailedFormat, summary.FilesFailed)
	fmt.Fprintf(writer, directoriesSkippedFormat, summary.DirectoriesSkipped)
	fmt.Fprintf(writer, totalSizeFormat, utils.FormatFileSize(summary.TotalBytes))
	if summary.TokensCounted {
		if summary.Model != "" {
			fmt.Fprintf(writer, totalTokensWithModelFormat, summary.TotalTokens, summary.Model)
		} else {
			fmt.Fprintf(writer, totalTokensFormat, summary.TotalTokens)
		}
	}
}

// NormalizeTrailingNewline strips trailing CR/LF characters and appends exactly one newline.
func NormalizeTrailingNewline(content string) string {
	return strings.TrimRight(content, "\r\n") + "\n"
}

// WriteTreeHeader writes the title and timestamp lines of the tree artifact.
func WriteTreeHeader(writer io.Writer, projectName string, generated string) {
	fmt.Fprintln(writer, projectLabel+projectName)
	fmt.Fprintln(writer, generatedLabel+generated)
	fmt.Fprintln(writer)
}

// WriteTree renders root and its descendants using box-drawing connectors.
func WriteTree(writer io.Writer, root *types.TreeOutputNode) {
	if root == nil {
		return
	}
	fmt.Fprintln(writer, treeNodeLabel(root))
	renderTreeChildren(writer, root.Children, "")
}

// UnifiedArtifactName returns the file name of the unified artifact. An empty
// timestamp produces a stable name.
func UnifiedArtifactName(projectName string, timestamp string) string {
	return artifactName(projectName, unifiedArtifactKind, timestamp)
}

// TreeArtifactName returns the file name of the tree artifact.
func TreeArtifactName(projectName string, timestamp string) string {
	return artifactName(projectName, treeArtifactKind, timestamp)
}

func artifactName(projectName string, kind string, timestamp string) string {
	parts := []string{projectName, kind}
	if timestamp != "" {
		parts = append(parts, timestamp)
	}
	return strings.Join(parts, artifactNameJoiner) + artifactExtension
}

func writeSectionHeader(writer io.Writer, annotation string) {
	fmt.Fprintln(writer, DelimiterLine)
	fmt.Fprintln(writer, annotation)
	fmt.Fprintln(writer, DelimiterLine)
	fmt.Fprintln(writer)
}

func writeNote(writer io.Writer, note string) {
	fmt.Fprintln(writer, note)
	fmt.Fprintln(writer)
}

func renderTreeChildren(writer io.Writer, children []*types.TreeOutputNode, prefix string) {
	for index, child := range children {
		if child == nil {
			continue
		}
		isLast := index == len(children)-1
		connector, childPrefix := treeBranchConnector, prefix+treeBranchPadding
		if isLast {
			connector, childPrefix = treeLastConnector, prefix+treeLastPadding
		}
		fmt.Fprintf(writer, "%s%s%s\n", prefix, connector, treeNodeLabel(child))
		if child.Type == types.NodeTypeDirectory {
			renderTreeChildren(writer, child.Children, childPrefix)
		}
	}
}

func treeNodeLabel(node *types.TreeOutputNode) string {
	switch node.Type {
	case types.NodeTypeDirectory:
		return node.Name + treeDirectorySuffix
	case types.NodeTypeError:
		return fmt.Sprintf(treeErrorFormat, node.Error)
	default:
		return node.Name
	}
}
