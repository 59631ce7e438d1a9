package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/unify/internal/output"
	"github.com/temirov/unify/internal/rules"
	"github.com/temirov/unify/internal/tokenizer"
	"github.com/temirov/unify/internal/types"
	"github.com/temirov/unify/internal/utils"
)

const (
	errorAbsolutePathFormat   = "getting absolute path for %s: %w"
	errorCreateArtifactFormat = "creating artifact %s: %w"
	errorFlushArtifactFormat  = "writing artifact %s: %w"
	errorCloseArtifactFormat  = "closing artifact %s: %w"
	errorDecodeFormat         = "decoding content: %w"

	logMessageProcessedFile    = "processed file"
	logMessageFailedFile       = "failed to read file"
	logMessageBinaryFile       = "skipping binary content"
	logMessageIrregularFile    = "skipping file that is not a regular file"
	logMessageSkippedDirectory = "skipping excluded directories"
	logMessageListingFailed    = "failed to list directory"
	logMessageTokenCountFailed = "failed to count tokens"

	logFieldPath      = "path"
	logFieldDirectory = "directory"
	logFieldCount     = "count"
	logFieldTokens    = "tokens"
)

// Unifier concatenates accepted files beneath a root into the unified artifact.
type Unifier struct {
	Rules  rules.Rules
	Logger *zap.Logger
	// TokenCounter enables per-section and total token counts when set.
	TokenCounter tokenizer.Counter
	TokenModel   string
	// SkipPaths are absolute paths never visited, such as the output directory.
	SkipPaths   []string
	GeneratedAt time.Time
}

// Unify writes the header, one section per accepted file and the summary to writer.
// Per-file and per-directory failures are recorded inline and never abort the run.
func (unifier *Unifier) Unify(rootPath string, writer io.Writer) (types.RunSummary, error) {
	absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return types.RunSummary{}, fmt.Errorf(errorAbsolutePathFormat, rootPath, absolutePathError)
	}
	absoluteRootPath = filepath.Clean(absoluteRootPath)

	output.WriteUnifiedHeader(writer, output.UnifiedHeader{
		RootPath:           absoluteRootPath,
		Generated:          utils.FormatTimestamp(unifier.generatedAt()),
		IncludedExtensions: unifier.Rules.IncludedExtensions(),
	})

	state := &TraversalState{}
	unifier.walk(writer, state, absoluteRootPath, ".", newSkipPathSet(unifier.SkipPaths))

	summary := state.Summary(unifier.TokenCounter != nil, unifier.TokenModel)
	output.WriteSummary(writer, summary)
	return summary, nil
}

// WriteUnifiedArtifact creates artifactPath and writes the unified artifact into it.
func (unifier *Unifier) WriteUnifiedArtifact(rootPath string, artifactPath string) (types.RunSummary, error) {
	var summary types.RunSummary
	writeError := writeArtifact(artifactPath, func(writer io.Writer) error {
		var unifyError error
		summary, unifyError = unifier.Unify(rootPath, writer)
		return unifyError
	})
	return summary, writeError
}

func (unifier *Unifier) walk(writer io.Writer, state *TraversalState, absolutePath string, relativePath string, skipPaths map[string]struct{}) {
	state.CurrentDirectory = relativePath
	logger := unifier.logger()

	listing, listingError := listDirectory(absolutePath, relativePath, unifier.Rules, skipPaths)
	if listingError != nil {
		logger.Warn(logMessageListingFailed, zap.String(logFieldPath, relativePath), zap.Error(listingError))
		output.WriteDirectoryErrorNote(writer, relativePath, listingError)
		state.DirectoriesSkipped++
		return
	}
	if listing.excludedCount > 0 {
		logger.Debug(logMessageSkippedDirectory, zap.String(logFieldPath, relativePath), zap.Int(logFieldCount, listing.excludedCount))
		state.DirectoriesSkipped += listing.excludedCount
	}

	sortFileEntries(listing.files)
	for _, entry := range listing.files {
		entryRelativePath := joinRelative(relativePath, entry.name)
		if !entry.regular {
			logger.Warn(logMessageIrregularFile, zap.String(logFieldPath, entryRelativePath))
			output.WriteIrregularFileNote(writer, entryRelativePath)
			state.FilesFailed++
			continue
		}
		unifier.emitFile(writer, state, filepath.Join(absolutePath, entry.name), entryRelativePath)
	}

	sort.Strings(listing.directories)
	for _, directoryName := range listing.directories {
		unifier.walk(writer, state, filepath.Join(absolutePath, directoryName), joinRelative(relativePath, directoryName), skipPaths)
	}
}

// emitFile reads one accepted file and writes its section or an inline note.
func (unifier *Unifier) emitFile(writer io.Writer, state *TraversalState, absolutePath string, relativePath string) {
	logger := unifier.logger().With(zap.String(logFieldDirectory, state.CurrentDirectory))

	// #nosec G304
	fileBytes, readError := os.ReadFile(absolutePath)
	if readError != nil {
		logger.Warn(logMessageFailedFile, zap.String(logFieldPath, relativePath), zap.Error(readError))
		output.WriteReadErrorNote(writer, relativePath, readError)
		state.FilesFailed++
		return
	}
	if utils.IsBinary(fileBytes) {
		logger.Warn(logMessageBinaryFile, zap.String(logFieldPath, relativePath))
		output.WriteBinaryContentNote(writer, relativePath)
		state.FilesFailed++
		return
	}
	decodedContent, decodeError := utils.DecodeText(fileBytes)
	if decodeError != nil {
		wrappedError := fmt.Errorf(errorDecodeFormat, decodeError)
		logger.Warn(logMessageFailedFile, zap.String(logFieldPath, relativePath), zap.Error(wrappedError))
		output.WriteReadErrorNote(writer, relativePath, wrappedError)
		state.FilesFailed++
		return
	}

	section := types.FileSection{
		RelativePath: relativePath,
		Extension:    filepath.Ext(relativePath),
		Content:      decodedContent,
		SizeBytes:    int64(len(fileBytes)),
	}
	includeTokens := unifier.TokenCounter != nil
	if includeTokens {
		tokens, tokenError := tokenizer.CountText(unifier.TokenCounter, decodedContent)
		if tokenError != nil {
			logger.Warn(logMessageTokenCountFailed, zap.String(logFieldPath, relativePath), zap.Error(tokenError))
		} else {
			section.Tokens = tokens
		}
	}

	output.WriteSection(writer, section, includeTokens)
	state.FilesProcessed++
	state.TotalBytes += section.SizeBytes
	state.TotalTokens += section.Tokens
	logger.Info(logMessageProcessedFile, zap.String(logFieldPath, relativePath), zap.Int(logFieldTokens, section.Tokens))
}

func (unifier *Unifier) logger() *zap.Logger {
	if unifier.Logger == nil {
		return zap.NewNop()
	}
	return unifier.Logger
}

func (unifier *Unifier) generatedAt() time.Time {
	if unifier.GeneratedAt.IsZero() {
		return time.Now()
	}
	return unifier.GeneratedAt
}

// writeArtifact creates path, runs render against a buffered writer, then flushes
// and closes the file. The first error encountered is returned.
func writeArtifact(path string, render func(io.Writer) error) (resultError error) {
	// #nosec G304
	artifactFile, createError := os.Create(path)
	if createError != nil {
		return fmt.Errorf(errorCreateArtifactFormat, path, createError)
	}
	defer func() {
		if closeError := artifactFile.Close(); closeError != nil && resultError == nil {
			resultError = fmt.Errorf(errorCloseArtifactFormat, path, closeError)
		}
	}()

	bufferedWriter := bufio.NewWriter(artifactFile)
	if renderError := render(bufferedWriter); renderError != nil {
		_ = bufferedWriter.Flush()
		return renderError
	}
	if flushError := bufferedWriter.Flush(); flushError != nil {
		return fmt.Errorf(errorFlushArtifactFormat, path, flushError)
	}
	return nil
}
