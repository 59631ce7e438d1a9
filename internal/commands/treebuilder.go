package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/unify/internal/output"
	"github.com/temirov/unify/internal/rules"
	"github.com/temirov/unify/internal/types"
	"github.com/temirov/unify/internal/utils"
)

// TreeBuilder builds the filtered directory tree of a project.
type TreeBuilder struct {
	Rules  rules.Rules
	Logger *zap.Logger
	// SkipPaths are absolute paths never visited, such as the output directory.
	SkipPaths   []string
	GeneratedAt time.Time
}

// BuildTree returns the root node of the filtered tree beneath rootPath.
// Only accepted files appear as leaves. Directories without accepted files or
// error markers are pruned. A directory that cannot be listed receives a
// single error child.
func (treeBuilder *TreeBuilder) BuildTree(rootPath string) (*types.TreeOutputNode, error) {
	absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootPath, absolutePathError)
	}
	absoluteRootPath = filepath.Clean(absoluteRootPath)

	rootNode := &types.TreeOutputNode{
		Path: absoluteRootPath,
		Name: filepath.Base(absoluteRootPath),
		Type: types.NodeTypeDirectory,
	}
	rootNode.Children = treeBuilder.buildTreeNodes(absoluteRootPath, ".", newSkipPathSet(treeBuilder.SkipPaths))
	return rootNode, nil
}

// WriteTree renders the header and tree of rootPath to writer.
func (treeBuilder *TreeBuilder) WriteTree(rootPath string, writer io.Writer) (*types.TreeOutputNode, error) {
	rootNode, buildError := treeBuilder.BuildTree(rootPath)
	if buildError != nil {
		return nil, buildError
	}
	output.WriteTreeHeader(writer, rootNode.Name, utils.FormatTimestamp(treeBuilder.generatedAt()))
	output.WriteTree(writer, rootNode)
	return rootNode, nil
}

// WriteTreeArtifact creates artifactPath and writes the tree artifact into it.
func (treeBuilder *TreeBuilder) WriteTreeArtifact(rootPath string, artifactPath string) (*types.TreeOutputNode, error) {
	var rootNode *types.TreeOutputNode
	writeError := writeArtifact(artifactPath, func(writer io.Writer) error {
		var treeError error
		rootNode, treeError = treeBuilder.WriteTree(rootPath, writer)
		return treeError
	})
	return rootNode, writeError
}

// buildTreeNodes returns the sorted, pruned children of one directory.
func (treeBuilder *TreeBuilder) buildTreeNodes(absolutePath string, relativePath string, skipPaths map[string]struct{}) []*types.TreeOutputNode {
	listing, listingError := listDirectory(absolutePath, relativePath, treeBuilder.Rules, skipPaths)
	if listingError != nil {
		treeBuilder.logger().Warn(logMessageListingFailed, zap.String(logFieldPath, relativePath), zap.Error(listingError))
		return []*types.TreeOutputNode{{
			Path:  absolutePath,
			Type:  types.NodeTypeError,
			Error: listingError.Error(),
		}}
	}

	nodes := make([]*types.TreeOutputNode, 0, len(listing.files)+len(listing.directories))
	for _, directoryName := range listing.directories {
		childAbsolutePath := filepath.Join(absolutePath, directoryName)
		children := treeBuilder.buildTreeNodes(childAbsolutePath, joinRelative(relativePath, directoryName), skipPaths)
		if len(children) == 0 {
			continue
		}
		nodes = append(nodes, &types.TreeOutputNode{
			Path:     childAbsolutePath,
			Name:     directoryName,
			Type:     types.NodeTypeDirectory,
			Children: children,
		})
	}
	for _, entry := range listing.files {
		nodes = append(nodes, &types.TreeOutputNode{
			Path: filepath.Join(absolutePath, entry.name),
			Name: entry.name,
			Type: types.NodeTypeFile,
		})
	}

	sort.SliceStable(nodes, func(leftIndex, rightIndex int) bool {
		left, right := nodes[leftIndex], nodes[rightIndex]
		leftIsDirectory := left.Type == types.NodeTypeDirectory
		rightIsDirectory := right.Type == types.NodeTypeDirectory
		if leftIsDirectory != rightIsDirectory {
			return leftIsDirectory
		}
		return lessCaseInsensitive(left.Name, right.Name)
	})
	return nodes
}

func (treeBuilder *TreeBuilder) logger() *zap.Logger {
	if treeBuilder.Logger == nil {
		return zap.NewNop()
	}
	return treeBuilder.Logger
}

func (treeBuilder *TreeBuilder) generatedAt() time.Time {
	if treeBuilder.GeneratedAt.IsZero() {
		return time.Now()
	}
	return treeBuilder.GeneratedAt
}
