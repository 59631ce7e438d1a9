// Package types defines every cross-package data structure used by the unify CLI.
package types

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"
	NodeTypeError     = "error"
)

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// FileSection is one accepted file written into the unified artifact.
type FileSection struct {
	RelativePath string
	Extension    string
	Content      string
	SizeBytes    int64
	Tokens       int
}

// TreeOutputNode represents a node of the filtered project tree.
// Nodes of type NodeTypeError carry the listing failure in Error and have no children.
type TreeOutputNode struct {
	Path     string
	Name     string
	Type     string
	Error    string
	Children []*TreeOutputNode
}

// LeafCount returns the number of file nodes beneath node, including node itself.
func (node *TreeOutputNode) LeafCount() int {
	if node == nil {
		return 0
	}
	if node.Type == NodeTypeFile {
		return 1
	}
	total := 0
	for _, child := range node.Children {
		total += child.LeafCount()
	}
	return total
}

// RunSummary captures the counters reported at the end of the unified artifact.
type RunSummary struct {
	FilesProcessed     int
	FilesFailed        int
	DirectoriesSkipped int
	TotalBytes         int64
	TotalTokens        int
	TokensCounted      bool
	Model              string
}
