package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/temirov/unify/internal/commands"
	"github.com/temirov/unify/internal/output"
	"github.com/temirov/unify/internal/rules"
	"github.com/temirov/unify/internal/tokenizer"
	"github.com/temirov/unify/internal/types"
)

const sectionPrefix = "File: "

var fixedGenerationTime = time.Date(2024, time.March, 5, 10, 30, 0, 0, time.Local)

// writeProjectFiles creates every relative path in files with its content beneath root.
func writeProjectFiles(testingHandle *testing.T, root string, files map[string]string) {
	testingHandle.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		if makeDirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); makeDirError != nil {
			testingHandle.Fatalf("mkdir %s: %v", filepath.Dir(absolutePath), makeDirError)
		}
		if writeError := os.WriteFile(absolutePath, []byte(content), 0o644); writeError != nil {
			testingHandle.Fatalf("write %s: %v", absolutePath, writeError)
		}
	}
}

func defaultRules() rules.Rules {
	return rules.New(rules.DefaultOptions())
}

func runUnifier(testingHandle *testing.T, unifier *commands.Unifier, root string) (string, types.RunSummary) {
	testingHandle.Helper()
	var buffer bytes.Buffer
	summary, unifyError := unifier.Unify(root, &buffer)
	if unifyError != nil {
		testingHandle.Fatalf("Unify error: %v", unifyError)
	}
	return buffer.String(), summary
}

func sectionPaths(unified string) []string {
	var paths []string
	for _, line := range strings.Split(unified, "\n") {
		if strings.HasPrefix(line, sectionPrefix) {
			annotation := strings.TrimPrefix(line, sectionPrefix)
			paths = append(paths, annotation[:strings.Index(annotation, " (")])
		}
	}
	return paths
}

func skipWhenPermissionsIgnored(testingHandle *testing.T) {
	testingHandle.Helper()
	if os.Geteuid() == 0 {
		testingHandle.Skip("permission bits are not enforced for root")
	}
}

func scenarioProject(testingHandle *testing.T) string {
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"src/main.py":           "print('hi')\n",
		"node_modules/lib/x.js": "module.exports = 1\n",
		"notes.md":              "# Notes\n\n\n",
		"image.png":             "not really a png",
	})
	return rootDirectory
}

func TestUnifyScenario(testingHandle *testing.T) {
	rootDirectory := scenarioProject(testingHandle)
	unifier := &commands.Unifier{Rules: defaultRules(), GeneratedAt: fixedGenerationTime}

	unified, summary := runUnifier(testingHandle, unifier, rootDirectory)

	paths := sectionPaths(unified)
	expectedPaths := []string{"notes.md", "src/main.py"}
	if strings.Join(paths, ",") != strings.Join(expectedPaths, ",") {
		testingHandle.Fatalf("unexpected sections: got %v want %v", paths, expectedPaths)
	}
	if summary.FilesProcessed != 2 || summary.FilesFailed != 0 || summary.DirectoriesSkipped != 1 {
		testingHandle.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(unified, "File: notes.md (extension: .md)\n"+output.DelimiterLine+"\n\n# Notes\n\n") {
		testingHandle.Fatalf("notes section malformed or trailing newlines not normalized:\n%s", unified)
	}
	if strings.Contains(unified, "module.exports") {
		testingHandle.Fatalf("excluded directory content leaked into unified output")
	}
	absoluteRoot, _ := filepath.Abs(rootDirectory)
	if !strings.HasPrefix(unified, "Repository: "+absoluteRoot+"\nGenerated: 2024-03-05 10:30:00\n") {
		testingHandle.Fatalf("unexpected header:\n%s", unified)
	}
	if !strings.Contains(unified, "Files processed: 2\nFiles failed: 0\nDirectories skipped: 1\n") {
		testingHandle.Fatalf("summary block missing counters:\n%s", unified)
	}
}

func TestTreeScenario(testingHandle *testing.T) {
	rootDirectory := scenarioProject(testingHandle)
	treeBuilder := &commands.TreeBuilder{Rules: defaultRules(), GeneratedAt: fixedGenerationTime}

	var buffer bytes.Buffer
	rootNode, treeError := treeBuilder.WriteTree(rootDirectory, &buffer)
	if treeError != nil {
		testingHandle.Fatalf("WriteTree error: %v", treeError)
	}
	rootName := filepath.Base(rootDirectory)
	expected := "Project: " + rootName + "\n" +
		"Generated: 2024-03-05 10:30:00\n\n" +
		rootName + "/\n" +
		"├── src/\n" +
		"│   └── main.py\n" +
		"└── notes.md\n"
	if buffer.String() != expected {
		testingHandle.Fatalf("unexpected tree:\n%s\nwant:\n%s", buffer.String(), expected)
	}
	if rootNode.LeafCount() != 2 {
		testingHandle.Fatalf("expected 2 leaves, got %d", rootNode.LeafCount())
	}
}

func TestLeafCountMatchesProcessedFiles(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"a/b/c/deep.go":     "package c\n",
		"a/readme.md":       "x",
		"a/empty/skip.bin":  "ignored",
		"dist/bundle.js":    "ignored",
		"web/app.min.js":    "ignored",
		"web/app.js":        "ok",
		".github/ci.yml":    "ignored by .git prefix",
		"top.txt":           "top",
		"package-lock.json": "{}",
	})
	configuredRules := defaultRules()

	_, summary := runUnifier(testingHandle, &commands.Unifier{Rules: configuredRules}, rootDirectory)
	rootNode, treeError := (&commands.TreeBuilder{Rules: configuredRules}).BuildTree(rootDirectory)
	if treeError != nil {
		testingHandle.Fatalf("BuildTree error: %v", treeError)
	}
	if summary.FilesProcessed != 4 {
		testingHandle.Fatalf("expected 4 processed files, got %+v", summary)
	}
	if rootNode.LeafCount() != summary.FilesProcessed {
		testingHandle.Fatalf("leaf count %d does not match processed files %d", rootNode.LeafCount(), summary.FilesProcessed)
	}
	for _, child := range rootNode.Children {
		if child.Name == "web" {
			for _, webChild := range child.Children {
				if webChild.Name == "app.min.js" {
					testingHandle.Fatalf("multi-dot excluded extension rendered in tree")
				}
			}
		}
		if child.Name == ".github" || child.Name == "dist" {
			testingHandle.Fatalf("excluded directory %s rendered in tree", child.Name)
		}
	}
}

func TestEmptyProject(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()

	unified, summary := runUnifier(testingHandle, &commands.Unifier{Rules: defaultRules()}, rootDirectory)
	if len(sectionPaths(unified)) != 0 {
		testingHandle.Fatalf("expected no sections:\n%s", unified)
	}
	if summary.FilesProcessed != 0 || !strings.Contains(unified, "Files processed: 0\n") {
		testingHandle.Fatalf("expected zero processed files:\n%s", unified)
	}

	var buffer bytes.Buffer
	if _, treeError := (&commands.TreeBuilder{Rules: defaultRules()}).WriteTree(rootDirectory, &buffer); treeError != nil {
		testingHandle.Fatalf("WriteTree error: %v", treeError)
	}
	if !strings.HasSuffix(buffer.String(), "\n\n"+filepath.Base(rootDirectory)+"/\n") {
		testingHandle.Fatalf("expected lone root line:\n%s", buffer.String())
	}
}

func TestTokenTotalReportedWhenCountingFindsNothing(testingHandle *testing.T) {
	counter, model, counterError := tokenizer.NewCounter(tokenizer.Config{})
	if counterError != nil {
		testingHandle.Fatalf("NewCounter error: %v", counterError)
	}
	unifier := &commands.Unifier{Rules: defaultRules(), TokenCounter: counter, TokenModel: model}

	unified, summary := runUnifier(testingHandle, unifier, testingHandle.TempDir())
	if !summary.TokensCounted || summary.TotalTokens != 0 {
		testingHandle.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.HasSuffix(unified, "Total tokens: 0 (model: "+model+")\n") {
		testingHandle.Fatalf("expected a zero token total:\n%s", unified)
	}
}

func TestOrdering(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"b.md":       "b",
		"a.md":       "a",
		"A.md":       "A",
		"Zeta/z.go":  "package z\n",
		"alpha/y.go": "package y\n",
	})
	configuredRules := defaultRules()

	unified, _ := runUnifier(testingHandle, &commands.Unifier{Rules: configuredRules}, rootDirectory)
	expectedSections := []string{"A.md", "a.md", "b.md", "Zeta/z.go", "alpha/y.go"}
	if strings.Join(sectionPaths(unified), ",") != strings.Join(expectedSections, ",") {
		testingHandle.Fatalf("unexpected unified order: %v", sectionPaths(unified))
	}

	rootNode, _ := (&commands.TreeBuilder{Rules: configuredRules}).BuildTree(rootDirectory)
	var names []string
	for _, child := range rootNode.Children {
		names = append(names, child.Name)
	}
	expectedTree := []string{"alpha", "Zeta", "A.md", "a.md", "b.md"}
	if strings.Join(names, ",") != strings.Join(expectedTree, ",") {
		testingHandle.Fatalf("unexpected tree order: got %v want %v", names, expectedTree)
	}
}

func TestIdempotentOutput(testingHandle *testing.T) {
	rootDirectory := scenarioProject(testingHandle)
	unifier := &commands.Unifier{Rules: defaultRules(), GeneratedAt: fixedGenerationTime}

	first, _ := runUnifier(testingHandle, unifier, rootDirectory)
	second, _ := runUnifier(testingHandle, unifier, rootDirectory)
	if first != second {
		testingHandle.Fatalf("unified output differs between runs")
	}
}

func TestBinaryAndUndecodableContent(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"blob.txt":   "abc\x00def",
		"latin1.txt": "caf\xe9",
	})

	unified, summary := runUnifier(testingHandle, &commands.Unifier{Rules: defaultRules()}, rootDirectory)
	if !strings.Contains(unified, "[skipped blob.txt: binary content]") {
		testingHandle.Fatalf("missing binary note:\n%s", unified)
	}
	if !strings.Contains(unified, "caf\ufffd") {
		testingHandle.Fatalf("expected replacement character for invalid byte:\n%s", unified)
	}
	if summary.FilesProcessed != 1 || summary.FilesFailed != 1 {
		testingHandle.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestUnreadableFileIsRecordedInline(testingHandle *testing.T) {
	skipWhenPermissionsIgnored(testingHandle)
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"locked.py": "secret",
		"open.py":   "visible",
	})
	lockedPath := filepath.Join(rootDirectory, "locked.py")
	if chmodError := os.Chmod(lockedPath, 0o000); chmodError != nil {
		testingHandle.Fatalf("chmod: %v", chmodError)
	}
	testingHandle.Cleanup(func() { _ = os.Chmod(lockedPath, 0o644) })

	unified, summary := runUnifier(testingHandle, &commands.Unifier{Rules: defaultRules()}, rootDirectory)
	if !strings.Contains(unified, "[error reading locked.py: ") {
		testingHandle.Fatalf("missing read error note:\n%s", unified)
	}
	if summary.FilesProcessed != 1 || summary.FilesFailed != 1 {
		testingHandle.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestUnreadableDirectory(testingHandle *testing.T) {
	skipWhenPermissionsIgnored(testingHandle)
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"sealed/inner.go": "package inner\n",
		"main.go":         "package main\n",
	})
	sealedPath := filepath.Join(rootDirectory, "sealed")
	if chmodError := os.Chmod(sealedPath, 0o000); chmodError != nil {
		testingHandle.Fatalf("chmod: %v", chmodError)
	}
	testingHandle.Cleanup(func() { _ = os.Chmod(sealedPath, 0o755) })

	unified, summary := runUnifier(testingHandle, &commands.Unifier{Rules: defaultRules()}, rootDirectory)
	if !strings.Contains(unified, "[error listing directory sealed: ") || summary.DirectoriesSkipped != 1 {
		testingHandle.Fatalf("missing directory error note (summary %+v):\n%s", summary, unified)
	}

	var buffer bytes.Buffer
	if _, treeError := (&commands.TreeBuilder{Rules: defaultRules()}).WriteTree(rootDirectory, &buffer); treeError != nil {
		testingHandle.Fatalf("WriteTree error: %v", treeError)
	}
	if !strings.Contains(buffer.String(), "├── sealed/\n│   └── [error: ") {
		testingHandle.Fatalf("missing tree error marker:\n%s", buffer.String())
	}
	if !strings.Contains(buffer.String(), "└── main.go\n") {
		testingHandle.Fatalf("rendering did not continue after error:\n%s", buffer.String())
	}
}

func TestSkipPathsExcludeOutputDirectory(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeProjectFiles(testingHandle, rootDirectory, map[string]string{
		"unified_output/old_unified.txt": "previous run",
		"main.go":                        "package main\n",
	})
	skipPaths := []string{filepath.Join(rootDirectory, "unified_output")}

	unified, summary := runUnifier(testingHandle, &commands.Unifier{Rules: defaultRules(), SkipPaths: skipPaths}, rootDirectory)
	if strings.Contains(unified, "previous run") || summary.FilesProcessed != 1 {
		testingHandle.Fatalf("output directory was traversed (summary %+v)", summary)
	}
}

func TestWriteArtifacts(testingHandle *testing.T) {
	rootDirectory := scenarioProject(testingHandle)
	outputDirectory := testingHandle.TempDir()
	unifiedPath := filepath.Join(outputDirectory, output.UnifiedArtifactName("project", ""))
	treePath := filepath.Join(outputDirectory, output.TreeArtifactName("project", ""))

	summary, unifyError := (&commands.Unifier{Rules: defaultRules()}).WriteUnifiedArtifact(rootDirectory, unifiedPath)
	if unifyError != nil {
		testingHandle.Fatalf("WriteUnifiedArtifact error: %v", unifyError)
	}
	if _, treeError := (&commands.TreeBuilder{Rules: defaultRules()}).WriteTreeArtifact(rootDirectory, treePath); treeError != nil {
		testingHandle.Fatalf("WriteTreeArtifact error: %v", treeError)
	}
	unifiedBytes, readError := os.ReadFile(unifiedPath)
	if readError != nil {
		testingHandle.Fatalf("read unified artifact: %v", readError)
	}
	if len(sectionPaths(string(unifiedBytes))) != summary.FilesProcessed {
		testingHandle.Fatalf("artifact sections do not match summary %+v", summary)
	}
	if _, statError := os.Stat(treePath); statError != nil {
		testingHandle.Fatalf("tree artifact missing: %v", statError)
	}
}

func TestWriteUnifiedArtifactCreateFailure(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	missingDirectoryPath := filepath.Join(rootDirectory, "missing", "out.txt")
	if _, unifyError := (&commands.Unifier{Rules: defaultRules()}).WriteUnifiedArtifact(rootDirectory, missingDirectoryPath); unifyError == nil {
		testingHandle.Fatalf("expected error when artifact cannot be created")
	}
}
