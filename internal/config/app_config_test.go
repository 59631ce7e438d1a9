package config

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/temirov/unify/internal/utils"
)

func TestLoadApplicationConfiguration(testingHandle *testing.T) {
	testCases := []struct {
		name          string
		globalContent string
		localContent  string
		explicitName  string
		verify        func(*testing.T, ApplicationConfiguration)
	}{
		{
			name: "no files yields empty configuration",
			verify: func(testingHandle *testing.T, configuration ApplicationConfiguration) {
				if !reflect.DeepEqual(configuration, ApplicationConfiguration{}) {
					testingHandle.Fatalf("expected empty configuration, got %+v", configuration)
				}
			},
		},
		{
			name:          "global only",
			globalContent: "output:\n  directory: global_out\n  tree: false\ntokens:\n  model: gpt-4\n",
			verify: func(testingHandle *testing.T, configuration ApplicationConfiguration) {
				if configuration.Output.Directory != "global_out" {
					testingHandle.Fatalf("unexpected directory %q", configuration.Output.Directory)
				}
				if BoolOrDefault(configuration.Output.Tree, true) {
					testingHandle.Fatalf("expected tree disabled")
				}
				if configuration.Tokens.Model != "gpt-4" {
					testingHandle.Fatalf("unexpected model %q", configuration.Tokens.Model)
				}
			},
		},
		{
			name:          "local overrides global",
			globalContent: "output:\n  directory: global_out\n  tree: false\nrules:\n  exclude_directories: [vendor]\n",
			localContent:  "output:\n  tree: true\nrules:\n  include_extensions: [.go, .md]\n  use_gitignore: true\nclipboard: true\n",
			verify: func(testingHandle *testing.T, configuration ApplicationConfiguration) {
				if configuration.Output.Directory != "global_out" {
					testingHandle.Fatalf("expected global directory to survive, got %q", configuration.Output.Directory)
				}
				if !BoolOrDefault(configuration.Output.Tree, false) {
					testingHandle.Fatalf("expected local tree override")
				}
				if !reflect.DeepEqual(configuration.Rules.ExcludeDirectories, []string{"vendor"}) {
					testingHandle.Fatalf("unexpected exclude directories %v", configuration.Rules.ExcludeDirectories)
				}
				if !reflect.DeepEqual(configuration.Rules.IncludeExtensions, []string{".go", ".md"}) {
					testingHandle.Fatalf("unexpected include extensions %v", configuration.Rules.IncludeExtensions)
				}
				if !BoolOrDefault(configuration.Rules.UseGitignore, false) || !BoolOrDefault(configuration.Clipboard, false) {
					testingHandle.Fatalf("expected gitignore and clipboard enabled: %+v", configuration)
				}
			},
		},
		{
			name:         "explicit file replaces local lookup",
			localContent: "output:\n  directory: local_out\n",
			explicitName: "custom.yaml",
			verify: func(testingHandle *testing.T, configuration ApplicationConfiguration) {
				if configuration.Output.Directory != "custom_out" {
					testingHandle.Fatalf("expected explicit file directory, got %q", configuration.Output.Directory)
				}
			},
		},
	}

	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(subTest *testing.T) {
			homeDirectory := subTest.TempDir()
			workingDirectory := subTest.TempDir()
			subTest.Setenv("HOME", homeDirectory)
			subTest.Setenv("USERPROFILE", homeDirectory)

			if testCase.globalContent != "" {
				writeTestFile(subTest, filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), testCase.globalContent)
			}
			if testCase.localContent != "" {
				writeTestFile(subTest, filepath.Join(workingDirectory, utils.ConfigFileName), testCase.localContent)
			}
			if testCase.explicitName != "" {
				writeTestFile(subTest, filepath.Join(workingDirectory, testCase.explicitName), "output:\n  directory: custom_out\n")
			}

			configuration, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory, ExplicitFilePath: testCase.explicitName})
			if loadError != nil {
				subTest.Fatalf("LoadApplicationConfiguration failed: %v", loadError)
			}
			testCase.verify(subTest, configuration)
		})
	}
}

func TestLoadApplicationConfigurationMissingExplicitFile(testingHandle *testing.T) {
	testingHandle.Setenv("HOME", testingHandle.TempDir())
	_, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: testingHandle.TempDir(), ExplicitFilePath: "absent.yaml"})
	if loadError == nil {
		testingHandle.Fatalf("expected error for missing explicit configuration file")
	}
}

func TestLoadApplicationConfigurationInvalidYAML(testingHandle *testing.T) {
	homeDirectory := testingHandle.TempDir()
	workingDirectory := testingHandle.TempDir()
	testingHandle.Setenv("HOME", homeDirectory)
	writeTestFile(testingHandle, filepath.Join(workingDirectory, utils.ConfigFileName), "output: [unterminated\n")
	if _, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory}); loadError == nil {
		testingHandle.Fatalf("expected decode error")
	}
}
