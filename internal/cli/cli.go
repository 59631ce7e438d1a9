// Package cli provides the command line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/unify/internal/commands"
	"github.com/temirov/unify/internal/config"
	"github.com/temirov/unify/internal/output"
	"github.com/temirov/unify/internal/rules"
	"github.com/temirov/unify/internal/services/clipboard"
	"github.com/temirov/unify/internal/tokenizer"
	"github.com/temirov/unify/internal/types"
	"github.com/temirov/unify/internal/utils"
)

const (
	rootUse              = "unify <root>"
	rootShortDescription = "concatenate a project into a single text file"
	rootLongDescription  = `unify walks a project directory, filters files by extension and exclusion rules,
and writes their contents into one unified text file together with a tree of the
project structure. Defaults come from ~/.unify/config.yaml and ./.unify.yaml;
flags override both.`
	rootUsageExample = `  # Unify the current project into ./unified_output
  unify .

  # Only write the tree, with a stable file name
  unify --content false --timestamp=false ./service

  # Add an extension and skip a directory
  unify --ext .proto -e generated ./api`

	initUse              = "init"
	initShortDescription = "write the default configuration file"
	initLongDescription  = `Write the default configuration to ./.unify.yaml, or to ~/.unify/config.yaml with --global.`

	versionTemplate = "unify version: {{.Version}}\n"

	outputDirectoryFlagName   = "output-dir"
	treeFlagName              = "tree"
	contentFlagName           = "content"
	timestampFlagName         = "timestamp"
	includeExtensionFlagName  = "ext"
	excludeDirectoryFlagName  = "exclude-dir"
	excludeDirectoryShorthand = "e"
	excludeFileFlagName       = "exclude-file"
	excludeExtensionFlagName  = "exclude-ext"
	gitignoreFlagName         = "gitignore"
	tokensFlagName            = "tokens"
	modelFlagName             = "model"
	copyFlagName              = "copy"
	configFlagName            = "config"
	globalFlagName            = "global"
	forceFlagName             = "force"

	outputDirectoryFlagDescription   = "directory receiving the generated artifacts"
	treeFlagDescription              = "write the tree artifact"
	contentFlagDescription           = "write the unified artifact"
	timestampFlagDescription         = "include a timestamp in artifact file names"
	includeExtensionFlagDescription  = "additional file extension to include (repeatable)"
	excludeDirectoryFlagDescription  = "additional directory name to exclude (repeatable)"
	excludeFileFlagDescription       = "additional file name to exclude (repeatable)"
	excludeExtensionFlagDescription  = "additional file extension to exclude (repeatable)"
	gitignoreFlagDescription         = "honour .gitignore and .ignore patterns"
	tokensFlagDescription            = "count tokens per file and in total"
	modelFlagDescription             = "tokenizer model used for token counting"
	copyFlagDescription              = "copy the unified artifact to the clipboard"
	configFlagDescription            = "explicit configuration file"
	globalFlagDescription            = "write the global configuration instead of the local one"
	forceFlagDescription             = "overwrite an existing configuration file"

	defaultOutputDirectory = "unified_output"
	defaultTokenizerModel  = "gpt-4o"

	errorMissingRootMessage      = "missing root path"
	errorTooManyArgumentsFormat  = "expected exactly one root path, got %d"
	errorRootMissingFormat       = "root path %q does not exist"
	errorRootStatFormat          = "stat root path %q: %w"
	errorRootNotDirectoryFormat  = "root path %q is not a directory"
	errorAbsolutePathFormat      = "resolving absolute path for %q: %w"
	errorWorkingDirectoryFormat  = "determine working directory: %w"
	errorLoadConfigurationFormat = "load configuration: %w"
	errorLoadIgnoreFormat        = "load ignore patterns: %w"
	errorCreateOutputDirFormat   = "create output directory %s: %w"
	errorTokenizerFormat         = "initialize token counter: %w"
	errorNothingToWriteMessage   = "both --tree and --content are disabled; nothing to write"

	unifiedArtifactMessageFormat = "Unified file: %s\n"
	treeArtifactMessageFormat    = "Tree file: %s\n"
	configWrittenMessageFormat   = "Configuration written to %s\n"

	logMessageRunStarted       = "unifying project"
	logMessageRunCompleted     = "unified artifact written"
	logMessageTreeCompleted    = "tree artifact written"
	logMessageClipboardFailed  = "failed to copy unified artifact to clipboard"
	logMessageClipboardCopied  = "copied unified artifact to clipboard"
	logMessageTokensEnabled    = "token counting enabled"
	logFieldRoot               = "root"
	logFieldEncoding           = "encoding"
	logFieldModel              = "model"
	logFieldPath               = "path"
	logFieldFilesProcessed     = "files_processed"
	logFieldFilesFailed        = "files_failed"
	logFieldDirectoriesSkipped = "directories_skipped"
	logFieldLeaves             = "leaves"
)

// UsageError marks failures caused by invalid invocation. Execute prints the
// command usage before returning it.
type UsageError struct {
	Err error
}

func (usageError *UsageError) Error() string {
	return usageError.Err.Error()
}

func (usageError *UsageError) Unwrap() error {
	return usageError.Err
}

// Dependencies are the collaborators of the root command. Zero values select
// the production implementations.
type Dependencies struct {
	Logger           *zap.Logger
	Clipboard        clipboard.Copier
	Now              func() time.Time
	WorkingDirectory string
}

func (dependencies Dependencies) withDefaults() Dependencies {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Clipboard == nil {
		dependencies.Clipboard = clipboard.NewService()
	}
	if dependencies.Now == nil {
		dependencies.Now = time.Now
	}
	return dependencies
}

// Execute runs the unify application against the process arguments.
func Execute(logger *zap.Logger) error {
	rootCommand := NewRootCommand(Dependencies{Logger: logger})
	return ExecuteCommand(rootCommand, os.Args[1:])
}

// ExecuteCommand runs rootCommand with arguments, printing usage to the error
// stream when the invocation itself is invalid.
func ExecuteCommand(rootCommand *cobra.Command, arguments []string) error {
	if arguments == nil {
		arguments = []string{}
	}
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	executedCommand, executionError := rootCommand.ExecuteC()
	if executionError == nil {
		return nil
	}
	var usageError *UsageError
	if errors.As(executionError, &usageError) {
		if executedCommand == nil {
			executedCommand = rootCommand
		}
		fmt.Fprintln(executedCommand.ErrOrStderr(), executedCommand.UsageString())
	}
	return executionError
}

// runOptions collects flag values for the root command.
type runOptions struct {
	outputDirectory    string
	writeTree          bool
	writeContent       bool
	includeTimestamp   bool
	includeExtensions  []string
	excludeDirectories []string
	excludeFiles       []string
	excludeExtensions  []string
	useGitignore       bool
	tokensEnabled      bool
	tokenModel         string
	copyToClipboard    bool
	configPath         string
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	dependencies = dependencies.withDefaults()
	var options runOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Version:       utils.GetApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          validateRootArgument,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runUnify(command, dependencies, options, arguments[0])
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.SetFlagErrorFunc(func(command *cobra.Command, flagError error) error {
		return &UsageError{Err: flagError}
	})
	rootCommand.CompletionOptions.DisableDefaultCmd = true

	flagSet := rootCommand.Flags()
	flagSet.StringVar(&options.outputDirectory, outputDirectoryFlagName, defaultOutputDirectory, outputDirectoryFlagDescription)
	registerBooleanFlag(flagSet, &options.writeTree, treeFlagName, true, treeFlagDescription)
	registerBooleanFlag(flagSet, &options.writeContent, contentFlagName, true, contentFlagDescription)
	registerBooleanFlag(flagSet, &options.includeTimestamp, timestampFlagName, true, timestampFlagDescription)
	flagSet.StringArrayVar(&options.includeExtensions, includeExtensionFlagName, nil, includeExtensionFlagDescription)
	flagSet.StringArrayVarP(&options.excludeDirectories, excludeDirectoryFlagName, excludeDirectoryShorthand, nil, excludeDirectoryFlagDescription)
	flagSet.StringArrayVar(&options.excludeFiles, excludeFileFlagName, nil, excludeFileFlagDescription)
	flagSet.StringArrayVar(&options.excludeExtensions, excludeExtensionFlagName, nil, excludeExtensionFlagDescription)
	registerBooleanFlag(flagSet, &options.useGitignore, gitignoreFlagName, false, gitignoreFlagDescription)
	registerBooleanFlag(flagSet, &options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	flagSet.StringVar(&options.tokenModel, modelFlagName, defaultTokenizerModel, modelFlagDescription)
	registerBooleanFlag(flagSet, &options.copyToClipboard, copyFlagName, false, copyFlagDescription)
	flagSet.StringVar(&options.configPath, configFlagName, "", configFlagDescription)

	rootCommand.AddCommand(createInitCommand(dependencies))
	return rootCommand
}

// validateRootArgument requires exactly one existing directory argument.
func validateRootArgument(command *cobra.Command, arguments []string) error {
	switch {
	case len(arguments) == 0:
		return &UsageError{Err: errors.New(errorMissingRootMessage)}
	case len(arguments) > 1:
		return &UsageError{Err: fmt.Errorf(errorTooManyArgumentsFormat, len(arguments))}
	}
	if _, validationError := resolveRootPath(arguments[0]); validationError != nil {
		return &UsageError{Err: validationError}
	}
	return nil
}

// resolveRootPath converts input to a cleaned absolute directory path. Quotes
// surrounding the whole input are removed first.
func resolveRootPath(input string) (types.ValidatedPath, error) {
	input = utils.TrimPathQuotes(input)
	absolutePath, absoluteError := filepath.Abs(input)
	if absoluteError != nil {
		return types.ValidatedPath{}, fmt.Errorf(errorAbsolutePathFormat, input, absoluteError)
	}
	cleanPath := filepath.Clean(absolutePath)
	info, statError := os.Stat(cleanPath)
	if statError != nil {
		if os.IsNotExist(statError) {
			return types.ValidatedPath{}, fmt.Errorf(errorRootMissingFormat, input)
		}
		return types.ValidatedPath{}, fmt.Errorf(errorRootStatFormat, input, statError)
	}
	if !info.IsDir() {
		return types.ValidatedPath{}, fmt.Errorf(errorRootNotDirectoryFormat, input)
	}
	return types.ValidatedPath{AbsolutePath: cleanPath, IsDir: true}, nil
}

// runUnify merges configuration with flags and writes the requested artifacts.
func runUnify(command *cobra.Command, dependencies Dependencies, options runOptions, rootArgument string) error {
	logger := dependencies.Logger
	rootPath, rootError := resolveRootPath(rootArgument)
	if rootError != nil {
		return &UsageError{Err: rootError}
	}

	workingDirectory := dependencies.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if configurationError != nil {
		return fmt.Errorf(errorLoadConfigurationFormat, configurationError)
	}
	settings := resolveSettings(command, options, applicationConfiguration)
	if !settings.writeTree && !settings.writeContent {
		return &UsageError{Err: errors.New(errorNothingToWriteMessage)}
	}

	outputDirectory := settings.outputDirectory
	if !filepath.IsAbs(outputDirectory) {
		outputDirectory = filepath.Join(workingDirectory, outputDirectory)
	}
	if makeDirectoryError := os.MkdirAll(outputDirectory, 0o755); makeDirectoryError != nil {
		return fmt.Errorf(errorCreateOutputDirFormat, outputDirectory, makeDirectoryError)
	}

	runRules, rulesError := buildRules(rootPath.AbsolutePath, settings)
	if rulesError != nil {
		return rulesError
	}

	var tokenCounter tokenizer.Counter
	tokenModel := ""
	if settings.tokensEnabled {
		createdCounter, resolvedModel, counterError := tokenizer.NewCounter(tokenizer.Config{
			Model: settings.tokenModel,
		})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		tokenCounter = createdCounter
		tokenModel = resolvedModel
		logger.Info(logMessageTokensEnabled, zap.String(logFieldEncoding, createdCounter.Name()), zap.String(logFieldModel, resolvedModel))
	}

	generatedAt := dependencies.Now()
	timestamp := ""
	if settings.includeTimestamp {
		timestamp = utils.FormatFileNameTimestamp(generatedAt)
	}
	projectName := filepath.Base(rootPath.AbsolutePath)
	skipPaths := []string{outputDirectory}
	stdout := command.OutOrStdout()

	logger.Info(logMessageRunStarted, zap.String(logFieldRoot, rootPath.AbsolutePath))

	if settings.writeContent {
		unifiedPath := filepath.Join(outputDirectory, output.UnifiedArtifactName(projectName, timestamp))
		unifier := &commands.Unifier{
			Rules:        runRules,
			Logger:       logger,
			TokenCounter: tokenCounter,
			TokenModel:   tokenModel,
			SkipPaths:    skipPaths,
			GeneratedAt:  generatedAt,
		}
		summary, unifyError := unifier.WriteUnifiedArtifact(rootPath.AbsolutePath, unifiedPath)
		if unifyError != nil {
			return unifyError
		}
		logger.Info(logMessageRunCompleted,
			zap.String(logFieldPath, unifiedPath),
			zap.Int(logFieldFilesProcessed, summary.FilesProcessed),
			zap.Int(logFieldFilesFailed, summary.FilesFailed),
			zap.Int(logFieldDirectoriesSkipped, summary.DirectoriesSkipped),
		)
		fmt.Fprintf(stdout, unifiedArtifactMessageFormat, unifiedPath)

		if settings.copyToClipboard {
			copyArtifact(logger, dependencies.Clipboard, unifiedPath)
		}
	}

	if settings.writeTree {
		treePath := filepath.Join(outputDirectory, output.TreeArtifactName(projectName, timestamp))
		treeBuilder := &commands.TreeBuilder{
			Rules:       runRules,
			Logger:      logger,
			SkipPaths:   skipPaths,
			GeneratedAt: generatedAt,
		}
		rootNode, treeError := treeBuilder.WriteTreeArtifact(rootPath.AbsolutePath, treePath)
		if treeError != nil {
			return treeError
		}
		logger.Info(logMessageTreeCompleted, zap.String(logFieldPath, treePath), zap.Int(logFieldLeaves, rootNode.LeafCount()))
		fmt.Fprintf(stdout, treeArtifactMessageFormat, treePath)
	}

	return nil
}

func copyArtifact(logger *zap.Logger, copier clipboard.Copier, artifactPath string) {
	if copyError := clipboard.CopyFile(copier, artifactPath); copyError != nil {
		logger.Warn(logMessageClipboardFailed, zap.Error(copyError))
		return
	}
	logger.Info(logMessageClipboardCopied, zap.String(logFieldPath, artifactPath))
}

// buildRules combines the built-in rule sets, configured replacements, flag
// additions and, when enabled, ignore file patterns.
func buildRules(rootPath string, settings resolvedSettings) (rules.Rules, error) {
	ruleOptions := rules.DefaultOptions()
	ruleOptions.Inclusion.Extensions = replaceOrKeep(ruleOptions.Inclusion.Extensions, settings.configuredRules.IncludeExtensions)
	ruleOptions.Exclusion.Directories = replaceOrKeep(ruleOptions.Exclusion.Directories, settings.configuredRules.ExcludeDirectories)
	ruleOptions.Exclusion.Files = replaceOrKeep(ruleOptions.Exclusion.Files, settings.configuredRules.ExcludeFiles)
	ruleOptions.Exclusion.Extensions = replaceOrKeep(ruleOptions.Exclusion.Extensions, settings.configuredRules.ExcludeExtensions)

	ruleOptions.Inclusion.Extensions = append(ruleOptions.Inclusion.Extensions, settings.includeExtensions...)
	ruleOptions.Exclusion.Directories = append(ruleOptions.Exclusion.Directories, settings.excludeDirectories...)
	ruleOptions.Exclusion.Files = append(ruleOptions.Exclusion.Files, settings.excludeFiles...)
	ruleOptions.Exclusion.Extensions = append(ruleOptions.Exclusion.Extensions, settings.excludeExtensions...)

	if !settings.useGitignore {
		return rules.New(ruleOptions), nil
	}
	baseRules := rules.New(ruleOptions)
	ignorePatterns, ignoreError := config.LoadRecursiveIgnorePatterns(rootPath, baseRules.ExcludeDirectory)
	if ignoreError != nil {
		return rules.Rules{}, fmt.Errorf(errorLoadIgnoreFormat, ignoreError)
	}
	ruleOptions.IgnorePatterns = ignorePatterns
	return rules.New(ruleOptions), nil
}

func replaceOrKeep(defaults []string, configured []string) []string {
	if len(configured) == 0 {
		return defaults
	}
	return append([]string(nil), configured...)
}

// resolvedSettings is the outcome of layering flags over configuration files.
type resolvedSettings struct {
	outputDirectory    string
	writeTree          bool
	writeContent       bool
	includeTimestamp   bool
	includeExtensions  []string
	excludeDirectories []string
	excludeFiles       []string
	excludeExtensions  []string
	useGitignore       bool
	tokensEnabled      bool
	tokenModel         string
	copyToClipboard    bool
	configuredRules    config.RulesConfiguration
}

// resolveSettings applies configuration values unless the matching flag was set
// explicitly on the command line.
func resolveSettings(command *cobra.Command, options runOptions, applicationConfiguration config.ApplicationConfiguration) resolvedSettings {
	flagSet := command.Flags()
	changed := func(flagName string) bool {
		flag := flagSet.Lookup(flagName)
		return flag != nil && flag.Changed
	}
	pickBool := func(flagName string, flagValue bool, configured *bool) bool {
		if changed(flagName) {
			return flagValue
		}
		return config.BoolOrDefault(configured, flagValue)
	}
	pickString := func(flagName string, flagValue string, configured string) string {
		if changed(flagName) || configured == "" {
			return flagValue
		}
		return configured
	}

	return resolvedSettings{
		outputDirectory:    pickString(outputDirectoryFlagName, options.outputDirectory, applicationConfiguration.Output.Directory),
		writeTree:          pickBool(treeFlagName, options.writeTree, applicationConfiguration.Output.Tree),
		writeContent:       pickBool(contentFlagName, options.writeContent, applicationConfiguration.Output.Content),
		includeTimestamp:   pickBool(timestampFlagName, options.includeTimestamp, applicationConfiguration.Output.Timestamp),
		includeExtensions:  options.includeExtensions,
		excludeDirectories: options.excludeDirectories,
		excludeFiles:       options.excludeFiles,
		excludeExtensions:  options.excludeExtensions,
		useGitignore:       pickBool(gitignoreFlagName, options.useGitignore, applicationConfiguration.Rules.UseGitignore),
		tokensEnabled:      pickBool(tokensFlagName, options.tokensEnabled, applicationConfiguration.Tokens.Enabled),
		tokenModel:         pickString(modelFlagName, options.tokenModel, applicationConfiguration.Tokens.Model),
		copyToClipboard:    pickBool(copyFlagName, options.copyToClipboard, applicationConfiguration.Clipboard),
		configuredRules:    applicationConfiguration.Rules,
	}
}

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies Dependencies) *cobra.Command {
	var writeGlobal bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: dependencies.WorkingDirectory,
			})
			if initError != nil {
				return initError
			}
			printConfigWritten(command.OutOrStdout(), writtenPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &writeGlobal, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

func printConfigWritten(writer io.Writer, path string) {
	fmt.Fprintf(writer, configWrittenMessageFormat, path)
}
