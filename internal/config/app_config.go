package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/unify/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the defaults read from configuration files.
// Pointer fields distinguish "unset" from an explicit false.
type ApplicationConfiguration struct {
	Rules     RulesConfiguration  `mapstructure:"rules"`
	Output    OutputConfiguration `mapstructure:"output"`
	Tokens    TokenConfiguration  `mapstructure:"tokens"`
	Clipboard *bool               `mapstructure:"clipboard"`
}

// RulesConfiguration replaces the built-in inclusion and exclusion sets when a list is non-empty.
type RulesConfiguration struct {
	IncludeExtensions  []string `mapstructure:"include_extensions"`
	ExcludeDirectories []string `mapstructure:"exclude_directories"`
	ExcludeFiles       []string `mapstructure:"exclude_files"`
	ExcludeExtensions  []string `mapstructure:"exclude_extensions"`
	UseGitignore       *bool    `mapstructure:"use_gitignore"`
}

// OutputConfiguration controls where and which artifacts are written.
type OutputConfiguration struct {
	Directory string `mapstructure:"directory"`
	Tree      *bool  `mapstructure:"tree"`
	Content   *bool  `mapstructure:"content"`
	Timestamp *bool  `mapstructure:"timestamp"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration loads configuration from the global file and then
// overlays the local (or explicitly named) file.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName)
}

// loadConfigurationFromPath reads one YAML file. A missing file is an empty
// configuration unless required is set.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Rules = result.Rules.merge(override.Rules)
	result.Output = result.Output.merge(override.Output)
	result.Tokens = result.Tokens.merge(override.Tokens)
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (config RulesConfiguration) merge(override RulesConfiguration) RulesConfiguration {
	result := config
	if len(override.IncludeExtensions) > 0 {
		result.IncludeExtensions = utils.DeduplicatePatterns(override.IncludeExtensions)
	}
	if len(override.ExcludeDirectories) > 0 {
		result.ExcludeDirectories = utils.DeduplicatePatterns(override.ExcludeDirectories)
	}
	if len(override.ExcludeFiles) > 0 {
		result.ExcludeFiles = utils.DeduplicatePatterns(override.ExcludeFiles)
	}
	if len(override.ExcludeExtensions) > 0 {
		result.ExcludeExtensions = utils.DeduplicatePatterns(override.ExcludeExtensions)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	return result
}

func (config OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := config
	if override.Directory != "" {
		result.Directory = override.Directory
	}
	if override.Tree != nil {
		result.Tree = cloneBool(override.Tree)
	}
	if override.Content != nil {
		result.Content = cloneBool(override.Content)
	}
	if override.Timestamp != nil {
		result.Timestamp = cloneBool(override.Timestamp)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

// BoolOrDefault dereferences value, returning fallback when it is unset.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
