package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/commitlm/commitlm/internal/utils"
)

// LoadOptions controls how persisted configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// FileSettings mirrors the persisted configuration file. Optional fields use
// pointers so that an absent key never overwrites a configured value during merge.
type FileSettings struct {
	Provider           string               `mapstructure:"provider"`
	Model              string               `mapstructure:"model"`
	OutputDirectory    string               `mapstructure:"output_dir"`
	FallbackToLocal    *bool                `mapstructure:"fallback_to_local"`
	HookTimeoutSeconds *int                 `mapstructure:"hook_timeout_seconds"`
	HuggingFace        ProviderFileSettings `mapstructure:"huggingface"`
	Gemini             ProviderFileSettings `mapstructure:"gemini"`
	Anthropic          ProviderFileSettings `mapstructure:"anthropic"`
	OpenAI             ProviderFileSettings `mapstructure:"openai"`
	CommitMessage      *TaskOverride        `mapstructure:"commit_message"`
	DocGeneration      *TaskOverride        `mapstructure:"doc_generation"`
}

// ProviderFileSettings is the per-provider block of the persisted file.
type ProviderFileSettings struct {
	Model              string   `mapstructure:"model"`
	APIKey             string   `mapstructure:"api_key"`
	MaxTokens          *int     `mapstructure:"max_tokens"`
	Temperature        *float64 `mapstructure:"temperature"`
	Device             string   `mapstructure:"device"`
	MemoryOptimization *bool    `mapstructure:"memory_optimization"`
	EnableYarn         *bool    `mapstructure:"enable_yarn"`
	ExtendedContext    *int     `mapstructure:"extended_context"`
}

// TaskOverride names a provider and model pair for one task.
type TaskOverride struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// LoadFileSettings loads configuration from the global file and the repository-local
// file, overlaying local values onto global ones. Missing files are not errors.
func LoadFileSettings(options LoadOptions) (FileSettings, string, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return FileSettings{}, "", fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	var merged FileSettings

	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, "config.yaml")
		globalSettings, loadError := loadFileSettingsFromPath(globalPath)
		if loadError != nil {
			return FileSettings{}, "", loadError
		}
		merged = merged.Merge(globalSettings)
	}

	localPath := options.ExplicitFilePath
	if localPath == "" {
		localPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	} else if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(workingDirectory, localPath)
	}
	localSettings, loadError := loadFileSettingsFromPath(localPath)
	if loadError != nil {
		return FileSettings{}, "", loadError
	}
	merged = merged.Merge(localSettings)

	return merged, localPath, nil
}

func loadFileSettingsFromPath(path string) (FileSettings, error) {
	if path == "" {
		return FileSettings{}, nil
	}
	fileInformation, statError := os.Stat(path)
	if statError != nil {
		if os.IsNotExist(statError) {
			return FileSettings{}, nil
		}
		return FileSettings{}, fmt.Errorf("stat configuration %s: %w", path, statError)
	}
	if fileInformation.IsDir() {
		return FileSettings{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return FileSettings{}, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	var settings FileSettings
	if decodeError := reader.Unmarshal(&settings); decodeError != nil {
		return FileSettings{}, fmt.Errorf("decode configuration from %s: %w", path, decodeError)
	}
	return settings, nil
}

// Merge overlays override onto the receiver returning the combined settings.
func (settings FileSettings) Merge(override FileSettings) FileSettings {
	result := settings
	if override.Provider != "" {
		result.Provider = override.Provider
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if override.FallbackToLocal != nil {
		result.FallbackToLocal = cloneBool(override.FallbackToLocal)
	}
	if override.HookTimeoutSeconds != nil {
		result.HookTimeoutSeconds = cloneInt(override.HookTimeoutSeconds)
	}
	result.HuggingFace = result.HuggingFace.merge(override.HuggingFace)
	result.Gemini = result.Gemini.merge(override.Gemini)
	result.Anthropic = result.Anthropic.merge(override.Anthropic)
	result.OpenAI = result.OpenAI.merge(override.OpenAI)
	if override.CommitMessage != nil {
		result.CommitMessage = cloneTaskOverride(override.CommitMessage)
	}
	if override.DocGeneration != nil {
		result.DocGeneration = cloneTaskOverride(override.DocGeneration)
	}
	return result
}

func (settings ProviderFileSettings) merge(override ProviderFileSettings) ProviderFileSettings {
	result := settings
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.APIKey != "" {
		result.APIKey = override.APIKey
	}
	if override.MaxTokens != nil {
		result.MaxTokens = cloneInt(override.MaxTokens)
	}
	if override.Temperature != nil {
		result.Temperature = cloneFloat(override.Temperature)
	}
	if override.Device != "" {
		result.Device = override.Device
	}
	if override.MemoryOptimization != nil {
		result.MemoryOptimization = cloneBool(override.MemoryOptimization)
	}
	if override.EnableYarn != nil {
		result.EnableYarn = cloneBool(override.EnableYarn)
	}
	if override.ExtendedContext != nil {
		result.ExtendedContext = cloneInt(override.ExtendedContext)
	}
	return result
}

// GetConfigurationKey reads one dotted key from the persisted file at path.
func GetConfigurationKey(path string, key string) (interface{}, error) {
	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return nil, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	if !reader.IsSet(key) {
		return nil, fmt.Errorf("configuration key %q not found", key)
	}
	return reader.Get(key), nil
}

// GetAllConfigurationValues reads every persisted setting as a nested map.
func GetAllConfigurationValues(path string) (map[string]interface{}, error) {
	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return nil, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	return reader.AllSettings(), nil
}

// SetConfigurationKey writes one dotted key into the persisted file at path,
// coercing the textual value to bool, int, or float when it parses as one.
func SetConfigurationKey(path string, key string, value string) error {
	writer := viper.New()
	writer.SetConfigFile(path)
	if readError := writer.ReadInConfig(); readError != nil {
		return fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	writer.Set(key, coerceConfigurationValue(value))
	if writeError := writer.WriteConfig(); writeError != nil {
		return fmt.Errorf("write configuration to %s: %w", path, writeError)
	}
	return nil
}

func coerceConfigurationValue(value string) interface{} {
	trimmedValue := strings.TrimSpace(value)
	switch strings.ToLower(trimmedValue) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	if integerValue, parseError := strconv.Atoi(trimmedValue); parseError == nil {
		return integerValue
	}
	if floatValue, parseError := strconv.ParseFloat(trimmedValue, 64); parseError == nil {
		return floatValue
	}
	return value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneTaskOverride(value *TaskOverride) *TaskOverride {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
