package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/commitlm/commitlm/internal/utils"
)

// InitValues captures the answers gathered by the init command.
type InitValues struct {
	Provider        string
	Model           string
	APIKey          string
	OutputDirectory string
	FallbackToLocal bool
}

// InitOptions controls where and how configuration initialization behaves.
type InitOptions struct {
	WorkingDirectory string
	Force            bool
	Values           InitValues
}

// InitializeConfiguration writes a fresh configuration file for the selected
// provider and returns the destination path. An existing file is only replaced
// when Force is set.
func InitializeConfiguration(options InitOptions) (string, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf("determine working directory for configuration: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	destinationPath := filepath.Join(workingDirectory, utils.ConfigFileName)

	if _, statError := os.Stat(destinationPath); statError == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(statError) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, statError)
	}

	values := options.Values
	if values.Provider == "" {
		values.Provider = DefaultProvider
	}
	if !IsKnownProvider(values.Provider) {
		return "", &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", values.Provider)}
	}
	if values.Model == "" {
		values.Model = defaultModelForProvider(values.Provider)
	}
	if values.OutputDirectory == "" {
		values.OutputDirectory = DefaultOutputDirectory
	}

	writer := viper.New()
	writer.SetConfigFile(destinationPath)
	writer.Set("provider", values.Provider)
	writer.Set("model", values.Model)
	writer.Set("output_dir", values.OutputDirectory)
	writer.Set("fallback_to_local", values.FallbackToLocal)
	writer.Set("hook_timeout_seconds", DefaultHookTimeoutSeconds)
	writer.Set(values.Provider+".model", values.Model)
	if IsRemoteProvider(values.Provider) && values.APIKey != "" {
		writer.Set(values.Provider+".api_key", values.APIKey)
	}
	if values.Provider == ProviderHuggingFace {
		writer.Set("huggingface.device", DefaultDevicePreference)
		writer.Set("huggingface.memory_optimization", true)
		writer.Set("huggingface.enable_yarn", false)
	}

	if writeError := writer.WriteConfigAs(destinationPath); writeError != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, writeError)
	}
	return destinationPath, nil
}

func defaultModelForProvider(providerName string) string {
	switch providerName {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return DefaultLocalModel
	}
}
