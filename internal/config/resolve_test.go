package config

import (
	"errors"
	"testing"
	"time"
)

// TestResolveDefaults verifies the built-in defaults when no source supplies values.
func TestResolveDefaults(testingHandle *testing.T) {
	settings, resolveError := Resolve(CommandLineOverrides{}, FileSettings{}, Environment{})
	if resolveError != nil {
		testingHandle.Fatalf("Resolve failed: %v", resolveError)
	}
	if settings.Provider != ProviderHuggingFace {
		testingHandle.Errorf("unexpected provider: got %q want %q", settings.Provider, ProviderHuggingFace)
	}
	if settings.Model != DefaultLocalModel {
		testingHandle.Errorf("unexpected model: got %q want %q", settings.Model, DefaultLocalModel)
	}
	if settings.OutputDirectory != DefaultOutputDirectory {
		testingHandle.Errorf("unexpected output directory: got %q want %q", settings.OutputDirectory, DefaultOutputDirectory)
	}
	if settings.HookTimeout != DefaultHookTimeoutSeconds*time.Second {
		testingHandle.Errorf("unexpected hook timeout: got %v", settings.HookTimeout)
	}
	if settings.FallbackToLocal {
		testingHandle.Error("fallback should default to disabled")
	}
	if !settings.HuggingFace.MemoryOptimization {
		testingHandle.Error("memory optimization should default to enabled")
	}
}

// TestResolvePrecedence verifies the per-field layering: CLI over file over
// environment over defaults.
func TestResolvePrecedence(testingHandle *testing.T) {
	const (
		fileOutputDirectory = "file-docs"
		flagOutputDirectory = "flag-docs"
		fileAPIKey          = "file-key"
		environmentAPIKey   = "environment-key"
		flagModel           = "gemini-2.0-pro"
	)
	fallbackEnabled := true
	persisted := FileSettings{
		Provider:        ProviderGemini,
		OutputDirectory: fileOutputDirectory,
		FallbackToLocal: &fallbackEnabled,
		Gemini:          ProviderFileSettings{APIKey: fileAPIKey},
	}
	environment := Environment{GeminiAPIKeyVariable: environmentAPIKey}

	testCases := []struct {
		name                    string
		overrides               CommandLineOverrides
		expectedProvider        string
		expectedModel           string
		expectedOutputDirectory string
	}{
		{
			name:                    "file layer wins over defaults",
			overrides:               CommandLineOverrides{},
			expectedProvider:        ProviderGemini,
			expectedModel:           DefaultGeminiModel,
			expectedOutputDirectory: fileOutputDirectory,
		},
		{
			name:                    "flags win over file",
			overrides:               CommandLineOverrides{Model: flagModel, OutputDirectory: flagOutputDirectory},
			expectedProvider:        ProviderGemini,
			expectedModel:           flagModel,
			expectedOutputDirectory: flagOutputDirectory,
		},
		{
			name:                    "provider flag rederives the model",
			overrides:               CommandLineOverrides{Provider: ProviderHuggingFace},
			expectedProvider:        ProviderHuggingFace,
			expectedModel:           DefaultLocalModel,
			expectedOutputDirectory: fileOutputDirectory,
		},
	}

	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			settings, resolveError := Resolve(testCase.overrides, persisted, environment)
			if resolveError != nil {
				testingHandle.Fatalf("Resolve failed: %v", resolveError)
			}
			if settings.Provider != testCase.expectedProvider {
				testingHandle.Errorf("unexpected provider: got %q want %q", settings.Provider, testCase.expectedProvider)
			}
			if settings.Model != testCase.expectedModel {
				testingHandle.Errorf("unexpected model: got %q want %q", settings.Model, testCase.expectedModel)
			}
			if settings.OutputDirectory != testCase.expectedOutputDirectory {
				testingHandle.Errorf("unexpected output directory: got %q want %q", settings.OutputDirectory, testCase.expectedOutputDirectory)
			}
			if settings.Gemini.APIKey != fileAPIKey {
				testingHandle.Errorf("file API key should win over environment: got %q", settings.Gemini.APIKey)
			}
		})
	}
}

// TestResolveProviderFlagKeepsModelWhenUnchanged verifies repeating the
// configured provider on the command line keeps the file's top-level model;
// only an actual provider switch rederives it.
func TestResolveProviderFlagKeepsModelWhenUnchanged(testingHandle *testing.T) {
	const fileModel = "gemini-2.5-pro-custom"
	persisted := FileSettings{
		Provider: ProviderGemini,
		Model:    fileModel,
		Gemini:   ProviderFileSettings{APIKey: "file-key"},
	}

	settings, resolveError := Resolve(CommandLineOverrides{Provider: ProviderGemini}, persisted, Environment{})
	if resolveError != nil {
		testingHandle.Fatalf("Resolve failed: %v", resolveError)
	}
	if settings.Model != fileModel {
		testingHandle.Errorf("unchanged provider should keep the file model: got %q want %q", settings.Model, fileModel)
	}

	switched, resolveError := Resolve(CommandLineOverrides{Provider: ProviderHuggingFace}, persisted, Environment{})
	if resolveError != nil {
		testingHandle.Fatalf("Resolve failed: %v", resolveError)
	}
	if switched.Model != DefaultLocalModel {
		testingHandle.Errorf("provider switch should rederive the model: got %q want %q", switched.Model, DefaultLocalModel)
	}
}

// TestResolveEnvironmentSuppliesAPIKeysOnly verifies the environment layer is
// restricted to credentials.
func TestResolveEnvironmentSuppliesAPIKeysOnly(testingHandle *testing.T) {
	const environmentAPIKey = "environment-key"
	persisted := FileSettings{Provider: ProviderAnthropic}
	environment := Environment{AnthropicAPIKeyVariable: environmentAPIKey}

	settings, resolveError := Resolve(CommandLineOverrides{}, persisted, environment)
	if resolveError != nil {
		testingHandle.Fatalf("Resolve failed: %v", resolveError)
	}
	if settings.Anthropic.APIKey != environmentAPIKey {
		testingHandle.Errorf("environment API key not applied: got %q", settings.Anthropic.APIKey)
	}
	if settings.Model != DefaultAnthropicModel {
		testingHandle.Errorf("unexpected model: got %q want %q", settings.Model, DefaultAnthropicModel)
	}
}

// TestResolveValidation verifies rejection of unusable configurations.
func TestResolveValidation(testingHandle *testing.T) {
	testCases := []struct {
		name          string
		overrides     CommandLineOverrides
		persisted     FileSettings
		environment   Environment
		expectedField string
	}{
		{
			name:          "unknown provider",
			overrides:     CommandLineOverrides{Provider: "ollama"},
			expectedField: "provider",
		},
		{
			name:          "remote provider without api key",
			persisted:     FileSettings{Provider: ProviderOpenAI},
			expectedField: ProviderOpenAI + ".api_key",
		},
		{
			name: "task override to keyless remote provider",
			persisted: FileSettings{
				DocGeneration: &TaskOverride{Provider: ProviderGemini},
			},
			expectedField: ProviderGemini + ".api_key",
		},
	}

	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			_, resolveError := Resolve(testCase.overrides, testCase.persisted, testCase.environment)
			var configurationError *ConfigurationError
			if !errors.As(resolveError, &configurationError) {
				testingHandle.Fatalf("expected ConfigurationError, got %v", resolveError)
			}
			if configurationError.Field != testCase.expectedField {
				testingHandle.Errorf("unexpected field: got %q want %q", configurationError.Field, testCase.expectedField)
			}
		})
	}
}

// TestForTaskOverrides verifies per-task provider and model selection.
func TestForTaskOverrides(testingHandle *testing.T) {
	const overrideModel = "gpt-4o-mini"
	settings := Settings{
		Provider:      ProviderGemini,
		Model:         DefaultGeminiModel,
		DocGeneration: &TaskSelection{Provider: ProviderOpenAI, Model: overrideModel},
	}

	commitSelection := settings.ForTask(TaskCommitMessage)
	if commitSelection.Provider != ProviderGemini || commitSelection.Model != DefaultGeminiModel {
		testingHandle.Errorf("commit task should use the global selection, got %+v", commitSelection)
	}
	documentationSelection := settings.ForTask(TaskDocGeneration)
	if documentationSelection.Provider != ProviderOpenAI || documentationSelection.Model != overrideModel {
		testingHandle.Errorf("documentation task override not applied, got %+v", documentationSelection)
	}
}

// TestEnvironmentFromProcess verifies only the credential variables are captured.
func TestEnvironmentFromProcess(testingHandle *testing.T) {
	values := map[string]string{
		GeminiAPIKeyVariable: "gemini-key",
		"UNRELATED_VARIABLE": "noise",
	}
	environment := EnvironmentFromProcess(func(name string) (string, bool) {
		value, present := values[name]
		return value, present
	})
	if environment[GeminiAPIKeyVariable] != "gemini-key" {
		testingHandle.Errorf("expected gemini key to be captured, got %q", environment[GeminiAPIKeyVariable])
	}
	if _, present := environment["UNRELATED_VARIABLE"]; present {
		testingHandle.Error("unrelated variable should not be captured")
	}
}
