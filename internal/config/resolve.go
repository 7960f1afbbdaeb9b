package config

import (
	"fmt"
	"time"
)

// CommandLineOverrides carries explicit flag values. Empty fields mean the flag
// was not provided and therefore never overwrite a configured value.
type CommandLineOverrides struct {
	Provider        string
	Model           string
	OutputDirectory string
}

// Environment is the subset of process environment variables the resolver reads.
// Only API keys are sourced from the environment.
type Environment map[string]string

// Resolve merges CLI overrides, persisted file values, environment API keys, and
// built-in defaults into one immutable Settings value. Precedence, highest first:
// CLI > file > environment > defaults, applied per field. Resolve is a pure
// function of its inputs; it performs no I/O.
func Resolve(overrides CommandLineOverrides, persisted FileSettings, environment Environment) (Settings, error) {
	settings := defaultSettings()

	applyEnvironmentLayer(&settings, environment)
	applyFileLayer(&settings, persisted)
	applyOverrideLayer(&settings, overrides)

	deriveModels(&settings, overrides, persisted)

	if validationError := validateSettings(settings); validationError != nil {
		return Settings{}, validationError
	}
	return settings, nil
}

func defaultSettings() Settings {
	defaultProviderConfig := func(model string) ProviderConfig {
		return ProviderConfig{
			Model:              model,
			MaxOutputTokens:    DefaultMaxOutputTokens,
			Temperature:        DefaultTemperature,
			Device:             DefaultDevicePreference,
			MemoryOptimization: true,
		}
	}
	return Settings{
		Provider:        DefaultProvider,
		Model:           DefaultLocalModel,
		OutputDirectory: DefaultOutputDirectory,
		FallbackToLocal: false,
		HookTimeout:     DefaultHookTimeoutSeconds * time.Second,
		HuggingFace:     defaultProviderConfig(DefaultLocalModel),
		Gemini:          defaultProviderConfig(DefaultGeminiModel),
		Anthropic:       defaultProviderConfig(DefaultAnthropicModel),
		OpenAI:          defaultProviderConfig(DefaultOpenAIModel),
	}
}

func applyEnvironmentLayer(settings *Settings, environment Environment) {
	if environment == nil {
		return
	}
	if key := environment[GeminiAPIKeyVariable]; key != "" {
		settings.Gemini.APIKey = key
	}
	if key := environment[AnthropicAPIKeyVariable]; key != "" {
		settings.Anthropic.APIKey = key
	}
	if key := environment[OpenAIAPIKeyVariable]; key != "" {
		settings.OpenAI.APIKey = key
	}
}

func applyFileLayer(settings *Settings, persisted FileSettings) {
	if persisted.Provider != "" {
		settings.Provider = persisted.Provider
	}
	if persisted.OutputDirectory != "" {
		settings.OutputDirectory = persisted.OutputDirectory
	}
	if persisted.FallbackToLocal != nil {
		settings.FallbackToLocal = *persisted.FallbackToLocal
	}
	if persisted.HookTimeoutSeconds != nil && *persisted.HookTimeoutSeconds > 0 {
		settings.HookTimeout = time.Duration(*persisted.HookTimeoutSeconds) * time.Second
	}
	applyProviderFileLayer(&settings.HuggingFace, persisted.HuggingFace)
	applyProviderFileLayer(&settings.Gemini, persisted.Gemini)
	applyProviderFileLayer(&settings.Anthropic, persisted.Anthropic)
	applyProviderFileLayer(&settings.OpenAI, persisted.OpenAI)
	if persisted.CommitMessage != nil {
		settings.CommitMessage = &TaskSelection{Provider: persisted.CommitMessage.Provider, Model: persisted.CommitMessage.Model}
	}
	if persisted.DocGeneration != nil {
		settings.DocGeneration = &TaskSelection{Provider: persisted.DocGeneration.Provider, Model: persisted.DocGeneration.Model}
	}
}

func applyProviderFileLayer(target *ProviderConfig, persisted ProviderFileSettings) {
	if persisted.Model != "" {
		target.Model = persisted.Model
	}
	if persisted.APIKey != "" {
		target.APIKey = persisted.APIKey
	}
	if persisted.MaxTokens != nil {
		target.MaxOutputTokens = *persisted.MaxTokens
	}
	if persisted.Temperature != nil {
		target.Temperature = *persisted.Temperature
	}
	if persisted.Device != "" {
		target.Device = persisted.Device
	}
	if persisted.MemoryOptimization != nil {
		target.MemoryOptimization = *persisted.MemoryOptimization
	}
	if persisted.EnableYarn != nil {
		target.EnableYarn = *persisted.EnableYarn
	}
	if persisted.ExtendedContext != nil {
		target.ExtendedContext = *persisted.ExtendedContext
	}
}

func applyOverrideLayer(settings *Settings, overrides CommandLineOverrides) {
	if overrides.Provider != "" {
		settings.Provider = overrides.Provider
	}
	if overrides.OutputDirectory != "" {
		settings.OutputDirectory = overrides.OutputDirectory
	}
}

// deriveModels settles the global model after the provider is final. An explicit
// CLI model wins, then the file's top-level model, then the selected provider's
// configured model. A provider flag discards the file's model only when it
// actually changes the provider; repeating the configured provider keeps the
// configured model.
func deriveModels(settings *Settings, overrides CommandLineOverrides, persisted FileSettings) {
	previousProvider := persisted.Provider
	if previousProvider == "" {
		previousProvider = DefaultProvider
	}
	providerChanged := overrides.Provider != "" && overrides.Provider != previousProvider
	switch {
	case overrides.Model != "":
		settings.Model = overrides.Model
	case persisted.Model != "" && !providerChanged:
		settings.Model = persisted.Model
	default:
		if providerConfig, lookupError := settings.ProviderConfigFor(settings.Provider); lookupError == nil {
			settings.Model = providerConfig.Model
		}
	}
}

func validateSettings(settings Settings) error {
	if !IsKnownProvider(settings.Provider) {
		return &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", settings.Provider)}
	}
	if settings.Model == "" {
		return &ConfigurationError{Field: "model", Reason: "no model selected"}
	}
	if settings.OutputDirectory == "" {
		return &ConfigurationError{Field: "output_dir", Reason: "output directory resolves to empty"}
	}

	selections := []TaskSelection{{Provider: settings.Provider, Model: settings.Model}}
	for _, task := range []Task{TaskCommitMessage, TaskDocGeneration} {
		selections = append(selections, settings.ForTask(task))
	}
	for _, selection := range selections {
		if !IsKnownProvider(selection.Provider) {
			return &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", selection.Provider)}
		}
		if !IsRemoteProvider(selection.Provider) {
			continue
		}
		providerConfig, lookupError := settings.ProviderConfigFor(selection.Provider)
		if lookupError != nil {
			return lookupError
		}
		if providerConfig.APIKey == "" {
			return &ConfigurationError{
				Field:  selection.Provider + ".api_key",
				Reason: fmt.Sprintf("provider %s selected but no API key configured (set it in the config file or the provider's environment variable)", selection.Provider),
			}
		}
	}
	return nil
}

// EnvironmentFromProcess captures the API-key variables from the process environment.
func EnvironmentFromProcess(lookup func(string) (string, bool)) Environment {
	environment := Environment{}
	for _, variableName := range []string{GeminiAPIKeyVariable, AnthropicAPIKeyVariable, OpenAIAPIKeyVariable} {
		if value, present := lookup(variableName); present {
			environment[variableName] = value
		}
	}
	return environment
}
