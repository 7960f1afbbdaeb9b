// Package config defines the settings model and resolves layered configuration
// sources into one immutable Settings value per invocation.
package config

import (
	"fmt"
	"time"
)

// Task identifies which generation task a pipeline run serves.
type Task string

const (
	// TaskCommitMessage generates a conventional commit message from a staged diff.
	TaskCommitMessage Task = "commit_message"
	// TaskDocGeneration generates a documentation artifact from a commit diff.
	TaskDocGeneration Task = "doc_generation"
)

// Provider identifiers recognized by the configuration and the client factory.
const (
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
	ProviderAnthropic   = "anthropic"
	ProviderOpenAI      = "openai"
)

// Built-in defaults applied when no other source supplies a value.
const (
	DefaultProvider           = ProviderHuggingFace
	DefaultLocalModel         = "qwen2.5-coder-1.5b"
	DefaultGeminiModel        = "gemini-1.5-flash"
	DefaultAnthropicModel     = "claude-3-haiku-20240307"
	DefaultOpenAIModel        = "gpt-4o"
	DefaultOutputDirectory    = "docs"
	DefaultMaxOutputTokens    = 1024
	DefaultTemperature        = 0.3
	DefaultDevicePreference   = "auto"
	DefaultHookTimeoutSeconds = 120
)

// Environment variable names consulted for remote provider credentials.
const (
	GeminiAPIKeyVariable    = "GEMINI_API_KEY"
	AnthropicAPIKeyVariable = "ANTHROPIC_API_KEY"
	OpenAIAPIKeyVariable    = "OPENAI_API_KEY"
)

// KnownProviders lists every provider identifier the factory can construct.
func KnownProviders() []string {
	return []string{ProviderHuggingFace, ProviderGemini, ProviderAnthropic, ProviderOpenAI}
}

// IsKnownProvider reports whether the identifier names a supported provider.
func IsKnownProvider(name string) bool {
	switch name {
	case ProviderHuggingFace, ProviderGemini, ProviderAnthropic, ProviderOpenAI:
		return true
	default:
		return false
	}
}

// IsRemoteProvider reports whether the provider performs a network call per request.
func IsRemoteProvider(name string) bool {
	return IsKnownProvider(name) && name != ProviderHuggingFace
}

// ProviderConfig carries the provider-specific portion of resolved settings.
// Device preference, memory optimization, and YaRN fields only affect the local
// provider; enabling YaRN outside the Qwen family is a no-op rather than an error.
type ProviderConfig struct {
	Model              string
	APIKey             string
	MaxOutputTokens    int
	Temperature        float64
	Device             string
	MemoryOptimization bool
	EnableYarn         bool
	ExtendedContext    int
}

// TaskSelection names the provider and model serving one task.
type TaskSelection struct {
	Provider string
	Model    string
}

// Settings is the fully resolved configuration for one pipeline run.
// It is constructed once by Resolve and never mutated afterwards.
type Settings struct {
	Provider        string
	Model           string
	OutputDirectory string
	FallbackToLocal bool
	HookTimeout     time.Duration
	HuggingFace     ProviderConfig
	Gemini          ProviderConfig
	Anthropic       ProviderConfig
	OpenAI          ProviderConfig
	CommitMessage   *TaskSelection
	DocGeneration   *TaskSelection
}

// ProviderConfigFor returns the configuration block for the named provider.
func (settings Settings) ProviderConfigFor(providerName string) (ProviderConfig, error) {
	switch providerName {
	case ProviderHuggingFace:
		return settings.HuggingFace, nil
	case ProviderGemini:
		return settings.Gemini, nil
	case ProviderAnthropic:
		return settings.Anthropic, nil
	case ProviderOpenAI:
		return settings.OpenAI, nil
	default:
		return ProviderConfig{}, &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", providerName)}
	}
}

// ForTask returns the provider and model serving the given task. A task without
// an override uses the global selection.
func (settings Settings) ForTask(task Task) TaskSelection {
	var override *TaskSelection
	switch task {
	case TaskCommitMessage:
		override = settings.CommitMessage
	case TaskDocGeneration:
		override = settings.DocGeneration
	}
	selection := TaskSelection{Provider: settings.Provider, Model: settings.Model}
	if override == nil {
		return selection
	}
	if override.Provider != "" {
		selection.Provider = override.Provider
	}
	if override.Model != "" {
		selection.Model = override.Model
	}
	return selection
}

// ConfigurationError reports a missing or contradictory setting. It is fatal to
// the invoking command but never to a git commit: the hook layer absorbs it.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (configurationError *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", configurationError.Field, configurationError.Reason)
}
