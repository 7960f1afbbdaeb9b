// Package llm provides the generation client abstraction, one implementation
// per provider, and the factory that selects among them with a one-shot
// fallback chain.
package llm

import (
	"context"
	"fmt"

	"github.com/commitlm/commitlm/internal/config"
)

// SamplingParams carries the generation parameters resolved for one request.
type SamplingParams struct {
	MaxOutputTokens int
	Temperature     float64
}

// Client is the capability interface shared by every provider. Local
// implementations amortize model loading across calls within a process; remote
// implementations perform one network call per invocation.
type Client interface {
	GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error)
	GenerateDocumentation(ctx context.Context, diff string, params SamplingParams) (string, error)
	ProviderName() string
}

// GenerationRequest describes one pipeline run. Constructed per call and
// consumed exactly once.
type GenerationRequest struct {
	Task config.Task
	Diff string
}

// GenerationResult carries the generated text together with the provider and
// model that actually served the request, which may differ from the requested
// ones when fallback or out-of-memory degradation triggered.
type GenerationResult struct {
	Text            string
	Provider        string
	Model           string
	FellBackToLocal bool
}

// GenerationFailure wraps the primary provider error and, when a local fallback
// was attempted, the fallback error as well. It is fatal to the generation call
// but absorbed by the hook layer.
type GenerationFailure struct {
	PrimaryProvider  string
	PrimaryError     error
	FallbackProvider string
	FallbackError    error
}

// Error implements the error interface.
func (generationFailure *GenerationFailure) Error() string {
	if generationFailure.FallbackError != nil {
		return fmt.Sprintf(
			"generation failed: %s: %v; local fallback via %s also failed: %v",
			generationFailure.PrimaryProvider, generationFailure.PrimaryError,
			generationFailure.FallbackProvider, generationFailure.FallbackError,
		)
	}
	return fmt.Sprintf("generation failed: %s: %v", generationFailure.PrimaryProvider, generationFailure.PrimaryError)
}

// Unwrap exposes both underlying causes to errors.Is and errors.As.
func (generationFailure *GenerationFailure) Unwrap() []error {
	causes := []error{generationFailure.PrimaryError}
	if generationFailure.FallbackError != nil {
		causes = append(causes, generationFailure.FallbackError)
	}
	return causes
}

// ResourceExhaustion reports out-of-memory during local model load or
// generation. It triggers the one-step model-degradation retry before becoming
// a GenerationFailure.
type ResourceExhaustion struct {
	ModelID string
	Cause   error
}

// Error implements the error interface.
func (resourceExhaustion *ResourceExhaustion) Error() string {
	return fmt.Sprintf("out of memory while running model %s: %v", resourceExhaustion.ModelID, resourceExhaustion.Cause)
}

// Unwrap exposes the underlying cause.
func (resourceExhaustion *ResourceExhaustion) Unwrap() error {
	return resourceExhaustion.Cause
}
