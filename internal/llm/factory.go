package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/commitlm/commitlm/internal/config"
)

// Factory is the single dispatch point across provider clients. It resolves
// task-specific overrides, constructs the matching client, and owns the
// fallback chain: at most one local retry per request, never deeper.
type Factory struct {
	settings config.Settings
	logger   *zap.Logger

	// buildClient is replaceable in tests.
	buildClient func(selection config.TaskSelection) (Client, error)
}

// NewFactory constructs a Factory over resolved settings.
func NewFactory(settings config.Settings, logger *zap.Logger) *Factory {
	factory := &Factory{settings: settings, logger: logger}
	factory.buildClient = factory.clientForSelection
	return factory
}

// ClientFor resolves the task's provider selection and constructs the client.
// Task-specific override settings win over the global selection.
func (factory *Factory) ClientFor(task config.Task) (Client, error) {
	return factory.buildClient(factory.settings.ForTask(task))
}

func (factory *Factory) clientForSelection(selection config.TaskSelection) (Client, error) {
	providerConfig, lookupError := factory.settings.ProviderConfigFor(selection.Provider)
	if lookupError != nil {
		return nil, lookupError
	}
	model := selection.Model
	if model == "" {
		model = providerConfig.Model
	}
	switch selection.Provider {
	case config.ProviderHuggingFace:
		return NewLocalClient(providerConfig, model, factory.logger)
	case config.ProviderGemini:
		return NewGeminiClient(providerConfig, model), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(providerConfig, model), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(providerConfig, model), nil
	default:
		return nil, &config.ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", selection.Provider)}
	}
}

// Generate runs one request through the selected client. When the primary
// client is remote, fallback_to_local is enabled, and the call fails, the
// configured local client is constructed and the request re-issued exactly
// once; the result is flagged accordingly. A double failure surfaces one
// GenerationFailure carrying both causes.
func (factory *Factory) Generate(ctx context.Context, request GenerationRequest) (GenerationResult, error) {
	selection := factory.settings.ForTask(request.Task)
	if selection.Model == "" {
		if providerConfig, lookupError := factory.settings.ProviderConfigFor(selection.Provider); lookupError == nil {
			selection.Model = providerConfig.Model
		}
	}
	primaryClient, constructionError := factory.buildClient(selection)
	if constructionError != nil {
		return GenerationResult{}, constructionError
	}

	samplingParams, paramsError := factory.samplingParamsFor(selection.Provider)
	if paramsError != nil {
		return GenerationResult{}, paramsError
	}

	generatedText, primaryError := invokeClient(ctx, primaryClient, request, samplingParams)
	if primaryError == nil {
		return GenerationResult{
			Text:     generatedText,
			Provider: primaryClient.ProviderName(),
			Model:    servedModel(primaryClient, selection.Model),
		}, nil
	}

	if !factory.settings.FallbackToLocal || !config.IsRemoteProvider(selection.Provider) {
		return GenerationResult{}, &GenerationFailure{
			PrimaryProvider: selection.Provider,
			PrimaryError:    primaryError,
		}
	}

	if factory.logger != nil {
		factory.logger.Warn("primary provider failed, falling back to local model",
			zap.String("provider", selection.Provider), zap.Error(primaryError))
	}

	localSelection := config.TaskSelection{
		Provider: config.ProviderHuggingFace,
		Model:    factory.settings.HuggingFace.Model,
	}
	localClient, localConstructionError := factory.buildClient(localSelection)
	if localConstructionError != nil {
		return GenerationResult{}, &GenerationFailure{
			PrimaryProvider:  selection.Provider,
			PrimaryError:     primaryError,
			FallbackProvider: config.ProviderHuggingFace,
			FallbackError:    localConstructionError,
		}
	}

	localParams, localParamsError := factory.samplingParamsFor(config.ProviderHuggingFace)
	if localParamsError != nil {
		return GenerationResult{}, &GenerationFailure{
			PrimaryProvider:  selection.Provider,
			PrimaryError:     primaryError,
			FallbackProvider: config.ProviderHuggingFace,
			FallbackError:    localParamsError,
		}
	}

	fallbackText, fallbackError := invokeClient(ctx, localClient, request, localParams)
	if fallbackError != nil {
		return GenerationResult{}, &GenerationFailure{
			PrimaryProvider:  selection.Provider,
			PrimaryError:     primaryError,
			FallbackProvider: config.ProviderHuggingFace,
			FallbackError:    fallbackError,
		}
	}

	return GenerationResult{
		Text:            fallbackText,
		Provider:        localClient.ProviderName(),
		Model:           servedModel(localClient, localSelection.Model),
		FellBackToLocal: true,
	}, nil
}

func (factory *Factory) samplingParamsFor(providerName string) (SamplingParams, error) {
	providerConfig, lookupError := factory.settings.ProviderConfigFor(providerName)
	if lookupError != nil {
		return SamplingParams{}, lookupError
	}
	return SamplingParams{
		MaxOutputTokens: providerConfig.MaxOutputTokens,
		Temperature:     providerConfig.Temperature,
	}, nil
}

func invokeClient(ctx context.Context, client Client, request GenerationRequest, params SamplingParams) (string, error) {
	switch request.Task {
	case config.TaskDocGeneration:
		return client.GenerateDocumentation(ctx, request.Diff, params)
	default:
		return client.GenerateText(ctx, CommitMessagePrompt(request.Diff), params)
	}
}

// servedModel prefers the model a degradation-aware client actually used.
func servedModel(client Client, requestedModel string) string {
	type modelReporter interface {
		ServedModel() string
	}
	if reporter, reportsModel := client.(modelReporter); reportsModel {
		return reporter.ServedModel()
	}
	return requestedModel
}
