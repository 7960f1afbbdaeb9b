package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/commitlm/commitlm/internal/config"
)

const (
	anthropicMessagesEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion       = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API. One blocking network
// request per invocation, no internal retry.
type AnthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewAnthropicClient constructs a client for the given provider configuration.
func NewAnthropicClient(providerConfig config.ProviderConfig, model string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     providerConfig.APIKey,
		model:      model,
		endpoint:   anthropicMessagesEndpoint,
		httpClient: &http.Client{},
	}
}

// ProviderName identifies the provider.
func (client *AnthropicClient) ProviderName() string {
	return config.ProviderAnthropic
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateText sends the prompt and returns the generated text.
func (client *AnthropicClient) GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	return client.complete(ctx, "", prompt, params)
}

// GenerateDocumentation renders the documentation prompt for the diff and
// returns the generated markdown.
func (client *AnthropicClient) GenerateDocumentation(ctx context.Context, diff string, params SamplingParams) (string, error) {
	return client.complete(ctx, documentationSystemPrompt, diffSectionHeader+"\n"+diff, params)
}

func (client *AnthropicClient) complete(ctx context.Context, systemPrompt string, userPrompt string, params SamplingParams) (string, error) {
	requestBody := anthropicRequest{
		Model:       client.model,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
		MaxTokens:   params.MaxOutputTokens,
		Temperature: params.Temperature,
		System:      systemPrompt,
	}
	payload, marshalError := json.Marshal(requestBody)
	if marshalError != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", marshalError)
	}

	httpRequest, requestError := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(payload))
	if requestError != nil {
		return "", fmt.Errorf("create anthropic request: %w", requestError)
	}
	httpRequest.Header.Set("x-api-key", client.apiKey)
	httpRequest.Header.Set("anthropic-version", anthropicAPIVersion)
	httpRequest.Header.Set("content-type", "application/json")

	httpResponse, callError := client.httpClient.Do(httpRequest)
	if callError != nil {
		return "", fmt.Errorf("anthropic request failed: %w", callError)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResponse.Body)
		return "", fmt.Errorf("anthropic API error (status %d): %s", httpResponse.StatusCode, string(responseBody))
	}

	var decodedResponse anthropicResponse
	if decodeError := json.NewDecoder(httpResponse.Body).Decode(&decodedResponse); decodeError != nil {
		return "", fmt.Errorf("decode anthropic response: %w", decodeError)
	}
	if len(decodedResponse.Content) == 0 {
		return "", fmt.Errorf("empty anthropic response content")
	}
	return stripCodeFences(decodedResponse.Content[0].Text), nil
}

var _ Client = (*AnthropicClient)(nil)
