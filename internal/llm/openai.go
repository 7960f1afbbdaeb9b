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

const openAIChatCompletionsEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewOpenAIClient constructs a client for the given provider configuration.
func NewOpenAIClient(providerConfig config.ProviderConfig, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     providerConfig.APIKey,
		model:      model,
		endpoint:   openAIChatCompletionsEndpoint,
		httpClient: &http.Client{},
	}
}

// ProviderName identifies the provider.
func (client *OpenAIClient) ProviderName() string {
	return config.ProviderOpenAI
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         float64         `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateText sends the prompt and returns the generated text.
func (client *OpenAIClient) GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	return client.complete(ctx, "", prompt, params)
}

// GenerateDocumentation renders the documentation prompt for the diff and
// returns the generated markdown.
func (client *OpenAIClient) GenerateDocumentation(ctx context.Context, diff string, params SamplingParams) (string, error) {
	return client.complete(ctx, documentationSystemPrompt, diffSectionHeader+"\n"+diff, params)
}

func (client *OpenAIClient) complete(ctx context.Context, systemPrompt string, userPrompt string, params SamplingParams) (string, error) {
	var messages []openAIMessage
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userPrompt})

	payload, marshalError := json.Marshal(openAIRequest{
		Model:               client.model,
		Messages:            messages,
		MaxCompletionTokens: params.MaxOutputTokens,
		Temperature:         params.Temperature,
	})
	if marshalError != nil {
		return "", fmt.Errorf("marshal openai request: %w", marshalError)
	}

	httpRequest, requestError := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(payload))
	if requestError != nil {
		return "", fmt.Errorf("create openai request: %w", requestError)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+client.apiKey)

	httpResponse, callError := client.httpClient.Do(httpRequest)
	if callError != nil {
		return "", fmt.Errorf("openai request failed: %w", callError)
	}
	defer httpResponse.Body.Close()

	responseBody, readError := io.ReadAll(httpResponse.Body)
	if readError != nil {
		return "", fmt.Errorf("read openai response: %w", readError)
	}

	var decodedResponse openAIResponse
	if decodeError := json.Unmarshal(responseBody, &decodedResponse); decodeError != nil {
		return "", fmt.Errorf("decode openai response (status %d): %s", httpResponse.StatusCode, string(responseBody))
	}
	if decodedResponse.Error != nil {
		return "", fmt.Errorf("openai API error: %s (%s)", decodedResponse.Error.Message, decodedResponse.Error.Type)
	}
	if httpResponse.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error (status %d): %s", httpResponse.StatusCode, string(responseBody))
	}
	if len(decodedResponse.Choices) == 0 {
		return "", fmt.Errorf("empty openai response choices")
	}
	return stripCodeFences(decodedResponse.Choices[0].Message.Content), nil
}

var _ Client = (*OpenAIClient)(nil)
