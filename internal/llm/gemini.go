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
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiEndpointFormat = "%s/models/%s:generateContent?key=%s"
)

// GeminiClient calls the Google Generative Language API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient constructs a client for the given provider configuration.
func NewGeminiClient(providerConfig config.ProviderConfig, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:     providerConfig.APIKey,
		model:      model,
		baseURL:    geminiDefaultBaseURL,
		httpClient: &http.Client{},
	}
}

// ProviderName identifies the provider.
func (client *GeminiClient) ProviderName() string {
	return config.ProviderGemini
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends the prompt and returns the generated text.
func (client *GeminiClient) GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	return client.complete(ctx, "", prompt, params)
}

// GenerateDocumentation renders the documentation prompt for the diff and
// returns the generated markdown.
func (client *GeminiClient) GenerateDocumentation(ctx context.Context, diff string, params SamplingParams) (string, error) {
	return client.complete(ctx, documentationSystemPrompt, diffSectionHeader+"\n"+diff, params)
}

func (client *GeminiClient) complete(ctx context.Context, systemPrompt string, userPrompt string, params SamplingParams) (string, error) {
	requestBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     params.Temperature,
			MaxOutputTokens: params.MaxOutputTokens,
		},
	}
	if systemPrompt != "" {
		requestBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	payload, marshalError := json.Marshal(requestBody)
	if marshalError != nil {
		return "", fmt.Errorf("marshal gemini request: %w", marshalError)
	}

	endpoint := fmt.Sprintf(geminiEndpointFormat, client.baseURL, client.model, client.apiKey)
	httpRequest, requestError := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if requestError != nil {
		return "", fmt.Errorf("create gemini request: %w", requestError)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, callError := client.httpClient.Do(httpRequest)
	if callError != nil {
		return "", fmt.Errorf("gemini request failed: %w", callError)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResponse.Body)
		return "", fmt.Errorf("gemini API error (status %d): %s", httpResponse.StatusCode, string(responseBody))
	}

	var decodedResponse geminiResponse
	if decodeError := json.NewDecoder(httpResponse.Body).Decode(&decodedResponse); decodeError != nil {
		return "", fmt.Errorf("decode gemini response: %w", decodeError)
	}
	if len(decodedResponse.Candidates) == 0 || len(decodedResponse.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty gemini response")
	}
	return stripCodeFences(decodedResponse.Candidates[0].Content.Parts[0].Text), nil
}

var _ Client = (*GeminiClient)(nil)
