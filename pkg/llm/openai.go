package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
)

// OpenAIClient implements an advisor model client for OpenAI-compatible APIs.
type OpenAIClient struct {
	config     types.LLMModelConfig
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(config types.LLMModelConfig) *OpenAIClient {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = constants.DefaultTimeout * time.Second
	}

	return &OpenAIClient{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: getOrDefault(config.APIBase, constants.DefaultOpenAIBase),
		apiKey:  config.APIKey,
	}
}

// Generate generates text from a single user prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (*types.LLMResponse, error) {
	messages := []types.LLMMessage{
		{Role: "user", Content: prompt},
	}

	systemMessage := getOrDefault(c.config.SystemMessage, constants.DefaultSystemMessage)

	return c.GenerateWithSystemMessage(ctx, systemMessage, messages)
}

// GenerateWithSystemMessage generates text using a system message and conversational context.
func (c *OpenAIClient) GenerateWithSystemMessage(ctx context.Context, systemMessage string, messages []types.LLMMessage) (*types.LLMResponse, error) {
	allMessages := make([]types.LLMMessage, 0, len(messages)+1)
	allMessages = append(allMessages, types.LLMMessage{Role: "system", Content: systemMessage})
	allMessages = append(allMessages, messages...)

	request := types.LLMRequest{
		Model:       c.config.Name,
		Messages:    allMessages,
		Temperature: getOrDefaultFloat64(c.config.Temperature, constants.DefaultTemperature),
		TopP:        getOrDefaultFloat64(c.config.TopP, constants.DefaultTopP),
		MaxTokens:   getOrDefaultInt(c.config.MaxTokens, constants.DefaultMaxTokens),
	}

	startTime := time.Now()

	maxRetries := getOrDefaultInt(c.config.Retries, constants.DefaultLLMRetries)
	retryDelay := time.Duration(getOrDefaultInt(c.config.RetryDelay, constants.DefaultLLMDelay)) * time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter to retry delay
			jitter := time.Duration(float64(retryDelay) * (0.5 + 0.5*float64(attempt%2)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}
		}

		response, err := c.makeRequest(ctx, request)
		if err == nil {
			response.Duration = time.Since(startTime)
			return response, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Don't retry on certain HTTP status codes
		if httpErr, ok := err.(*HTTPError); ok {
			if httpErr.StatusCode == 400 || httpErr.StatusCode == 401 || httpErr.StatusCode == 403 {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// makeRequest makes a single HTTP request to the chat completions endpoint.
func (c *OpenAIClient) makeRequest(ctx context.Context, request types.LLMRequest) (*types.LLMResponse, error) {
	requestMap := map[string]interface{}{
		"model":       request.Model,
		"messages":    request.Messages,
		"max_tokens":  request.MaxTokens,
		"temperature": request.Temperature,
		"top_p":       request.TopP,
	}

	if c.config.RandomSeed > 0 {
		requestMap["seed"] = c.config.RandomSeed
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(requestMap); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("User-Agent", constants.Name+"/"+constants.Version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var openAIResponse OpenAIResponse
	if err := json.Unmarshal(respBody, &openAIResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(openAIResponse.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &types.LLMResponse{
		Content: openAIResponse.Choices[0].Message.Content,
		Model:   openAIResponse.Model,
		Usage: types.TokenUsage{
			PromptTokens:     openAIResponse.Usage.PromptTokens,
			CompletionTokens: openAIResponse.Usage.CompletionTokens,
			TotalTokens:      openAIResponse.Usage.TotalTokens,
		},
	}, nil
}

// OpenAIResponse represents the OpenAI API response structure.
type OpenAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// HTTPError represents an HTTP error from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func getOrDefaultInt(value, defaultValue int) int {
	if value == 0 {
		return defaultValue
	}
	return value
}

func getOrDefaultFloat64(value, defaultValue float64) float64 {
	if value == 0 {
		return defaultValue
	}
	return value
}
