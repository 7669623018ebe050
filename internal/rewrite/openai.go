package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"newsrelay/internal/content"
	"newsrelay/internal/ingest"
)

// OpenAI is an Engine backed by an OpenAI-compatible chat completions API.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  ingest.HTTPClient
}

// NewOpenAI creates an engine for the given endpoint, key, and model.
func NewOpenAI(baseURL, apiKey, model string, client ingest.HTTPClient) *OpenAI {
	return &OpenAI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Rewrite sends the text to the chat completions endpoint and returns
// the cleaned result. An empty completion is an error.
func (o *OpenAI) Rewrite(ctx context.Context, req Request) (string, error) {
	text := content.Clean(req.Text)
	if text == "" {
		return "", fmt.Errorf("empty text")
	}

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(req.Style, req.Language, req.Extra)},
			{Role: "user", Content: UserPrompt(text)},
		},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5*1024*1024)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	result := content.Clean(parsed.Choices[0].Message.Content)
	if result == "" {
		return "", fmt.Errorf("empty completion")
	}
	return result, nil
}
