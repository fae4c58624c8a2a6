package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Completion is the raw result of one generation call.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Client is the text-generation capability. It may fail on transport, auth
// or rate-limit errors; the facade owns retries.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
}

// HTTPClient calls an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewHTTPClient(apiKey, baseURL, model string) *HTTPClient {
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		// Per-attempt deadlines come from the caller's context.
		client: &http.Client{},
	}
}

func (c *HTTPClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": 0.2,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("generation request failed: status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Completion{}, err
	}
	if len(result.Choices) == 0 {
		return Completion{}, fmt.Errorf("generation response contained no choices")
	}

	model := result.Model
	if model == "" {
		model = c.model
	}

	return Completion{
		Text:       result.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}
