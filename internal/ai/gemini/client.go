package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"talenthub/internal/ai"
)

const defaultModel = "gemini-2.0-flash"

// Client wraps the Google GenAI client to provide simple prompt-based interactions.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a new Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{client: client, modelName: model}, nil
}

// GenerateContent sends the prompt to Gemini and returns the concatenated textual response.
// Errors are classified into the ai.Failure taxonomy so callers can decide on fallback.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyError(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ai.NewFailure(ai.MalformedResponse, errors.New("gemini api returned empty response"))
	}

	return output, nil
}

// Model 返回当前使用的模型名。
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

// classifyError 将底层错误归入失败分类。
// 429/配额类错误立即降级且不重试，其余视为临时错误。
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			return ai.NewFailure(ai.RateLimited, err)
		}
		return ai.NewFailure(ai.TransientUnavailable, err)
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "429") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "rate limit") {
		return ai.NewFailure(ai.RateLimited, err)
	}

	return ai.NewFailure(ai.TransientUnavailable, err)
}
