// Package llm runs the profanity and compliance audits through an
// OpenAI-compatible chat completion backend with structured JSON output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Client is the narrow completion surface the detector needs. Complete
// sends one prompt and returns the model's raw JSON text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements Client against any OpenAI-compatible endpoint,
// including Groq's compatibility layer.
type OpenAIClient struct {
	client      oai.Client
	model       string
	temperature float64
}

// ClientConfig configures an OpenAIClient.
type ClientConfig struct {
	APIKey      string
	BaseURL     string        // empty uses the default OpenAI endpoint
	Model       string        // e.g. "llama-3.1-8b-instant"
	Temperature float64
	Timeout     time.Duration // per-request HTTP timeout, 0 for none
}

// NewOpenAIClient constructs a client for structured audit completions.
func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key must not be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}))
	}

	return &OpenAIClient{
		client:      oai.NewClient(reqOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete implements Client. The request forces JSON-object output so the
// response parses directly into the analysis structs.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if c.temperature != 0 {
		params.Temperature = param.NewOpt(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// IsRateLimitError reports whether err is an HTTP 429 from the backend.
func IsRateLimitError(err error) bool {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	// Groq's compatibility layer occasionally surfaces the condition as a
	// plain transport error.
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
