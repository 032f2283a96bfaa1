// Package ai wraps an OpenAI-compatible chat completions endpoint, used to
// summarize notes and meeting transcripts.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("ai: api key not configured")

// APIError is the provider's non-2xx response. Use errors.As to inspect the
// status code.
type APIError = openai.Error

type Client struct {
	apiKey string
	model  string
	chat   openai.Client
}

func New(apiKey, model, baseURL string, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		option.WithMaxRetries(2),
	}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		chat:   openai.NewClient(append(base, opts...)...),
	}
}

// complete sends a single system + user exchange and returns the reply text.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	resp, err := c.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai: response had no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Summarize condenses free text (a note or a transcript) into a short summary.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return c.complete(ctx, summarizePrompt, text)
}

// MatchCategory picks the category from categories that best fits the
// transcript. It returns "" when the model's answer names none of them.
func (c *Client) MatchCategory(ctx context.Context, transcript string, categories []string) (string, error) {
	if len(categories) == 0 || strings.TrimSpace(transcript) == "" {
		return "", nil
	}
	reply, err := c.complete(ctx, BuildCategoryPrompt(categories), transcript)
	if err != nil {
		return "", err
	}
	return matchReply(reply, categories), nil
}

// matchReply maps a free-form reply onto one of the allowed categories,
// preferring an exact case-insensitive match.
func matchReply(reply string, categories []string) string {
	reply = strings.Trim(strings.TrimSpace(reply), `."'`)
	for _, c := range categories {
		if strings.EqualFold(reply, c) {
			return c
		}
	}
	lower := strings.ToLower(reply)
	for _, c := range categories {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}
