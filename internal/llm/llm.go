// Package llm is the gateway to the text and vision generation service.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/studybuddy/internal/llm/prompts"
)

var (
	// ErrRateLimited means the service refused the call for quota reasons,
	// both before and after the backoff retry.
	ErrRateLimited = errors.New("llm rate limited")
	// ErrTransient covers every other failed call.
	ErrTransient = errors.New("llm call failed")
)

// DefaultBackoff is the pause before the single retry after a rate limit.
const DefaultBackoff = 45 * time.Second

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	VisionModel string
	Backoff     time.Duration
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api         chatAPI
	model       string
	visionModel string
	backoff     time.Duration
}

// New creates a new LLM client.
func New(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return newWithAPI(openai.NewClientWithConfig(config), cfg)
}

func newWithAPI(api chatAPI, cfg Config) *Client {
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	return &Client{
		api:         api,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		backoff:     cfg.Backoff,
	}
}

// Ping checks that the endpoint answers and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// GenerateText sends prompt as a single user message and returns the reply text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
}

// Explain returns a plain-language explanation of topic.
func (c *Client) Explain(ctx context.Context, topic string) (string, error) {
	return c.fromTemplate(ctx, prompts.Explain, prompts.Data{Topic: topic})
}

// Ask answers a free-form question.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	return c.fromTemplate(ctx, prompts.Ask, prompts.Data{Input: query})
}

// Summarize condenses extracted document text for a student.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.fromTemplate(ctx, prompts.Summarize, prompts.Data{Input: text})
}

// QuizPrompt returns the prompt asking for n multiple-choice questions on topic.
func QuizPrompt(topic string, n int) (string, error) {
	return prompts.Build(prompts.Quiz, prompts.Data{Topic: topic, Count: n})
}

// DescribeImage sends an image to the vision model and returns its description.
func (c *Client) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	instruction, err := prompts.Build(prompts.Image, prompts.Data{})
	if err != nil {
		return "", err
	}
	url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url}},
				},
			},
		},
	})
}

func (c *Client) fromTemplate(ctx context.Context, kind prompts.Kind, data prompts.Data) (string, error) {
	prompt, err := prompts.Build(kind, data)
	if err != nil {
		return "", err
	}
	return c.GenerateText(ctx, prompt)
}

// complete performs the call, waiting out one rate limit before a single retry.
func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	text, err := c.once(ctx, req)
	if err == nil || !errors.Is(err, ErrRateLimited) {
		return text, err
	}

	slog.Warn("LLM rate limit reached, backing off", "wait", c.backoff)
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrRateLimited, ctx.Err())
	case <-time.After(c.backoff):
	}
	return c.once(ctx, req)
}

func (c *Client) once(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimit(err) {
			return "", fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTransient, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrTransient)
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", req.Model, "raw", raw)
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty response", ErrTransient)
	}
	return raw, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
