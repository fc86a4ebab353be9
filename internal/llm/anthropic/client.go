// Package anthropic implements llm.Completer on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/retry"
)

// ErrEmptyResponse is returned when the model replies without any text.
var ErrEmptyResponse = errors.New("empty model response")

// Waiter spaces outbound requests.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Config holds client settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

// Client is a rate limited, retrying Messages API client.
type Client struct {
	api       sdk.Client
	model     string
	maxTokens int64
	limiter   Waiter
	retry     *retry.Policy
	logger    *zap.Logger
}

// New builds a Client. The SDK's own retries are disabled so that retry.Policy
// is the only source of backoff.
func New(cfg Config, limiter Waiter, policy *retry.Policy, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if policy == nil {
		policy = retry.NewPolicy(0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:       sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   limiter,
		retry:     policy,
		logger:    logger,
	}, nil
}

// Complete sends one user turn with an optional system prompt.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	var text string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, "anthropic"); err != nil {
				return retry.Stop(err)
			}
		}
		msg, err := c.api.Messages.New(ctx, params)
		if err != nil {
			if !retryable(err) {
				return retry.Stop(err)
			}
			c.logger.Warn("anthropic request failed, retrying", zap.Error(err))
			return err
		}
		var b strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		text = b.String()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// retryable reports whether an API error is worth another attempt: throttling,
// overload and server errors are, client errors are not.
func retryable(err error) bool {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return true
	}
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return true
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
