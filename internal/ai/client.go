package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"linkchat/internal/model"
)

// ErrNoAPIKey is returned before any request is dispatched when the
// provider API key was never configured.
var ErrNoAPIKey = errors.New("provider API key is not configured")

// Request carries everything needed for one completion call. History is
// the context window; Prompt (plus optional image) is always sent as the
// explicit final user turn.
type Request struct {
	Prompt       string
	ImageBase64  string
	History      []model.Message
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// CompletionClient is the single upstream dependency of the conversation
// engine: one blocking call and one incremental call.
type CompletionClient interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request, onFragment func(string)) error
}

// Client talks to an OpenAI-compatible completion endpoint (OpenRouter by
// default).
type Client struct {
	api    *openai.Client
	apiKey string
	log    zerolog.Logger
}

func NewClient(apiKey, baseURL string, log zerolog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		log:    log.With().Str("component", "ai").Logger(),
	}
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	c.log.Debug().Str("model", req.Model).Int("history", len(req.History)).Msg("completion request")
	resp, err := c.api.CreateChatCompletion(ctx, buildChatRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("provider returned an empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) GenerateStream(ctx context.Context, req Request, onFragment func(string)) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	c.log.Debug().Str("model", req.Model).Int("history", len(req.History)).Msg("streaming completion request")
	stream, err := c.api.CreateChatCompletionStream(ctx, buildChatRequest(req, true))
	if err != nil {
		return fmt.Errorf("streaming call failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream receive failed: %w", err)
		}
		if len(resp.Choices) > 0 {
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				onFragment(delta)
			}
		}
	}
}

// ListModels fetches the provider's model catalog.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("model listing failed: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
