// Package ai drives the generative-model side of the task pipeline: prompt
// construction, streamed generation, lenient response parsing and tag
// inference.
package ai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Generator is the narrow surface the pipeline needs from the model service.
// Controllers depend on this interface so tests can substitute a stub.
type Generator interface {
	// Generate returns the complete text for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream streams text increments through onChunk and returns the
	// full accumulated text once the stream finishes.
	GenerateStream(ctx context.Context, prompt string, onChunk func(text string)) (string, error)
}

// Client wraps the Anthropic SDK client.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a model client. If model is empty a current Sonnet
// snapshot is used.
func NewClient(apiKey, model string) *Client {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeSonnet4_20250514
	}
	return &Client{
		inner: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: m,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(variant.Text)
		}
	}
	return out.String(), nil
}

func (c *Client) GenerateStream(ctx context.Context, prompt string, onChunk func(text string)) (string, error) {
	stream := c.inner.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text != "" {
					full.WriteString(deltaVariant.Text)
					if onChunk != nil {
						onChunk(deltaVariant.Text)
					}
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return full.String(), nil
}
