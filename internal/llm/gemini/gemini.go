// Package gemini adapts an eino chat model backed by Google Gemini to
// llm.Completer.
package gemini

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/JakeFAU/sitecat/internal/llm"
)

// Config authenticates against the Gemini API.
type Config struct {
	APIKey string
	Model  string
}

// Completer calls an eino chat model.
type Completer struct {
	chat model.BaseChatModel
	name string
}

// New creates a Gemini-backed completer.
func New(ctx context.Context, cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}
	return NewWithModel(chat, cfg.Model), nil
}

// NewWithModel wraps an existing eino chat model.
func NewWithModel(chat model.BaseChatModel, name string) *Completer {
	return &Completer{chat: chat, name: name}
}

// Name returns the configured model name.
func (c *Completer) Name() string { return c.name }

// Complete sends msgs and reads usage from the response metadata.
func (c *Completer) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (llm.Completion, error) {
	in := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			in = append(in, schema.SystemMessage(m.Content))
			continue
		}
		in = append(in, schema.UserMessage(m.Content))
	}

	resp, err := c.chat.Generate(ctx, in,
		model.WithMaxTokens(opts.MaxTokens),
		model.WithTemperature(float32(opts.Temperature)),
	)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return llm.Completion{}, llm.ErrEmptyResponse
	}

	out := llm.Completion{Text: resp.Content}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := resp.ResponseMeta.Usage
		out.PromptTokens = u.PromptTokens
		out.CompletionTokens = u.CompletionTokens
		out.TotalTokens = u.TotalTokens
	}
	return out, nil
}
