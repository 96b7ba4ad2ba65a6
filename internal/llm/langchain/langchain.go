// Package langchain adapts langchaingo chat models (OpenAI, Anthropic,
// Ollama) to llm.Completer.
package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/JakeFAU/sitecat/internal/llm"
)

// Providers served by this package.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config selects and authenticates a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the API endpoint (Ollama server URL, OpenAI proxy).
	BaseURL string
}

// Completer calls a langchaingo model.
type Completer struct {
	model llms.Model
	name  string
}

// New creates the model for cfg.Provider.
func New(cfg Config) (*Completer, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key required")
		}
		model, err = anthropic.New(anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	return NewWithModel(model, cfg.Model), nil
}

// NewWithModel wraps an existing model.
func NewWithModel(model llms.Model, name string) *Completer {
	return &Completer{model: model, name: name}
}

// Name returns the configured model name.
func (c *Completer) Name() string { return c.name }

// Complete sends msgs and reads token usage from the generation info.
func (c *Completer) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (llm.Completion, error) {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	resp, err := c.model.GenerateContent(ctx, content,
		llms.WithMaxTokens(opts.MaxTokens),
		llms.WithTemperature(opts.Temperature),
	)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Completion{}, llm.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	out := llm.Completion{Text: choice.Content}
	out.PromptTokens = intInfo(choice.GenerationInfo, "PromptTokens", "InputTokens")
	out.CompletionTokens = intInfo(choice.GenerationInfo, "CompletionTokens", "OutputTokens")
	out.TotalTokens = intInfo(choice.GenerationInfo, "TotalTokens")
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out, nil
}

func messageType(r llm.Role) llms.ChatMessageType {
	if r == llm.RoleSystem {
		return llms.ChatMessageTypeSystem
	}
	return llms.ChatMessageTypeHuman
}

// intInfo returns the first numeric value found under keys.
func intInfo(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
