// Package llm classifies page metadata with a chat-completion service.
// Backends implement Completer; see the langchain and gemini subpackages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Role tags a chat message.
type Role string

// Message roles.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one entry of a chat prompt.
type Message struct {
	Role    Role
	Content string
}

// Options bound generation.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Completion is a service response with its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer sends a prompt to a completion service.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (Completion, error)
}

// ErrEmptyResponse is returned by backends that got no choices back.
var ErrEmptyResponse = errors.New("llm: empty response")

// Recorder receives token usage and failures.
type Recorder interface {
	AddTokens(input, output, total int)
	RecordError(kind telemetry.ErrorKind)
}

// DefaultOptions asks for a short, deterministic answer.
var DefaultOptions = Options{MaxTokens: 50, Temperature: 0}

// SystemPrompt states the category taxonomy.
const SystemPrompt = `You are a website product categorization assistant. You will be provided the content of a website and tasked with classifying whether the brand or content mentions selling one of the following categories:

Categories:
9: Clothing + Shoes
8: Clothing
7: Shoes
6: Lingerie

Please classify the website into one of the following categories:
- 9 for Clothing + Shoes
- 8 for Clothing
- 7 for Shoes
- 6 for Lingerie
- If none of the categories match, return '-'.

Return only the corresponding category code (9, 8, 7, 6, or -).`

const userPromptFormat = `Given the following metadata extracted from a webpage, classify the website category:

Webpage metadata: %s`

// Prompt builds the message list for metadata.
func Prompt(metadata string) []Message {
	return []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf(userPromptFormat, metadata)},
	}
}

// Classifier maps metadata to a category code via a Completer.
type Classifier struct {
	completer Completer
	recorder  Recorder
	opts      Options
	logger    *zap.Logger
}

// New builds a Classifier. recorder may be nil.
func New(completer Completer, recorder Recorder, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{completer: completer, recorder: recorder, opts: DefaultOptions, logger: logger}
}

// Classify never fails: service errors are counted and yield ("-", Failed).
// An answer outside the closed set is coerced to "-" but still succeeds.
func (c *Classifier) Classify(ctx context.Context, metadata string) (category.Code, category.Status) {
	out, err := c.completer.Complete(ctx, Prompt(metadata), c.opts)
	if err != nil {
		c.logger.Warn("llm classification failed", zap.Error(err))
		if c.recorder != nil {
			c.recorder.RecordError(telemetry.KindLLM)
		}
		return category.None, category.Failed
	}
	if c.recorder != nil {
		c.recorder.AddTokens(out.PromptTokens, out.CompletionTokens, out.TotalTokens)
	}

	code, ok := category.Parse(strings.TrimSpace(out.Text))
	if !ok {
		c.logger.Info("llm returned an invalid category", zap.String("response", out.Text))
		code = category.None
	}
	return code, category.Succeeded
}
