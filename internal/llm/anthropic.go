package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// Anthropic generates text with the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropic creates a client. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment.
func NewAnthropic(apiKey, model string, maxTokens int64, timeout time.Duration) *Anthropic {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Generate sends req as one user message. A schema is described in the
// system prompt since the Messages API has no response schema.
func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	system := req.System
	if req.Schema != nil {
		system += "\n\n" + describeSchema(req.Schema)
	} else if req.JSON {
		system += "\n\nReturn ONLY valid raw JSON."
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic.Generate: messages new: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("Anthropic.Generate: empty response from model")
	}
	return b.String(), nil
}

// describeSchema renders s as plain-text output instructions.
func describeSchema(s *Schema) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else. Fields:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %q: %s", f.Name, f.Type)
		if f.Nullable {
			b.WriteString(" or null")
		}
		if len(f.Enum) > 0 {
			fmt.Fprintf(&b, ", one of [%s]", strings.Join(quoteAll(f.Enum), ", "))
		}
		if f.Min != nil && f.Max != nil {
			fmt.Fprintf(&b, ", between %g and %g", *f.Min, *f.Max)
		}
		if f.Description != "" {
			b.WriteString(" (" + f.Description + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("Do NOT wrap the response in code fences.")
	return b.String()
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
