package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/santiagomed/conjure/schema"
)

type AnthropicProvider struct {
	client *anthropic.Client
}

func NewAnthropicProvider(apiKey string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, schema.ProviderAnthropic)
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicProvider{client: &client}, nil
}

func (p *AnthropicProvider) Name() string { return schema.ProviderAnthropic }

func (p *AnthropicProvider) Stream(ctx context.Context, req Request, w io.Writer) (Usage, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	system := req.System
	for _, m := range req.Messages {
		switch m.Role {
		case schema.RoleSystem:
			// Anthropic takes system text outside the message list.
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case schema.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model.ID),
		MaxTokens:   int64(req.Model.OutputLimit(req.Settings.MaxTokens)),
		Messages:    messages,
		Temperature: anthropic.Float(clamp(req.Settings.Temperature, 0, 1)),
	}
	if topP := req.Settings.TopP; topP > 0 && topP < 1 {
		params.TopP = anthropic.Float(topP)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var usage Usage
	for stream.Next() {
		switch event := stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			usage.InputTokens = int(event.Message.Usage.InputTokens)
		case anthropic.MessageDeltaEvent:
			usage.OutputTokens = int(event.Usage.OutputTokens)
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := event.Delta.AsAny().(anthropic.TextDelta); ok {
				if _, err := io.WriteString(w, delta.Text); err != nil {
					return usage, fmt.Errorf("error writing stream: %w", err)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return usage, fmt.Errorf("anthropic API error: %w", err)
	}
	return usage, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
