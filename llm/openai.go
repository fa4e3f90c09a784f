package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/santiagomed/conjure/schema"
	"github.com/sashabaranov/go-openai"
)

const DefaultDeepSeekBaseURL = "https://api.deepseek.com/v1"

// OpenAIProvider serves OpenAI and OpenAI-compatible APIs such as DeepSeek.
type OpenAIProvider struct {
	name   string
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, schema.ProviderOpenAI)
	}
	return &OpenAIProvider{
		name:   schema.ProviderOpenAI,
		client: openai.NewClient(apiKey),
	}, nil
}

// NewOpenAICompatibleProvider points the OpenAI client at another base URL.
func NewOpenAICompatibleProvider(name, apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, name)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Stream(ctx context.Context, req Request, w io.Writer) (Usage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatRequest(req, messages))
	if err != nil {
		return Usage{}, p.mapError(err)
	}
	defer stream.Close()

	var usage Usage
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return usage, nil
		}
		if err != nil {
			return usage, p.mapError(err)
		}
		if resp.Usage != nil {
			usage.InputTokens = resp.Usage.PromptTokens
			usage.OutputTokens = resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if _, err := io.WriteString(w, resp.Choices[0].Delta.Content); err != nil {
			return usage, fmt.Errorf("error writing stream: %w", err)
		}
	}
}

// chatRequest builds the completion request. Reasoning models take max_completion_tokens and
// reject the sampling parameters.
func chatRequest(req Request, messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:         req.Model.ID,
		Messages:      messages,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	limit := req.Model.OutputLimit(req.Settings.MaxTokens)
	if req.Model.Reasoning {
		out.MaxCompletionTokens = limit
		return out
	}
	out.MaxTokens = limit
	out.Temperature = float32(req.Settings.Temperature)
	out.TopP = float32(req.Settings.TopP)
	out.FrequencyPenalty = float32(req.Settings.FrequencyPenalty)
	out.PresencePenalty = float32(req.Settings.PresencePenalty)
	return out
}

func (p *OpenAIProvider) mapError(err error) error {
	e := &openai.APIError{}
	if errors.As(err, &e) {
		switch e.HTTPStatusCode {
		case 401:
			// unauthorized
			return fmt.Errorf("unauthorized: invalid %s API key", p.name)
		case 429:
			// rate limiting or engine overload
			return fmt.Errorf("rate limited by %s API", p.name)
		case 500:
			return fmt.Errorf("%s server error", p.name)
		default:
			return fmt.Errorf("%s API error: %v", p.name, e)
		}
	}
	return fmt.Errorf("%s request failed: %w", p.name, err)
}
