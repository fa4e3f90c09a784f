package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/santiagomed/conjure/schema"
	"google.golang.org/genai"
)

type GoogleProvider struct {
	client *genai.Client
}

func NewGoogleProvider(ctx context.Context, apiKey string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, schema.ProviderGoogle)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

func (p *GoogleProvider) Name() string { return schema.ProviderGoogle }

func (p *GoogleProvider) Stream(ctx context.Context, req Request, w io.Writer) (Usage, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Settings.Temperature)),
		TopP:            genai.Ptr(float32(req.Settings.TopP)),
		MaxOutputTokens: int32(req.Model.OutputLimit(req.Settings.MaxTokens)),
	}
	if v := req.Settings.FrequencyPenalty; v != 0 {
		config.FrequencyPenalty = genai.Ptr(float32(v))
	}
	if v := req.Settings.PresencePenalty; v != 0 {
		config.PresencePenalty = genai.Ptr(float32(v))
	}

	system := req.System
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case schema.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case schema.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var usage Usage
	for resp, err := range p.client.Models.GenerateContentStream(ctx, req.Model.ID, contents, config) {
		if err != nil {
			return usage, fmt.Errorf("gemini API error: %w", err)
		}
		if resp.UsageMetadata != nil {
			usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		if text := resp.Text(); text != "" {
			if _, err := io.WriteString(w, text); err != nil {
				return usage, fmt.Errorf("error writing stream: %w", err)
			}
		}
	}
	return usage, nil
}
