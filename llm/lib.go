package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
	tellm "github.com/santiagomed/tellm/sdk"
)

// Service runs the three generation flows against the provider serving each model.
type Service struct {
	registry    *Registry
	tellmClient *tellm.Client
	batchID     string
	logger      logger.Logger
}

func NewService(registry *Registry, cfg *LlmConfig, l logger.Logger) *Service {
	s := &Service{
		registry: registry,
		batchID:  EnsureBatchID(cfg.BatchID),
		logger:   l,
	}
	if cfg.TellmURL != "" {
		s.tellmClient = tellm.NewClient(cfg.TellmURL)
	}
	return s
}

func (s *Service) Models() []schema.Model {
	return s.registry.Available()
}

// Check reports whether the model can be served, before any output is written.
func (s *Service) Check(modelID string) error {
	_, _, err := s.registry.Resolve(modelID)
	return err
}

// GenerateIdea streams an app idea into w.
func (s *Service) GenerateIdea(ctx context.Context, modelID string, settings schema.AISettings, w io.Writer) error {
	return s.stream(ctx, modelID, getIdeaSystemPrompt(), []schema.Message{
		{Role: schema.RoleUser, Content: getIdeaPrompt()},
	}, settings, w)
}

// RefinePrompt streams an improved version of prompt into w.
func (s *Service) RefinePrompt(ctx context.Context, modelID, prompt string, settings schema.AISettings, w io.Writer) error {
	return s.stream(ctx, modelID, getRefinePromptSystemPrompt(), []schema.Message{
		{Role: schema.RoleUser, Content: getRefinePrompt(prompt)},
	}, settings, w)
}

// GenerateCode streams code for the conversation into w.
func (s *Service) GenerateCode(ctx context.Context, modelID string, messages []schema.Message, settings schema.AISettings, w io.Writer) error {
	return s.stream(ctx, modelID, getCodeSystemPrompt(), messages, settings, w)
}

func (s *Service) stream(ctx context.Context, modelID, system string, messages []schema.Message, settings schema.AISettings, w io.Writer) error {
	provider, model, err := s.registry.Resolve(modelID)
	if err != nil {
		return err
	}

	var out strings.Builder
	usage, err := provider.Stream(ctx, Request{
		Model:    model,
		System:   system,
		Messages: messages,
		Settings: settings,
	}, io.MultiWriter(w, &out))
	if err != nil {
		return err
	}
	s.logger.Debug(fmt.Sprintf("%s streamed %d bytes (%d in, %d out tokens)", model.ID, out.Len(), usage.InputTokens, usage.OutputTokens))

	if s.tellmClient != nil {
		err = s.tellmClient.Log(s.batchID, lastUserMessage(messages), out.String(), model.ID, usage.InputTokens, usage.OutputTokens)
		if err != nil {
			s.logger.WithField("warning", err).Warn("failed to log to tellm")
		}
	}
	return nil
}

func lastUserMessage(messages []schema.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == schema.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
