// Package analytics computes per-exchange token usage and keeps it on the persisted app.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/santiagomed/conjure/core"
	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/store"
)

var ErrUnknownModel = errors.New("unknown model")

type Service struct {
	apps   store.AppRepository
	logger logger.Logger
}

func NewService(apps store.AppRepository, l logger.Logger) *Service {
	return &Service{apps: apps, logger: l}
}

// Compute counts the exchange's token usage against the model's context ceiling.
// When an app id is given the result is stored on that app.
func (s *Service) Compute(ctx context.Context, req schema.TokenAnalyticsRequest) (*schema.TokenAnalytics, error) {
	model, ok := schema.LookupModel(req.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, req.Model)
	}

	promptTokens, err := CountTokens(req.Prompt)
	if err != nil {
		return nil, err
	}
	responseTokens, err := CountTokens(req.GeneratedCode)
	if err != nil {
		return nil, err
	}
	total := promptTokens + responseTokens
	a := &schema.TokenAnalytics{
		Model:                 model.ID,
		Provider:              model.Provider,
		PromptTokens:          promptTokens,
		ResponseTokens:        responseTokens,
		TotalTokens:           total,
		MaxTokens:             model.MaxTokens,
		UtilizationPercentage: core.Utilization(total, model.MaxTokens),
	}

	if req.GeneratedAppID != "" {
		if err := s.apps.UpdateAnalytics(ctx, req.GeneratedAppID, a); err != nil {
			return nil, err
		}
		s.logger.Debug(fmt.Sprintf("Stored analytics for app %s: %d tokens", req.GeneratedAppID, total))
	}
	return a, nil
}
