package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/santiagomed/conjure/schema"
)

// ErrPersistence is the fixed failure reported when the app store rejects a generation.
var ErrPersistence = errors.New("failed to save generated app")

func defaultStepMap() map[StepType]Step {
	return map[StepType]Step{
		GenerateIdea:     &GenerateIdeaStep{},
		RefinePrompt:     &RefinePromptStep{},
		GenerateCode:     &GenerateCodeStep{},
		PersistApp:       &PersistAppStep{},
		RequestAnalytics: &RequestAnalyticsStep{},
		CommitRefinement: &CommitRefinementStep{},
	}
}

type GenerateIdeaStep struct{}

func (s *GenerateIdeaStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Generating idea.")
	body, err := state.API.GenerateIdea(ctx, schema.IdeaRequest{
		Model:    state.Model,
		Settings: state.Settings,
	})
	if err != nil {
		return fmt.Errorf("failed to generate idea: %w", err)
	}
	defer body.Close()

	idea, err := ReadStream(ctx, body, false, nil)
	if err != nil {
		return fmt.Errorf("failed to read idea stream: %w", err)
	}
	state.Prompt = idea
	state.Logger.Debug("Idea generated successfully")
	return nil
}

type RefinePromptStep struct{}

func (s *RefinePromptStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Refining prompt.")
	body, err := state.API.RefinePrompt(ctx, schema.RefinePromptRequest{
		Model:    state.Model,
		Prompt:   state.Prompt,
		Settings: state.Settings,
	})
	if err != nil {
		return fmt.Errorf("failed to refine prompt: %w", err)
	}
	defer body.Close()

	refined, err := ReadStream(ctx, body, false, nil)
	if err != nil {
		return fmt.Errorf("failed to read refined prompt stream: %w", err)
	}
	state.Prompt = refined
	state.Logger.Debug("Prompt refined successfully")
	return nil
}

// GenerateCodeStep streams code into the session, replacing the displayed code on every chunk.
type GenerateCodeStep struct{}

func (s *GenerateCodeStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug(fmt.Sprintf("Generating code with %d messages.", len(state.Messages)))
	body, err := state.API.GenerateCode(ctx, schema.GenerateRequest{
		Model:    state.Model,
		Messages: state.Messages,
		Settings: state.Settings,
	})
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	defer body.Close()

	code, err := ReadStream(ctx, body, true, func(display string) {
		state.Code = display
		_ = state.dispatch(CodeStreamed{Code: display})
	})
	if err != nil {
		return fmt.Errorf("failed to read code stream: %w", err)
	}
	state.Code = code
	if err := state.dispatch(CodeStreamed{Code: code}); err != nil {
		return err
	}
	state.Logger.Debug("Code generated successfully")
	return nil
}

type PersistAppStep struct{}

func (s *PersistAppStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Persisting generated app.")
	app, err := state.API.CreateApp(ctx, schema.CreateAppRequest{
		Model:  state.Model,
		Prompt: state.Prompt,
		Code:   state.Code,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if app == nil || app.ID == "" {
		return fmt.Errorf("%w: no identifier returned", ErrPersistence)
	}
	state.AppID = app.ID
	state.Logger.Debug(fmt.Sprintf("Generated app persisted with id %s", app.ID))
	return state.dispatch(AppPersisted{ID: app.ID})
}

// RequestAnalyticsStep never fails the pipeline. Without an app id it is skipped.
type RequestAnalyticsStep struct{}

func (s *RequestAnalyticsStep) Execute(ctx context.Context, state *State) error {
	if state.AppID == "" {
		state.Logger.Debug("No generated app id, skipping analytics.")
		return nil
	}
	analytics, err := state.API.TokenAnalytics(ctx, schema.TokenAnalyticsRequest{
		Model:          state.Model,
		Prompt:         state.Prompt,
		GeneratedCode:  state.Code,
		GeneratedAppID: state.AppID,
	})
	if err != nil || analytics == nil {
		state.Logger.WithField("error", fmt.Sprint(err)).Warn("Token analytics unavailable")
		return nil
	}
	return state.dispatch(AnalyticsReceived{Analytics: *analytics})
}

type CommitRefinementStep struct{}

func (s *CommitRefinementStep) Execute(ctx context.Context, state *State) error {
	if err := state.dispatch(UpdateSucceeded{History: state.Pending}); err != nil {
		return err
	}
	state.Committed = true
	return nil
}
