package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
)

// API is the set of backend endpoints the orchestrator drives. Streaming calls must fail
// before returning when the response is not OK or has no body.
type API interface {
	GenerateIdea(ctx context.Context, req schema.IdeaRequest) (io.ReadCloser, error)
	RefinePrompt(ctx context.Context, req schema.RefinePromptRequest) (io.ReadCloser, error)
	GenerateCode(ctx context.Context, req schema.GenerateRequest) (io.ReadCloser, error)
	CreateApp(ctx context.Context, req schema.CreateAppRequest) (*schema.GeneratedApp, error)
	TokenAnalytics(ctx context.Context, req schema.TokenAnalyticsRequest) (*schema.TokenAnalytics, error)
	SaveGeneration(ctx context.Context, req schema.SaveGenerationRequest) (*schema.SavedGeneration, error)
}

// Orchestrator owns one Session and runs the idea, prompt refinement, creation and
// refinement actions against the API.
type Orchestrator struct {
	mu      sync.Mutex
	session Session
	cancel  context.CancelFunc
	runID   uint64

	api       API
	publisher StepPublisher
	logger    logger.Logger
}

func NewOrchestrator(api API, model string, pub StepPublisher, l logger.Logger) *Orchestrator {
	if pub == nil {
		pub = &DefaultStepPublisher{}
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Orchestrator{
		session:   NewSession(model),
		api:       api,
		publisher: pub,
		logger:    l,
	}
}

// Session returns a snapshot of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.clone()
}

func (o *Orchestrator) dispatch(ev Event) error {
	o.mu.Lock()
	next, err := Reduce(o.session, ev)
	o.session = next
	snapshot := next.clone()
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.publisher.PublishSession(snapshot)
	return nil
}

func (o *Orchestrator) SetPrompt(text string) {
	_ = o.dispatch(PromptEdited{Text: text})
}

// SelectModel switches models, resetting temperature and maxTokens when the provider changes.
func (o *Orchestrator) SelectModel(model string) {
	_ = o.dispatch(ModelSelected{Model: model})
}

func (o *Orchestrator) UpdateSettings(settings schema.AISettings) {
	_ = o.dispatch(SettingsEdited{Settings: settings})
}

func (o *Orchestrator) ReportRuntimeError(message string) {
	_ = o.dispatch(RuntimeErrorReported{Message: message})
}

// Cancel aborts the running action, if any. Output streamed before cancellation is discarded.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// run identifies one accepted action and owns its context.
type run struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// begin applies the start event and, when accepted, returns the run and a State seeded
// from the session.
func (o *Orchestrator) begin(ctx context.Context, ev Event) (*run, *State, error) {
	o.mu.Lock()
	next, err := Reduce(o.session, ev)
	if err != nil {
		o.mu.Unlock()
		return nil, nil, err
	}
	o.session = next
	runCtx, cancel := context.WithCancel(ctx)
	o.runID++
	r := &run{id: o.runID, ctx: runCtx, cancel: cancel}
	o.cancel = cancel
	snapshot := next.clone()
	o.mu.Unlock()

	o.publisher.PublishSession(snapshot)
	state := &State{
		Model:    snapshot.Model,
		Settings: snapshot.Settings,
		Prompt:   snapshot.Prompt,
		API:      o.api,
		Logger:   o.logger,
		dispatch: o.dispatch,
	}
	return r, state, nil
}

// end cancels the run's context and forgets it unless a newer run has already started.
func (o *Orchestrator) end(r *run) {
	r.cancel()
	o.mu.Lock()
	if o.runID == r.id {
		o.cancel = nil
	}
	o.mu.Unlock()
}

// finish tears the run down before dispatching the event that releases the in-flight token,
// so a caller admitted by that event never shares state with this run.
func (o *Orchestrator) finish(r *run, ev Event) error {
	o.end(r)
	return o.dispatch(ev)
}

// GenerateIdea replaces the prompt with a generated idea. It is a no-op unless the session
// is initial and idle.
func (o *Orchestrator) GenerateIdea(ctx context.Context) error {
	return o.assist(ctx, AssistIdea, GenerateIdea)
}

// RefinePrompt replaces a non-empty prompt with an improved version.
func (o *Orchestrator) RefinePrompt(ctx context.Context) error {
	return o.assist(ctx, AssistRefinePrompt, RefinePrompt)
}

func (o *Orchestrator) assist(ctx context.Context, kind AssistKind, step StepType) error {
	r, state, err := o.begin(ctx, AssistStarted{Kind: kind})
	if err != nil {
		o.logger.Debug(fmt.Sprintf("Ignoring %v: %v", step, err))
		return err
	}

	if err := NewPipeline([]StepType{step}, o.publisher, o.logger).Execute(r.ctx, state); err != nil {
		_ = o.finish(r, AssistFinished{Prompt: state.Prompt, OK: false})
		return err
	}
	_ = o.finish(r, AssistFinished{Prompt: state.Prompt, OK: true})
	o.publisher.PublishStep(Done)
	return nil
}

// Create runs a fresh generation from the current prompt: stream code, persist it, merge
// analytics and open the chat.
func (o *Orchestrator) Create(ctx context.Context) error {
	r, state, err := o.begin(ctx, CreateStarted{})
	if err != nil {
		o.logger.Debug(fmt.Sprintf("Ignoring create: %v", err))
		return err
	}

	state.Messages = []schema.Message{{Role: schema.RoleUser, Content: state.Prompt}}
	pipeline := NewPipeline([]StepType{GenerateCode, PersistApp, RequestAnalytics}, o.publisher, o.logger)
	if err := pipeline.Execute(r.ctx, state); err != nil {
		o.logger.WithField("error", err.Error()).Error("Code generation failed")
		discard := errors.Is(err, context.Canceled) || r.ctx.Err() != nil
		_ = o.finish(r, CreateFailed{Discard: discard})
		return err
	}

	if err := o.finish(r, CreateSucceeded{}); err != nil {
		return err
	}
	o.publisher.PublishStep(Done)
	return nil
}

// Refine regenerates the code from the chat message. The previous code is sent as system
// context and the history is only committed once the stream completes.
func (o *Orchestrator) Refine(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrGuard
	}
	r, state, err := o.begin(ctx, UpdateStarted{})
	if err != nil {
		o.logger.Debug(fmt.Sprintf("Ignoring refinement: %v", err))
		return err
	}

	snapshot := o.Session()
	previousCode := snapshot.Code
	state.Prompt = message
	state.AppID = snapshot.GeneratedAppID
	state.Pending = append(snapshot.RefinementHistory, schema.Message{Role: schema.RoleUser, Content: message})
	state.Messages = append([]schema.Message{{Role: schema.RoleSystem, Content: "Previous code: " + previousCode}}, state.Pending...)

	pipeline := NewPipeline([]StepType{GenerateCode, CommitRefinement, RequestAnalytics}, o.publisher, o.logger)
	err = pipeline.Execute(r.ctx, state)
	if err != nil && !state.Committed {
		o.logger.WithField("error", err.Error()).Error("Code refinement failed")
		_ = o.finish(r, UpdateFailed{Code: previousCode})
		return err
	}
	_ = o.finish(r, Released{})
	if err != nil {
		return err
	}
	o.publisher.PublishStep(Done)
	return nil
}

// SaveGeneration stores the current generated app under a title.
func (o *Orchestrator) SaveGeneration(ctx context.Context, title, description string) (*schema.SavedGeneration, error) {
	s := o.Session()
	if s.GeneratedAppID == "" {
		return nil, ErrGuard
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrGuard)
	}
	saved, err := o.api.SaveGeneration(ctx, schema.SaveGenerationRequest{
		Title:       title,
		Description: strings.TrimSpace(description),
		AppID:       s.GeneratedAppID,
	})
	if err != nil {
		o.logger.WithField("error", err.Error()).Error("Saving generation failed")
		o.publisher.Error(SaveGeneration, err)
		return nil, err
	}
	o.publisher.PublishStep(SaveGeneration)
	return saved, nil
}
