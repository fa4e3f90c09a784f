package core

import (
	"context"
	"fmt"
	"time"

	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
)

type Step interface {
	Execute(ctx context.Context, state *State) error
}

type StepType int

const (
	GenerateIdea StepType = iota
	RefinePrompt
	GenerateCode
	PersistApp
	RequestAnalytics
	CommitRefinement
	SaveGeneration
	Done
)

func (s StepType) String() string {
	switch s {
	case GenerateIdea:
		return "generate-idea"
	case RefinePrompt:
		return "refine-prompt"
	case GenerateCode:
		return "generate-code"
	case PersistApp:
		return "persist-app"
	case RequestAnalytics:
		return "request-analytics"
	case CommitRefinement:
		return "commit-refinement"
	case SaveGeneration:
		return "save-generation"
	case Done:
		return "done"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// State is the working data of one pipeline run.
type State struct {
	Model    string
	Settings schema.AISettings
	// Prompt is the user prompt on creation and the chat message on refinement.
	Prompt   string
	Messages []schema.Message
	// Pending is the refinement history committed once the stream completes.
	Pending   []schema.Message
	Code      string
	AppID     string
	Committed bool

	API      API
	Logger   logger.Logger
	dispatch func(Event) error
}

type Pipeline struct {
	steps     []StepType
	stepMap   map[StepType]Step
	publisher StepPublisher
	logger    logger.Logger
}

func NewPipeline(steps []StepType, pub StepPublisher, l logger.Logger) *Pipeline {
	if pub == nil {
		pub = &DefaultStepPublisher{}
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Pipeline{
		steps:     steps,
		stepMap:   defaultStepMap(),
		publisher: pub,
		logger:    l,
	}
}

// Execute runs the steps strictly in order and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	p.logger.Debug("Starting pipeline execution")
	for i, stepType := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Info("Pipeline execution cancelled")
			return ctx.Err()
		default:
		}

		step, ok := p.stepMap[stepType]
		if !ok {
			err := fmt.Errorf("step %v not found", stepType)
			p.logger.Error(err.Error())
			p.publisher.Error(stepType, err)
			return err
		}

		startTime := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			p.logger.WithField("error", err.Error()).Error(fmt.Sprintf("Error executing step %v", stepType))
			p.publisher.Error(stepType, err)
			return err
		}
		p.logger.Debug(fmt.Sprintf("Step %v completed in %v", stepType, time.Since(startTime)))
		p.publisher.PublishStep(stepType)

		if i < len(p.steps)-1 {
			p.logger.Debug(fmt.Sprintf("Transitioning from step %v to step %v", stepType, p.steps[i+1]))
		}
	}
	p.logger.Debug("Pipeline execution completed")
	return nil
}

type StepPublisher interface {
	PublishStep(step StepType)
	PublishSession(s Session)
	Error(step StepType, err error)
}

type DefaultStepPublisher struct{}

func (p *DefaultStepPublisher) PublishStep(step StepType)      {}
func (p *DefaultStepPublisher) PublishSession(s Session)       {}
func (p *DefaultStepPublisher) Error(step StepType, err error) {}
