package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/santiagomed/conjure/core"
	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
)

type Action int

const (
	ActionIdea Action = iota
	ActionRefinePrompt
	ActionCreate
	ActionRefine
	ActionFix
	ActionSave
)

func (a Action) String() string {
	switch a {
	case ActionIdea:
		return "idea"
	case ActionRefinePrompt:
		return "refine-prompt"
	case ActionCreate:
		return "create"
	case ActionRefine:
		return "refine"
	case ActionFix:
		return "fix"
	case ActionSave:
		return "save"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

type ExecutionRequest struct {
	Action Action
	// Text is the chat message for ActionRefine and the title for ActionSave.
	Text        string
	Description string
	ResultChan  chan Result
	CreatedAt   time.Time
}

type Result struct {
	Action Action
	Saved  *schema.SavedGeneration
	Err    error
}

// Engine runs orchestrator actions off the UI goroutine.
type Engine struct {
	orchestrator *core.Orchestrator
	fixer        *core.Fixer
	logger       logger.Logger
	requests     chan ExecutionRequest
	workers      int
	workerWG     sync.WaitGroup
	shutdownChan chan struct{}
}

func NewEngine(o *core.Orchestrator, l logger.Logger, workers int) *Engine {
	if l == nil {
		l = logger.NewNullLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		orchestrator: o,
		fixer:        core.NewFixer(o),
		logger:       l,
		requests:     make(chan ExecutionRequest, 16),
		workers:      workers,
		shutdownChan: make(chan struct{}),
	}
}

func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.workerWG.Add(1)
		go e.worker(ctx)
	}
}

func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()
	for {
		select {
		case req := <-e.requests:
			started := time.Now()
			res := e.execute(ctx, req)
			e.logger.Debug(fmt.Sprintf("Action %v finished in %v (queued %v)", req.Action, time.Since(started), started.Sub(req.CreatedAt)))
			req.ResultChan <- res
			close(req.ResultChan)
		case <-ctx.Done():
			return
		case <-e.shutdownChan:
			return
		}
	}
}

func (e *Engine) execute(ctx context.Context, req ExecutionRequest) Result {
	res := Result{Action: req.Action}
	switch req.Action {
	case ActionIdea:
		res.Err = e.orchestrator.GenerateIdea(ctx)
	case ActionRefinePrompt:
		res.Err = e.orchestrator.RefinePrompt(ctx)
	case ActionCreate:
		res.Err = e.orchestrator.Create(ctx)
	case ActionRefine:
		res.Err = e.orchestrator.Refine(ctx, req.Text)
	case ActionFix:
		res.Err = e.fixer.Fix(ctx)
	case ActionSave:
		res.Saved, res.Err = e.orchestrator.SaveGeneration(ctx, req.Text, req.Description)
	default:
		res.Err = fmt.Errorf("unknown action %v", req.Action)
	}
	if res.Err != nil {
		e.logger.WithField("action", req.Action.String()).Debug(fmt.Sprintf("Action failed: %v", res.Err))
	}
	return res
}

// AddRequest queues an action. The returned channel receives exactly one Result.
func (e *Engine) AddRequest(req ExecutionRequest) chan Result {
	req.ResultChan = make(chan Result, 1)
	req.CreatedAt = time.Now()
	e.requests <- req
	return req.ResultChan
}

// Cancel aborts the running action.
func (e *Engine) Cancel() {
	e.orchestrator.Cancel()
}

func (e *Engine) Shutdown(timeout time.Duration) {
	e.orchestrator.Cancel()
	close(e.shutdownChan)

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("All workers shut down gracefully")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timed out, some workers may still be running")
	}
}
