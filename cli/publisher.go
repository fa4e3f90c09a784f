package cli

import (
	"fmt"

	"github.com/santiagomed/conjure/core"
	"github.com/santiagomed/conjure/logger"
)

type stepError struct {
	step core.StepType
	err  error
}

func (e stepError) Error() string {
	return fmt.Sprintf("%v: %v", e.step, e.err)
}

// CliStepPublisher forwards orchestrator events to the TUI over buffered channels.
type CliStepPublisher struct {
	stepChan    chan core.StepType
	sessionChan chan core.Session
	errorChan   chan stepError
	logger      logger.Logger
}

func NewCliStepPublisher(logger logger.Logger) *CliStepPublisher {
	return &CliStepPublisher{
		stepChan:    make(chan core.StepType, 100),
		sessionChan: make(chan core.Session, 1),
		errorChan:   make(chan stepError, 10),
		logger:      logger,
	}
}

func (p *CliStepPublisher) PublishStep(step core.StepType) {
	select {
	case p.stepChan <- step:
		p.logger.Debug(fmt.Sprintf("Successfully published step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish step: %v. Channel full.", step))
	}
}

// PublishSession keeps only the newest snapshot. Streaming produces a session per chunk and
// the view only needs the latest one.
func (p *CliStepPublisher) PublishSession(s core.Session) {
	for {
		select {
		case p.sessionChan <- s:
			return
		default:
		}
		select {
		case <-p.sessionChan:
		default:
		}
	}
}

func (p *CliStepPublisher) Error(step core.StepType, err error) {
	select {
	case p.errorChan <- stepError{step: step, err: err}:
		p.logger.Debug(fmt.Sprintf("Successfully published error for step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish error for step: %v. Channel full.", step))
	}
}
