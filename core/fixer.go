package core

import (
	"context"
	"fmt"
)

// Fixer turns a reported runtime error into a refinement request.
type Fixer struct {
	orchestrator *Orchestrator
}

func NewFixer(o *Orchestrator) *Fixer {
	return &Fixer{orchestrator: o}
}

// FixMessage is the chat message sent to the model for a runtime error.
func FixMessage(runtimeError string) string {
	return fmt.Sprintf("The app throws this error when it runs:\n\n%s\n\nFix the code so the error no longer occurs.", runtimeError)
}

// Fix refines the code with the session's runtime error. The error is cleared only when the
// refinement succeeds.
func (f *Fixer) Fix(ctx context.Context) error {
	s := f.orchestrator.Session()
	if s.RuntimeError == "" {
		return ErrGuard
	}
	if err := f.orchestrator.Refine(ctx, FixMessage(s.RuntimeError)); err != nil {
		return err
	}
	return f.orchestrator.dispatch(RuntimeErrorCleared{})
}
