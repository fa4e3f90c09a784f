package llm

import (
	"context"
	"errors"
	"io"

	"github.com/santiagomed/conjure/schema"
)

var (
	ErrUnknownModel  = errors.New("unknown model")
	ErrMissingAPIKey = errors.New("no API key configured for provider")
)

// Request is a single chat completion. System is sent the way each provider expects it.
type Request struct {
	Model    schema.Model
	System   string
	Messages []schema.Message
	Settings schema.AISettings
}

// Usage is the token usage a provider reported for a request. Zero when not reported.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Provider streams a completion into w as text deltas arrive.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request, w io.Writer) (Usage, error)
}
