package core

import (
	"errors"
	"strings"

	"github.com/santiagomed/conjure/schema"
)

type Status string

const (
	StatusInitial  Status = "initial"
	StatusCreating Status = "creating"
	StatusCreated  Status = "created"
	StatusUpdating Status = "updating"
	// StatusUpdated is reserved. Successful updates return to StatusCreated.
	StatusUpdated       Status = "updated"
	StatusRefining      Status = "refining"
	StatusBrainstorming Status = "brainstorming"
)

var (
	// ErrBusy is returned when another network-driving action holds the in-flight token.
	ErrBusy = errors.New("another action is in flight")
	// ErrGuard is returned when the session is not in a state that allows the action.
	ErrGuard = errors.New("action not allowed in current state")
)

// Session is the client-held state of one visit. It is only changed through Reduce.
type Session struct {
	Status Status
	// InFlight is the mutual-exclusion token held by every network-driving action.
	InFlight bool

	Prompt        string
	Code          string
	Analytics     *schema.CumulativeTokenAnalytics
	ShowAnalytics bool
	RuntimeError  string

	Model    string
	Settings schema.AISettings

	ConversationHistory []schema.Message
	RefinementHistory   []schema.Message
	GeneratedAppID      string

	ChatVisible bool
	// ScrollSignal increments each time the view should scroll the result into view.
	ScrollSignal int
}

// NewSession returns a fresh session for the given model with its provider defaults applied.
func NewSession(model string) Session {
	if model == "" {
		model = schema.DefaultModel
	}
	return Session{
		Status:   StatusInitial,
		Model:    model,
		Settings: DefaultsFor(schema.ProviderOf(model)),
	}
}

func (s Session) clone() Session {
	c := s
	c.ConversationHistory = append([]schema.Message(nil), s.ConversationHistory...)
	c.RefinementHistory = append([]schema.Message(nil), s.RefinementHistory...)
	if s.Analytics != nil {
		a := *s.Analytics
		c.Analytics = &a
	}
	return c
}

// Event is a single transition applied to a Session.
type Event interface {
	apply(s Session) (Session, error)
}

// Reduce applies ev to a copy of s. When the event is rejected s is returned unchanged.
func Reduce(s Session, ev Event) (Session, error) {
	next, err := ev.apply(s.clone())
	if err != nil {
		return s, err
	}
	return next, nil
}

type PromptEdited struct{ Text string }

func (e PromptEdited) apply(s Session) (Session, error) {
	s.Prompt = e.Text
	return s, nil
}

type ModelSelected struct{ Model string }

func (e ModelSelected) apply(s Session) (Session, error) {
	s.Settings = ApplyProviderChange(s.Settings, schema.ProviderOf(s.Model), schema.ProviderOf(e.Model))
	s.Model = e.Model
	return s, nil
}

type SettingsEdited struct{ Settings schema.AISettings }

func (e SettingsEdited) apply(s Session) (Session, error) {
	s.Settings = e.Settings
	return s, nil
}

type AssistKind int

const (
	AssistIdea AssistKind = iota
	AssistRefinePrompt
)

type AssistStarted struct{ Kind AssistKind }

func (e AssistStarted) apply(s Session) (Session, error) {
	if s.InFlight {
		return s, ErrBusy
	}
	if s.Status != StatusInitial {
		return s, ErrGuard
	}
	switch e.Kind {
	case AssistIdea:
		s.Status = StatusBrainstorming
	case AssistRefinePrompt:
		if strings.TrimSpace(s.Prompt) == "" {
			return s, ErrGuard
		}
		s.Status = StatusRefining
	}
	s.InFlight = true
	return s, nil
}

// AssistFinished always returns to initial. The prompt is replaced only when OK is set.
type AssistFinished struct {
	Prompt string
	OK     bool
}

func (e AssistFinished) apply(s Session) (Session, error) {
	if e.OK {
		s.Prompt = e.Prompt
	}
	s.Status = StatusInitial
	s.InFlight = false
	return s, nil
}

// CreateStarted discards prior session artifacts and seeds the conversation with the prompt.
type CreateStarted struct{}

func (CreateStarted) apply(s Session) (Session, error) {
	if s.InFlight {
		return s, ErrBusy
	}
	if s.Status != StatusInitial || strings.TrimSpace(s.Prompt) == "" {
		return s, ErrGuard
	}
	s.Status = StatusCreating
	s.InFlight = true
	s.Code = ""
	s.ShowAnalytics = false
	s.Analytics = nil
	s.ChatVisible = false
	s.RefinementHistory = nil
	s.GeneratedAppID = ""
	s.RuntimeError = ""
	s.ConversationHistory = []schema.Message{{Role: schema.RoleUser, Content: s.Prompt}}
	return s, nil
}

type CodeStreamed struct{ Code string }

func (e CodeStreamed) apply(s Session) (Session, error) {
	if s.Status != StatusCreating && s.Status != StatusUpdating {
		return s, ErrGuard
	}
	s.Code = e.Code
	return s, nil
}

type AppPersisted struct{ ID string }

func (e AppPersisted) apply(s Session) (Session, error) {
	s.GeneratedAppID = e.ID
	return s, nil
}

type AnalyticsReceived struct{ Analytics schema.TokenAnalytics }

func (e AnalyticsReceived) apply(s Session) (Session, error) {
	merged := MergeAnalytics(s.Analytics, e.Analytics)
	s.Analytics = &merged
	s.ShowAnalytics = true
	return s, nil
}

// CreateSucceeded opens the chat and releases the in-flight token.
type CreateSucceeded struct{}

func (CreateSucceeded) apply(s Session) (Session, error) {
	if s.Status != StatusCreating {
		return s, ErrGuard
	}
	s.Status = StatusCreated
	s.InFlight = false
	s.ChatVisible = true
	s.ScrollSignal++
	return s, nil
}

// CreateFailed returns to initial. When Discard is set the partial code is dropped.
type CreateFailed struct{ Discard bool }

func (e CreateFailed) apply(s Session) (Session, error) {
	s.Status = StatusInitial
	s.InFlight = false
	if e.Discard {
		s.Code = ""
	}
	return s, nil
}

type UpdateStarted struct{}

func (UpdateStarted) apply(s Session) (Session, error) {
	if s.InFlight {
		return s, ErrBusy
	}
	if s.Status != StatusCreated || s.Code == "" {
		return s, ErrGuard
	}
	s.Status = StatusUpdating
	s.InFlight = true
	return s, nil
}

// UpdateSucceeded commits the refinement history. The in-flight token stays held until
// Released so follow-up analytics cannot race another action.
type UpdateSucceeded struct{ History []schema.Message }

func (e UpdateSucceeded) apply(s Session) (Session, error) {
	if s.Status != StatusUpdating {
		return s, ErrGuard
	}
	s.RefinementHistory = append([]schema.Message(nil), e.History...)
	s.Status = StatusCreated
	return s, nil
}

// UpdateFailed returns to created with the last good code and untouched history.
type UpdateFailed struct{ Code string }

func (e UpdateFailed) apply(s Session) (Session, error) {
	s.Status = StatusCreated
	s.InFlight = false
	s.Code = e.Code
	return s, nil
}

type Released struct{}

func (Released) apply(s Session) (Session, error) {
	s.InFlight = false
	return s, nil
}

type RuntimeErrorReported struct{ Message string }

func (e RuntimeErrorReported) apply(s Session) (Session, error) {
	s.RuntimeError = e.Message
	return s, nil
}

type RuntimeErrorCleared struct{}

func (RuntimeErrorCleared) apply(s Session) (Session, error) {
	s.RuntimeError = ""
	return s, nil
}
