package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/santiagomed/conjure/core"
	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
)

type mode int

const (
	PromptMode mode = iota
	ChatMode
	SaveMode
	RuntimeErrorMode
)

type genFlags struct {
	model          string
	prompt         string
	temperature    float64
	maxTokens      int
	setTemperature bool
	setMaxTokens   bool
}

type sessionMsg core.Session

type resultMsg Result

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("202"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
	runtimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	checkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	codeBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
)

type generateCmdModel struct {
	prompt   textarea.Model
	chat     textinput.Model
	title    textinput.Model
	runtime  textinput.Model
	spinner  spinner.Model
	code     viewport.Model
	mode     mode
	session  core.Session
	models   []schema.Model
	width    int
	running  bool
	action   Action
	steps    []core.StepType
	notice   string
	err      error
	rendered string

	orchestrator *core.Orchestrator
	engine       *Engine
	engineCtx    context.Context
	engineCancel context.CancelFunc
	publisher    *CliStepPublisher
	timeout      time.Duration
	logger       logger.Logger
}

func newGenerateModel(o *core.Orchestrator, pub *CliStepPublisher, engine *Engine, models []schema.Model, timeout time.Duration, l logger.Logger) generateCmdModel {
	if l == nil {
		l = logger.NewNullLogger()
	}
	ta := textarea.New()
	ta.Placeholder = "Describe the app you want to build..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(4)
	ta.Focus()

	chat := textinput.New()
	chat.Placeholder = "Ask for a change..."
	chat.CharLimit = 2000
	chat.Width = 76

	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 120
	title.Width = 60

	runtime := textinput.New()
	runtime.Placeholder = "Paste the error the app throws..."
	runtime.CharLimit = 4000
	runtime.Width = 76

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	session := o.Session()
	ta.SetValue(session.Prompt)

	ctx, cancel := context.WithCancel(context.Background())
	m := generateCmdModel{
		prompt:       ta,
		chat:         chat,
		title:        title,
		runtime:      runtime,
		spinner:      s,
		code:         viewport.New(80, 16),
		mode:         PromptMode,
		session:      session,
		models:       models,
		width:        80,
		orchestrator: o,
		engine:       engine,
		engineCtx:    ctx,
		engineCancel: cancel,
		publisher:    pub,
		timeout:      timeout,
		logger:       l,
	}
	engine.Start(ctx)
	return m
}

func (m generateCmdModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.listenForSession, m.listenForNextStep)
}

func (m *generateCmdModel) Shutdown() {
	m.engineCancel()
	m.engine.Shutdown(5 * time.Second)
}

func (m generateCmdModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case sessionMsg:
		m.applySession(core.Session(msg))
		return m, m.listenForSession
	case core.StepType:
		return m.handleStep(msg)
	case stepError:
		m.logger.Error(fmt.Sprintf("Error received during %v: %v", msg.step, msg.err))
		return m, m.listenForNextStep
	case resultMsg:
		return m.handleResult(Result(msg))
	case spinner.TickMsg:
		if m.running {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.updateInput(msg)
}

func (m generateCmdModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case PromptMode:
		m.prompt, cmd = m.prompt.Update(msg)
	case ChatMode:
		m.chat, cmd = m.chat.Update(msg)
	case SaveMode:
		m.title, cmd = m.title.Update(msg)
	case RuntimeErrorMode:
		m.runtime, cmd = m.runtime.Update(msg)
	}
	return m, cmd
}

func (m *generateCmdModel) resize(width, height int) {
	m.width = width
	m.prompt.SetWidth(width - 4)
	m.chat.Width = width - 8
	m.runtime.Width = width - 8
	m.code.Width = width - 2
	m.code.Height = max(height-16, 5)
	m.render()
}

// applySession adopts a snapshot published by the orchestrator.
func (m *generateCmdModel) applySession(s core.Session) {
	prev := m.session
	m.session = s
	if s.Code != prev.Code || s.InFlight != prev.InFlight {
		m.render()
		if s.InFlight {
			m.code.GotoBottom()
		}
	}
	if s.ScrollSignal != prev.ScrollSignal {
		m.code.GotoTop()
	}
}

// render refreshes the code view. Code is shown raw while streaming and highlighted once the
// session is idle.
func (m *generateCmdModel) render() {
	code := m.session.Code
	if code == "" {
		m.code.SetContent("")
		m.rendered = ""
		return
	}
	if m.session.InFlight {
		m.code.SetContent(code)
		return
	}
	m.rendered = renderCode(code)
	m.code.SetContent(m.rendered)
}

func renderCode(code string) string {
	out, err := glamour.Render("```tsx\n"+code+"\n```", "dark")
	if err != nil {
		return code
	}
	return out
}

func (m generateCmdModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.handleQuit()
	case tea.KeyEsc:
		if m.running {
			m.logger.Debug(fmt.Sprintf("Cancelling %v", m.action))
			m.engine.Cancel()
			m.notice = "Cancelling..."
			return m, nil
		}
		if m.mode == SaveMode || m.mode == RuntimeErrorMode {
			return m.enterChat()
		}
		return m.handleQuit()
	}

	switch msg.Type {
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(msg)
		return m, cmd
	}

	if m.running {
		return m, nil
	}

	switch m.mode {
	case PromptMode:
		return m.handlePromptState(msg)
	case ChatMode:
		return m.handleChatState(msg)
	case SaveMode:
		return m.handleSaveState(msg)
	case RuntimeErrorMode:
		return m.handleRuntimeErrorState(msg)
	}
	return m, nil
}

func (m generateCmdModel) handlePromptState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+g":
		m.orchestrator.SetPrompt(m.prompt.Value())
		if strings.TrimSpace(m.prompt.Value()) == "" {
			m.notice = "Enter a prompt first."
			return m, nil
		}
		return m.start(ExecutionRequest{Action: ActionCreate})
	case "ctrl+n":
		return m.start(ExecutionRequest{Action: ActionIdea})
	case "ctrl+r":
		m.orchestrator.SetPrompt(m.prompt.Value())
		if strings.TrimSpace(m.prompt.Value()) == "" {
			m.notice = "Nothing to refine."
			return m, nil
		}
		return m.start(ExecutionRequest{Action: ActionRefinePrompt})
	case "tab":
		return m.cycleModel(1), nil
	case "shift+tab":
		return m.cycleModel(-1), nil
	}
	return m.updateInput(msg)
}

func (m generateCmdModel) handleChatState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.chat.Value())
		if text == "" {
			return m, nil
		}
		return m.start(ExecutionRequest{Action: ActionRefine, Text: text})
	case "ctrl+s":
		m.mode = SaveMode
		m.chat.Blur()
		m.title.SetValue("")
		m.title.Focus()
		return m, textinput.Blink
	case "ctrl+e":
		m.mode = RuntimeErrorMode
		m.chat.Blur()
		m.runtime.SetValue(m.session.RuntimeError)
		m.runtime.Focus()
		return m, textinput.Blink
	case "ctrl+f":
		if m.session.RuntimeError == "" {
			m.notice = "No runtime error reported. Press ctrl+e to report one."
			return m, nil
		}
		return m.start(ExecutionRequest{Action: ActionFix})
	case "up", "down":
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(msg)
		return m, cmd
	}
	return m.updateInput(msg)
}

func (m generateCmdModel) handleSaveState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		return m.updateInput(msg)
	}
	title := strings.TrimSpace(m.title.Value())
	if title == "" {
		m.notice = "A title is required."
		return m, nil
	}
	return m.start(ExecutionRequest{Action: ActionSave, Text: title, Description: firstUserMessage(m.session)})
}

func (m generateCmdModel) handleRuntimeErrorState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		return m.updateInput(msg)
	}
	m.orchestrator.ReportRuntimeError(strings.TrimSpace(m.runtime.Value()))
	m.session = m.orchestrator.Session()
	return m.enterChat()
}

func (m generateCmdModel) enterChat() (tea.Model, tea.Cmd) {
	m.mode = ChatMode
	m.title.Blur()
	m.runtime.Blur()
	m.prompt.Blur()
	m.chat.Focus()
	return m, textinput.Blink
}

// cycleModel selects the next model in the catalogue.
func (m generateCmdModel) cycleModel(delta int) generateCmdModel {
	if len(m.models) == 0 {
		return m
	}
	idx := 0
	for i, model := range m.models {
		if model.ID == m.session.Model {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.models)) % len(m.models)
	m.orchestrator.SelectModel(m.models[idx].ID)
	m.session = m.orchestrator.Session()
	return m
}

func (m generateCmdModel) start(req ExecutionRequest) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Starting %v", req.Action))
	m.running = true
	m.action = req.Action
	m.steps = nil
	m.notice = ""
	m.err = nil
	resultChan := m.engine.AddRequest(req)
	return m, tea.Batch(m.spinner.Tick, m.waitForResult(resultChan))
}

func (m generateCmdModel) waitForResult(resultChan chan Result) tea.Cmd {
	timeout := m.timeout
	action := m.action
	return func() tea.Msg {
		select {
		case res := <-resultChan:
			return resultMsg(res)
		case <-time.After(timeout):
			m.logger.Error(fmt.Sprintf("%v timed out", action))
			m.engine.Cancel()
			return resultMsg{Action: action, Err: errors.New("request timed out")}
		}
	}
}

func (m generateCmdModel) listenForSession() tea.Msg {
	select {
	case s := <-m.publisher.sessionChan:
		return sessionMsg(s)
	case <-m.engineCtx.Done():
		return nil
	}
}

func (m generateCmdModel) listenForNextStep() tea.Msg {
	select {
	case step := <-m.publisher.stepChan:
		return step
	case err := <-m.publisher.errorChan:
		return err
	case <-m.engineCtx.Done():
		return nil
	}
}

func (m generateCmdModel) handleStep(step core.StepType) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Received step: %v", step))
	if step != core.Done {
		m.steps = append(m.steps, step)
	}
	return m, m.listenForNextStep
}

func (m generateCmdModel) handleResult(res Result) (tea.Model, tea.Cmd) {
	m.running = false
	m.session = m.orchestrator.Session()
	m.render()

	if res.Err != nil {
		switch {
		case errors.Is(res.Err, context.Canceled):
			m.notice = "Cancelled."
		case errors.Is(res.Err, core.ErrBusy), errors.Is(res.Err, core.ErrGuard):
			m.notice = "Not available right now."
		default:
			m.err = res.Err
		}
		if res.Action == ActionSave {
			return m, nil
		}
		return m, textinput.Blink
	}

	switch res.Action {
	case ActionIdea, ActionRefinePrompt:
		m.prompt.SetValue(m.session.Prompt)
		return m, textarea.Blink
	case ActionCreate:
		m.prompt.Blur()
		return m.enterChat()
	case ActionRefine:
		m.chat.SetValue("")
	case ActionFix:
		m.notice = "Applied a fix for the runtime error."
	case ActionSave:
		m.notice = fmt.Sprintf("Saved %s (%s)", nameStyle.Render(res.Saved.Title), res.Saved.ID)
		return m.enterChat()
	}
	return m, textinput.Blink
}

func (m generateCmdModel) handleQuit() (tea.Model, tea.Cmd) {
	m.logger.Debug("User exited the application")
	message := dimStyle.Render("Exiting...")
	if m.running {
		m.engine.Cancel()
		message = dimStyle.Render("Interrupted. Exiting application...")
	}
	return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
}

func (m generateCmdModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n\n", titleStyle.Render("conjure"), dimStyle.Render("["+m.session.Model+"]"), dimStyle.Render(string(m.session.Status)))

	if m.mode == PromptMode {
		b.WriteString("What do you want to build?\n")
		b.WriteString(m.prompt.View())
		b.WriteString("\n\n")
	}

	if m.running {
		b.WriteString(m.stepList())
		b.WriteString("\n")
	}

	if m.session.Code != "" {
		b.WriteString(codeBorder.Render(m.code.View()))
		b.WriteString("\n")
	}

	if m.session.ShowAnalytics {
		b.WriteString(dimStyle.Render(formatAnalytics(m.session.Analytics)))
		b.WriteString("\n")
	}
	if n := len(m.session.RefinementHistory); n > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d refinement message(s) in history", n)))
		b.WriteString("\n")
	}
	if m.session.RuntimeError != "" {
		b.WriteString(runtimeStyle.Render("Runtime error: " + m.session.RuntimeError))
		b.WriteString("\n")
	}

	switch m.mode {
	case ChatMode:
		b.WriteString("\n" + m.chat.View() + "\n")
	case SaveMode:
		b.WriteString("\nSave generation as: " + m.title.View() + "\n")
	case RuntimeErrorMode:
		b.WriteString("\nRuntime error: " + m.runtime.View() + "\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}
	if m.notice != "" {
		b.WriteString(dimStyle.Render(m.notice) + "\n")
	}
	b.WriteString(helpStyle(m.helpText()))
	return b.String()
}

func (m generateCmdModel) helpText() string {
	if m.running {
		return "esc: cancel • pgup/pgdn: scroll • ctrl+c: quit"
	}
	switch m.mode {
	case PromptMode:
		return "ctrl+g: generate • ctrl+n: idea • ctrl+r: refine prompt • tab: model • esc: quit"
	case ChatMode:
		return "enter: refine • ctrl+s: save • ctrl+e: report error • ctrl+f: fix error • up/down: scroll • esc: quit"
	}
	return "enter: confirm • esc: back"
}

// stepList shows the steps of the running action with a check for each completed one.
func (m generateCmdModel) stepList() string {
	steps := actionSteps(m.action)
	enumerator := func(_ list.Items, i int) string {
		if i < len(m.steps) {
			return checkStyle.Render("✓")
		}
		return m.spinner.View()
	}
	l := list.New().Enumerator(enumerator)
	for i, step := range steps {
		if i > len(m.steps) {
			break
		}
		present, past := stepLabel(step)
		if i < len(m.steps) {
			l.Item(past)
		} else {
			l.Item(present)
		}
	}
	return fmt.Sprint(l)
}

func actionSteps(a Action) []core.StepType {
	switch a {
	case ActionIdea:
		return []core.StepType{core.GenerateIdea}
	case ActionRefinePrompt:
		return []core.StepType{core.RefinePrompt}
	case ActionCreate:
		return []core.StepType{core.GenerateCode, core.PersistApp, core.RequestAnalytics}
	case ActionRefine, ActionFix:
		return []core.StepType{core.GenerateCode, core.CommitRefinement, core.RequestAnalytics}
	case ActionSave:
		return []core.StepType{core.SaveGeneration}
	}
	return nil
}

func stepLabel(step core.StepType) (present, past string) {
	switch step {
	case core.GenerateIdea:
		return "Brainstorming an idea.", "Brainstormed an idea."
	case core.RefinePrompt:
		return "Refining the prompt.", "Refined the prompt."
	case core.GenerateCode:
		return "Generating code.", "Generated code."
	case core.PersistApp:
		return "Saving the generated app.", "Saved the generated app."
	case core.RequestAnalytics:
		return "Computing token analytics.", "Computed token analytics."
	case core.CommitRefinement:
		return "Recording the conversation.", "Recorded the conversation."
	case core.SaveGeneration:
		return "Saving generation.", "Saved generation."
	}
	return step.String(), step.String()
}

func formatAnalytics(a *schema.CumulativeTokenAnalytics) string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf("tokens: %d prompt / %d response / %d total (session %d of %d, %.2f%%)",
		a.PromptTokens, a.ResponseTokens, a.TotalTokens,
		a.CumulativeTotalTokens, a.MaxTokens, a.UtilizationPercentage)
}

func firstUserMessage(s core.Session) string {
	for _, msg := range s.ConversationHistory {
		if msg.Role == schema.RoleUser {
			return msg.Content
		}
	}
	return s.Prompt
}

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Render
