package app

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"teamsync/internal/session"
)

const (
	minViewportWidth  = 20
	minContentHeight  = 4
	minTaskPaneWidth  = 80
	inputCharLimit    = 8000
	defaultViewWidth  = 100
	defaultViewHeight = 30
)

type Model struct {
	api         SessionAPI
	clipboard   clipboardService
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	view        session.View
	updates     <-chan session.View
	unsubscribe func()
	initial     string
	width       int
	height      int
	follow      bool
	toast       string
	toastError  bool
	toastSeq    int
	inFlight    int
	quitting    bool
	markdown    bool
	dark        *bool
	md          *markdownRenderer
}

type Option func(*Model)

// WithInitialMessage starts a session with message as soon as the UI runs.
func WithInitialMessage(message string) Option {
	return func(m *Model) {
		m.initial = strings.TrimSpace(message)
	}
}

// WithMarkdown toggles glamour rendering of agent output.
func WithMarkdown(enabled bool) Option {
	return func(m *Model) {
		m.markdown = enabled
	}
}

// WithDarkBackground fixes the markdown palette instead of probing the
// terminal.
func WithDarkBackground(dark bool) Option {
	return func(m *Model) {
		m.dark = &dark
	}
}

func withClipboard(service clipboardService) Option {
	return func(m *Model) {
		if service != nil {
			m.clipboard = service
		}
	}
}

func NewModel(api SessionAPI, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "Describe what the team should build"
	input.CharLimit = inputCharLimit
	input.Prompt = "> "
	input.Focus()

	vp := viewport.New(defaultViewWidth, defaultViewHeight-minContentHeight)

	model := Model{
		api:       api,
		clipboard: defaultClipboardService{},
		viewport:  vp,
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:     defaultViewWidth,
		height:    defaultViewHeight,
		follow:    true,
		markdown:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&model)
		}
	}
	dark := true
	if model.dark != nil {
		dark = *model.dark
	}
	model.md = newMarkdownRenderer(model.markdown, dark)
	if api != nil {
		model.view = api.View()
	}
	return model
}

// Run owns the terminal until the user quits. It does not stop the remote
// session.
func Run(api SessionAPI, opts ...Option) error {
	model := NewModel(api, opts...)
	if model.dark == nil {
		model.md.SetDark(lipgloss.HasDarkBackground())
	}
	p := tea.NewProgram(&model, tea.WithAltScreen())
	_, err := p.Run()
	model.close()
	return err
}

func (m *Model) Init() tea.Cmd {
	m.subscribe()
	cmds := []tea.Cmd{waitForViewCmd(m.updates), textinput.Blink, m.spinner.Tick}
	if m.initial != "" {
		cmds = append(cmds, m.submit(m.initial))
		m.initial = ""
	}
	return tea.Batch(cmds...)
}

func (m *Model) subscribe() {
	if m.api == nil || m.updates != nil {
		return
	}
	m.updates, m.unsubscribe = m.api.Subscribe()
}

func (m *Model) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshContent()
		return m, nil
	case viewMsg:
		if !msg.ok {
			m.updates = nil
			return m, nil
		}
		m.setView(msg.view)
		return m, waitForViewCmd(m.updates)
	case opDoneMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		if msg.err != nil {
			return m, m.showToast(opErrorText(msg.op, msg.err), true)
		}
		if msg.op == opStop {
			return m, m.showToast("session stopped", false)
		}
		return m, nil
	case copyDoneMsg:
		if msg.err != nil {
			return m, m.showToast("copy failed: "+msg.err.Error(), true)
		}
		return m, m.showToast("specification copied ("+msg.method.String()+" clipboard)", false)
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		m.quitting = true
		m.close()
		return tea.Quit, true
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return nil, true
		}
		m.input.SetValue("")
		return m.submit(text), true
	case "ctrl+s":
		if !m.view.State.Active() {
			return m.showToast("no active session to stop", true), true
		}
		m.inFlight++
		return stopCmd(m.api), true
	case "y":
		if m.input.Value() == "" && m.view.Result != nil && m.view.State.Terminal() {
			return copyCmd(m.clipboard, m.view.Result.Specification), true
		}
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return cmd, true
	case "end":
		if m.input.Value() == "" {
			m.viewport.GotoBottom()
			m.follow = true
			return nil, true
		}
	}
	return nil, false
}

// submit routes typed text by session state: an idle controller starts a
// session, a pending question gets an answer, anything else continues the
// conversation.
func (m *Model) submit(text string) tea.Cmd {
	if m.api == nil {
		return nil
	}
	m.inFlight++
	switch {
	case m.view.State == session.StateIdle:
		return startCmd(m.api, text)
	case m.view.State == session.StateAwaitingUserInput && m.view.PendingInquiry != nil:
		return respondCmd(m.api, m.view.PendingInquiry.ID, text)
	default:
		return continueCmd(m.api, text)
	}
}

func (m *Model) setView(view session.View) {
	m.view = view
	m.input.Placeholder = placeholderFor(view)
	m.resize()
	m.refreshContent()
}

func placeholderFor(view session.View) string {
	switch view.State {
	case session.StateIdle:
		return "Describe what the team should build"
	case session.StateAwaitingUserInput:
		return "Answer the question"
	case session.StateCompleted, session.StateErrored, session.StateStopped:
		return "Session finished"
	default:
		return "Send a follow-up message"
	}
}

func (m *Model) showToast(text string, isError bool) tea.Cmd {
	m.toastSeq++
	m.toast = text
	m.toastError = isError
	return toastExpireCmd(m.toastSeq)
}

func opErrorText(op opKind, err error) string {
	var sessionErr *session.Error
	if errors.As(err, &sessionErr) {
		return sessionErr.UserMessage()
	}
	return string(op) + " failed: " + err.Error()
}

func (m *Model) showTasks() bool {
	return m.width >= minTaskPaneWidth && len(m.view.Tasks) > 0
}

func (m *Model) transcriptWidth() int {
	width := m.width
	if m.showTasks() {
		width -= taskPaneWidth + 2
	}
	if width < minViewportWidth {
		width = minViewportWidth
	}
	return width
}

func (m *Model) resize() {
	chrome := 4 // header, status, input, help
	if prompt := renderInquiryPrompt(m.view.PendingInquiry, m.width); prompt != "" {
		chrome += lipgloss.Height(prompt)
	}
	height := m.height - chrome
	if height < minContentHeight {
		height = minContentHeight
	}
	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = height
	m.input.Width = m.width - lipgloss.Width(m.input.Prompt) - 1
}

func (m *Model) refreshContent() {
	m.viewport.SetContent(renderTimeline(m.md, m.view.Entries, m.viewport.Width))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	header := headerStyle.Render("teamsync")
	if m.view.SessionID != "" {
		header += " " + helpStyle.Render(m.view.SessionID)
	}
	body := m.viewport.View()
	if m.showTasks() {
		tasks := taskPaneStyle.Height(m.viewport.Height).Render(renderTasks(m.view.Tasks, taskPaneWidth))
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, tasks)
	}
	spin := ""
	if m.view.Loading || m.inFlight > 0 {
		spin = m.spinner.View()
	}
	status := renderStatusLine(m.view, spin, m.width)
	if m.toast != "" {
		style := toastInfoStyle
		if m.toastError {
			style = toastErrorStyle
		}
		status = style.Render(" "+m.toast+" ") + " " + status
	}
	sections := []string{header, body}
	if prompt := renderInquiryPrompt(m.view.PendingInquiry, m.width); prompt != "" {
		sections = append(sections, prompt)
	}
	sections = append(sections, m.input.View(), status, helpStyle.Render(m.helpText()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) helpText() string {
	parts := []string{"enter send"}
	if m.view.State.Active() {
		parts = append(parts, "ctrl+s stop")
	}
	if m.view.Result != nil && m.view.State.Terminal() {
		parts = append(parts, "y copy spec")
	}
	parts = append(parts, "pgup/pgdn scroll", "ctrl+c quit")
	return strings.Join(parts, " · ")
}
