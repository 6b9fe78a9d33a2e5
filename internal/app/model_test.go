package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"teamsync/internal/session"
	"teamsync/internal/timeline"
	"teamsync/internal/types"
)

type fakeSessionAPI struct {
	mu        sync.Mutex
	view      session.View
	started   []string
	continued []string
	responded []string
	stops     int
	err       error
	updates   chan session.View
	cancelled bool
}

func newFakeSessionAPI(view session.View) *fakeSessionAPI {
	return &fakeSessionAPI{view: view, updates: make(chan session.View, 1)}
}

func (f *fakeSessionAPI) Start(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, message)
	return f.err
}

func (f *fakeSessionAPI) ContinueWith(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continued = append(f.continued, message)
	return f.err
}

func (f *fakeSessionAPI) RespondToInquiry(_ context.Context, inquiryID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responded = append(f.responded, inquiryID+"="+message)
	return f.err
}

func (f *fakeSessionAPI) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.err
}

func (f *fakeSessionAPI) View() session.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSessionAPI) Subscribe() (<-chan session.View, func()) {
	return f.updates, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled = true
	}
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (f *fakeClipboard) Copy(_ context.Context, text string) (clipboardMethod, error) {
	f.copied = append(f.copied, text)
	return clipboardMethodSystem, f.err
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func pressEnter(t *testing.T, m *Model) tea.Msg {
	t.Helper()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a command after enter")
	}
	return cmd()
}

func TestEnterStartsSessionWhenIdle(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)

	typeText(&m, "Build a todo app")
	msg := pressEnter(t, &m)

	done, ok := msg.(opDoneMsg)
	if !ok || done.op != opStart || done.err != nil {
		t.Fatalf("expected successful start, got %#v", msg)
	}
	if len(api.started) != 1 || api.started[0] != "Build a todo app" {
		t.Fatalf("unexpected starts %v", api.started)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", m.input.Value())
	}
}

func TestEnterAnswersPendingInquiry(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)
	m.Update(viewMsg{ok: true, view: session.View{
		State:          session.StateAwaitingUserInput,
		SessionID:      "s1",
		PendingInquiry: &types.Inquiry{ID: "q1", ToolType: types.FunctionAskUser, Question: "Which branch?"},
	}})

	typeText(&m, "main")
	msg := pressEnter(t, &m)

	if done, ok := msg.(opDoneMsg); !ok || done.op != opRespond {
		t.Fatalf("expected respond op, got %#v", msg)
	}
	if len(api.responded) != 1 || api.responded[0] != "q1=main" {
		t.Fatalf("unexpected responses %v", api.responded)
	}
	if !strings.Contains(xansi.Strip(m.View()), "Which branch?") {
		t.Fatalf("expected question shown above the input")
	}
}

func TestEnterContinuesActiveSession(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StatePolling, SessionID: "s1"})
	m := NewModel(api)

	typeText(&m, "also add auth")
	msg := pressEnter(t, &m)

	if done, ok := msg.(opDoneMsg); !ok || done.op != opContinue {
		t.Fatalf("expected continue op, got %#v", msg)
	}
	if len(api.continued) != 1 || api.continued[0] != "also add auth" {
		t.Fatalf("unexpected continues %v", api.continued)
	}
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)

	typeText(&m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no command for blank input")
	}
	if len(api.started) != 0 {
		t.Fatalf("expected no start, got %v", api.started)
	}
}

func TestOperationErrorShowsUserMessage(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StatePolling, SessionID: "s1"})
	m := NewModel(api)

	err := &session.Error{Kind: session.ErrorTransport, Message: "Failed to send the message", Err: errors.New("dial tcp: refused")}
	m.Update(opDoneMsg{op: opContinue, err: err})

	if m.toast != "Failed to send the message" || !m.toastError {
		t.Fatalf("expected user-facing toast, got %q error=%v", m.toast, m.toastError)
	}
}

func TestStopRequiresActiveSession(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if api.stops != 0 {
		t.Fatalf("expected no stop call")
	}
	if !m.toastError {
		t.Fatalf("expected error toast")
	}

	m.Update(viewMsg{ok: true, view: session.View{State: session.StatePolling, SessionID: "s1"}})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatalf("expected stop command")
	}
	if done, ok := cmd().(opDoneMsg); !ok || done.op != opStop {
		t.Fatalf("expected stop op, got %#v", done)
	}
	if api.stops != 1 {
		t.Fatalf("expected one stop call, got %d", api.stops)
	}
}

func TestCopyFinalSpecification(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	clip := &fakeClipboard{}
	m := NewModel(api, withClipboard(clip))

	// Without a result, y is ordinary input.
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if m.input.Value() != "y" {
		t.Fatalf("expected y typed into input, got %q", m.input.Value())
	}
	m.input.SetValue("")

	m.Update(viewMsg{ok: true, view: session.View{
		State:     session.StateCompleted,
		SessionID: "s1",
		Result:    &timeline.FinalResult{Specification: "# Spec"},
	}})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if cmd == nil {
		t.Fatalf("expected copy command")
	}
	m.Update(cmd())
	if len(clip.copied) != 1 || clip.copied[0] != "# Spec" {
		t.Fatalf("unexpected copies %v", clip.copied)
	}
	if !strings.Contains(m.toast, "copied") {
		t.Fatalf("expected copy toast, got %q", m.toast)
	}
}

func TestReplyStartingWithYWhileSessionActive(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	clip := &fakeClipboard{}
	m := NewModel(api, withClipboard(clip))
	m.Update(viewMsg{ok: true, view: session.View{
		State:     session.StatePolling,
		SessionID: "s1",
		Result:    &timeline.FinalResult{Specification: "# Spec"},
	}})
	if strings.Contains(m.helpText(), "copy spec") {
		t.Fatalf("expected no copy hint while active, got %q", m.helpText())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if m.input.Value() != "yes" {
		t.Fatalf("expected reply typed into input, got %q", m.input.Value())
	}
	if len(clip.copied) != 0 {
		t.Fatalf("expected no copy while active, got %v", clip.copied)
	}
}

func TestViewMsgRendersTimelineAndTasks(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	_, cmd := m.Update(viewMsg{ok: true, view: session.View{
		State:     session.StatePolling,
		SessionID: "s1",
		Entries: []types.TimelineEntry{
			{ID: "e1", Sender: "planner", Content: "Drafting the plan", Kind: types.EntryKindMessage},
		},
		Tasks: []types.Task{{ID: "1", Title: "Plan", Status: types.TaskStatusInProgress}},
	}})
	if cmd == nil {
		t.Fatalf("expected the next wait command")
	}
	out := xansi.Strip(m.View())
	for _, want := range []string{"Drafting the plan", "Tasks", "● Plan", "session s1", "ctrl+s stop"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view, got %q", want, out)
		}
	}
}

func TestClosedSubscriptionStopsWaiting(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)
	m.Init()

	_, cmd := m.Update(viewMsg{ok: false})
	if cmd != nil {
		t.Fatalf("expected no further wait after the channel closed")
	}
	if m.updates != nil {
		t.Fatalf("expected updates cleared")
	}
}

func TestInitStartsInitialMessage(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	api.updates <- session.View{State: session.StateIdle}
	m := NewModel(api, WithInitialMessage("Build X"))

	if cmd := m.Init(); cmd == nil {
		t.Fatalf("expected init commands")
	}
	if m.inFlight != 1 {
		t.Fatalf("expected the start to be in flight, got %d", m.inFlight)
	}
	if m.initial != "" {
		t.Fatalf("expected initial message consumed")
	}
	msg := waitForViewCmd(m.updates)()
	if vm, ok := msg.(viewMsg); !ok || !vm.ok {
		t.Fatalf("expected subscribed view, got %#v", msg)
	}
}

func TestQuitUnsubscribes(t *testing.T) {
	api := newFakeSessionAPI(session.View{State: session.StateIdle})
	m := NewModel(api)
	m.Init()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	if !api.cancelled {
		t.Fatalf("expected subscription cancelled")
	}
}
