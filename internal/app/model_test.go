package app

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcarver/attend/internal/daemon"
)

func newTestModel() Model {
	m := New(Options{StartVisible: true, SocketPath: "/tmp/test.sock", DBPath: "/tmp/test.sqlite"})
	m.connected = true
	m.width = 80
	m.height = 24
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	case "ctrl+y":
		return tea.KeyMsg{Type: tea.KeyCtrlY}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestNewStartsHiddenByDefault(t *testing.T) {
	m := New(Options{})
	if m.Visible() {
		t.Error("overlay should start hidden unless configured otherwise")
	}
	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady", m.state)
	}
}

func TestToggleIsInvolution(t *testing.T) {
	m := newTestModel()
	before := m.Visible()

	m, _ = update(t, m, ToggleRequestMsg{})
	if m.Visible() == before {
		t.Error("toggle did not flip visibility")
	}
	m, _ = update(t, m, ToggleRequestMsg{})
	if m.Visible() != before {
		t.Error("toggling twice should restore the original visibility")
	}
}

func TestTypingFeedsInputLine(t *testing.T) {
	m := newTestModel()

	m, _ = update(t, m, keyMsg("hi"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = update(t, m, keyMsg("there"))
	if m.input != "hi there" {
		t.Errorf("input = %q, want %q", m.input, "hi there")
	}

	m, _ = update(t, m, keyMsg("backspace"))
	if m.input != "hi ther" {
		t.Errorf("input after backspace = %q", m.input)
	}

	m, _ = update(t, m, keyMsg("ctrl+u"))
	if m.input != "" {
		t.Errorf("input after clear = %q", m.input)
	}
}

func TestSubmitTransitionsToProcessing(t *testing.T) {
	m := newTestModel()
	m.input = "what is on the agenda?"

	m, cmd := update(t, m, keyMsg("enter"))
	if m.state != StateProcessing {
		t.Fatalf("state = %v, want StateProcessing", m.state)
	}
	if m.lastQuestion != "what is on the agenda?" {
		t.Errorf("lastQuestion = %q", m.lastQuestion)
	}
	if m.input != "" {
		t.Errorf("input not cleared: %q", m.input)
	}
	if cmd == nil {
		t.Error("submit should produce an ask command")
	}
}

func TestSubmitRejectedWhileProcessing(t *testing.T) {
	m := newTestModel()
	m.state = StateProcessing
	m.lastQuestion = "first question"
	m.input = "second question"

	m, _ = update(t, m, keyMsg("enter"))
	if m.state != StateProcessing {
		t.Error("in-flight query must not be superseded")
	}
	if m.lastQuestion != "first question" {
		t.Errorf("lastQuestion = %q, want the original", m.lastQuestion)
	}
	if m.notice == "" {
		t.Error("rejection should show a transient notice")
	}
}

func TestSubmitIgnoredWhenEmptyOrDisconnected(t *testing.T) {
	m := newTestModel()
	m.input = "   "
	m, cmd := update(t, m, keyMsg("enter"))
	if m.state != StateReady || cmd != nil {
		t.Error("blank input should not submit")
	}

	m = newTestModel()
	m.connected = false
	m.input = "hello?"
	m, cmd = update(t, m, keyMsg("enter"))
	if m.state != StateReady || cmd != nil {
		t.Error("disconnected submit should be a no-op")
	}
}

func TestAnswerEventReturnsToReady(t *testing.T) {
	m := newTestModel()
	m.state = StateProcessing
	m.lastQuestion = "when do we ship?"

	m, _ = update(t, m, DaemonEventMsg{Event: daemon.Event{
		Event:    daemon.EventAnswer,
		Question: "when do we ship?",
		Text:     "friday, per the roadmap slide",
	}})

	if m.state != StateReady {
		t.Fatalf("state = %v, want StateReady", m.state)
	}
	if m.answer != "friday, per the roadmap slide" {
		t.Errorf("answer = %q", m.answer)
	}
	if len(m.history) != 1 || m.history[0].Question != "when do we ship?" {
		t.Errorf("history = %+v", m.history)
	}
}

func TestErrorEventEntersErrorState(t *testing.T) {
	m := newTestModel()
	m.state = StateProcessing

	m, _ = update(t, m, DaemonEventMsg{Event: daemon.Event{
		Event:    daemon.EventError,
		Message:  "all API credentials were rejected",
		Terminal: daemon.BoolPtr(true),
	}})

	if m.state != StateError {
		t.Fatalf("state = %v, want StateError", m.state)
	}
	if !m.errorTerm {
		t.Error("terminal flag not carried into the model")
	}
	if m.errorMessage == "" {
		t.Error("error message missing")
	}
}

func TestProcessingEventBracketsState(t *testing.T) {
	m := newTestModel()

	m, _ = update(t, m, DaemonEventMsg{Event: daemon.Event{
		Event:      daemon.EventProcessing,
		Processing: daemon.BoolPtr(true),
	}})
	if m.state != StateProcessing {
		t.Fatalf("state = %v, want StateProcessing", m.state)
	}

	m, _ = update(t, m, DaemonEventMsg{Event: daemon.Event{
		Event:      daemon.EventProcessing,
		Processing: daemon.BoolPtr(false),
	}})
	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady", m.state)
	}
}

func TestProcessingFalseDoesNotClearError(t *testing.T) {
	m := newTestModel()
	m.state = StateError

	m, _ = update(t, m, DaemonEventMsg{Event: daemon.Event{
		Event:      daemon.EventProcessing,
		Processing: daemon.BoolPtr(false),
	}})
	if m.state != StateError {
		t.Error("processing(false) must not mask an error state")
	}
}

func TestFragmentEventAppendsTranscript(t *testing.T) {
	m := newTestModel()

	m, _ = update(t, m, DaemonEventMsg{Event: daemon.Event{
		Event:          daemon.EventFragment,
		Text:           "let's review the numbers",
		SequenceNumber: daemon.IntPtr(3),
	}})

	if len(m.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(m.entries))
	}
	if m.entries[0].Text != "let's review the numbers" || m.entries[0].SeqNum != 3 {
		t.Errorf("entry = %+v", m.entries[0])
	}
}

func TestKeysInertWhileHidden(t *testing.T) {
	m := newTestModel()
	m.Hide()

	m, cmd := update(t, m, keyMsg("x"))
	if m.input != "" {
		t.Errorf("hidden overlay accepted input: %q", m.input)
	}
	if cmd != nil {
		t.Error("hidden overlay produced a command")
	}

	// The toggle binding still works while hidden.
	m, _ = update(t, m, keyMsg("ctrl+t"))
	if !m.Visible() {
		t.Error("toggle key should work while hidden")
	}
}

func TestEscHidesOverlay(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, keyMsg("esc"))
	if m.Visible() {
		t.Error("esc should hide the overlay")
	}
}

func TestCopyAnswerOnlyWithAnswer(t *testing.T) {
	m := newTestModel()
	_, cmd := update(t, m, keyMsg("ctrl+y"))
	if cmd != nil {
		t.Error("copy with no answer should be a no-op")
	}

	m.answer = "the answer"
	_, cmd = update(t, m, keyMsg("ctrl+y"))
	if cmd == nil {
		t.Error("copy with an answer should produce a command")
	}
}

func TestAskRejectionShowsNotice(t *testing.T) {
	m := newTestModel()
	m.state = StateProcessing
	m.lastQuestion = "pending"

	m, cmd := update(t, m, AskResponseMsg{Response: daemon.Response{
		OK:    false,
		Error: "busy: a query is already in flight",
	}})
	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady after rejection", m.state)
	}
	if !strings.Contains(m.notice, "busy") {
		t.Errorf("notice = %q", m.notice)
	}
	if cmd == nil {
		t.Error("rejection should schedule a notice clear")
	}
}

func TestHiddenViewRendersCollapsedBar(t *testing.T) {
	m := newTestModel()
	m.Hide()

	view := m.View()
	if !strings.Contains(view, "hidden") {
		t.Errorf("collapsed view = %q", view)
	}
	if strings.Contains(view, "TRANSCRIPT") {
		t.Error("hidden overlay must not render panels")
	}
}

func TestVisibleViewShowsAnswer(t *testing.T) {
	m := newTestModel()
	m.lastQuestion = "what changed?"
	m.answer = "the deadline moved to friday"

	view := m.View()
	if !strings.Contains(view, "the deadline moved to friday") {
		t.Errorf("view missing answer:\n%s", view)
	}
	if !strings.Contains(view, "what changed?") {
		t.Error("view missing question")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
