package app

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/gen2brain/beeep"

	"github.com/jcarver/attend/internal/daemon"
	"github.com/jcarver/attend/internal/db"
	"github.com/jcarver/attend/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// QueryState is the presentation state machine: exactly one of these is
// rendered at a time.
type QueryState int

const (
	StateReady QueryState = iota
	StateProcessing
	StateError
)

// TranscriptEntry is a transcript fragment for display.
type TranscriptEntry struct {
	Text      string
	Timestamp time.Time
	SeqNum    int
}

// historyStore is the slice of the SQLite store the overlay reads.
type historyStore interface {
	LatestSession() (*db.Session, error)
	ExchangesForSession(sessionID string) ([]db.Exchange, error)
	Close() error
}

// Model is the root bubbletea model for the attend overlay.
type Model struct {
	// Connection state
	client    *daemon.Client // command connection
	evClient  *daemon.Client // event subscription connection
	connected bool
	connError string

	// Overlay visibility
	visible bool

	// Query state machine
	state        QueryState
	lastQuestion string
	answer       string
	errorMessage string
	errorTerm    bool

	// Input line
	input string

	// Transcript feed
	entries          []TranscriptEntry
	transcriptScroll int
	transcriptLive   bool

	// History (past exchanges from SQLite)
	history []HistoryEntry

	// Transient notice (e.g. copy confirmation)
	notice         string
	noticeDeadline bool

	// UI state
	width  int
	height int

	// Status
	statusText string
	sessionID  string
	modelName  string
	fragments  int

	// DB
	store  historyStore
	dbPath string

	// Config
	socketPath string
	hotkeyHint string
	notify     bool

	// Reconnect
	reconnecting     bool
	reconnectAttempt int
}

// Options configures a new overlay Model.
type Options struct {
	SocketPath   string
	DBPath       string
	StartVisible bool
	HotkeyHint   string // rendered in the collapsed bar, e.g. "ctrl+alt+c"
	Notify       bool   // desktop notification when an answer lands hidden
}

// New creates a new Model with default state.
func New(opts Options) Model {
	if opts.SocketPath == "" {
		opts.SocketPath = daemon.SocketPath()
	}
	if opts.DBPath == "" {
		opts.DBPath = db.DefaultDBPath()
	}
	return Model{
		visible:        opts.StartVisible,
		state:          StateReady,
		transcriptLive: true,
		statusText:     "Connecting to attendd...",
		socketPath:     opts.SocketPath,
		dbPath:         opts.DBPath,
		hotkeyHint:     opts.HotkeyHint,
		notify:         opts.Notify,
	}
}

// Init returns the initial command: connect to the daemon.
func (m Model) Init() tea.Cmd {
	return connectCmd(m.socketPath)
}

// connectCmd attempts to connect to the daemon with two connections: one
// for commands, one for event subscription.
func connectCmd(socketPath string) tea.Cmd {
	return func() tea.Msg {
		client, err := daemon.Connect(socketPath)
		if err != nil {
			return DaemonConnectErrorMsg{Err: err}
		}
		evClient, err := daemon.Connect(socketPath)
		if err != nil {
			client.Close()
			return DaemonConnectErrorMsg{Err: err}
		}
		return DaemonConnectedMsg{Client: client, EvClient: evClient}
	}
}

// subscribeCmd sends a subscribe command on the event client and starts
// reading events.
func subscribeCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		_, err := evClient.SendCommand(daemon.Command{Cmd: "subscribe"})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return readEventCmd(evClient)()
	}
}

// readEventCmd reads the next event from the event client.
func readEventCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		ev, err := evClient.ReadEvent()
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return DaemonEventMsg{Event: ev}
	}
}

// statusCmd fetches daemon status.
func statusCmd(client *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: "status"})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return StatusResponseMsg{Response: resp}
	}
}

// askCmd submits a question to the daemon.
func askCmd(client *daemon.Client, text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: "ask", Text: text})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return AskResponseMsg{Response: resp}
	}
}

// copyAnswerCmd writes the answer to the system clipboard.
func copyAnswerCmd(answer string) tea.Cmd {
	return func() tea.Msg {
		return AnswerCopiedMsg{Err: clipboard.WriteAll(answer)}
	}
}

// notifyAnswerCmd fires a desktop notification for an answer that landed
// while the overlay was hidden.
func notifyAnswerCmd(question string) tea.Cmd {
	return func() tea.Msg {
		_ = beeep.Notify("Attend", "Answer ready: "+question, "")
		return nil
	}
}

// clearTransientErrorCmd fires after a delay to clear transient notices.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// openStoreCmd opens the SQLite store for history reads.
func openStoreCmd(path string) tea.Cmd {
	return func() tea.Msg {
		store, err := db.Open(path)
		if err != nil {
			return nil // history is optional; ignore if DB not available
		}
		return storeOpenedMsg{store: store}
	}
}

// loadHistoryCmd reads past exchanges for the latest session.
func loadHistoryCmd(store historyStore) tea.Cmd {
	return func() tea.Msg {
		sess, err := store.LatestSession()
		if err != nil || sess == nil {
			return HistoryLoadedMsg{}
		}
		exchanges, err := store.ExchangesForSession(sess.ID)
		if err != nil {
			return HistoryLoadedMsg{}
		}
		var entries []HistoryEntry
		for _, ex := range exchanges {
			entries = append(entries, HistoryEntry{Question: ex.Question, Answer: ex.Answer})
		}
		return HistoryLoadedMsg{Exchanges: entries}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ToggleRequestMsg:
		m.toggle()
		return m, nil

	case DaemonConnectedMsg:
		m.client = msg.Client
		m.evClient = msg.EvClient
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		return m, tea.Batch(
			subscribeCmd(m.evClient),
			statusCmd(m.client),
			openStoreCmd(m.dbPath),
		)

	case DaemonConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Daemon not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case StatusResponseMsg:
		r := msg.Response
		if r.SessionID != "" {
			m.sessionID = r.SessionID
		}
		if r.Model != "" {
			m.modelName = r.Model
		}
		if r.Fragments != nil {
			m.fragments = *r.Fragments
		}
		if r.Processing != nil && *r.Processing {
			m.state = StateProcessing
		}
		if r.Status != "" {
			m.statusText = r.Status
		}
		return m, nil

	case AskResponseMsg:
		if !msg.Response.OK {
			// Rejected (busy or empty): transient notice, state unchanged
			// unless we were optimistically Processing with no real query.
			if m.state == StateProcessing && m.lastQuestion != "" {
				m.state = StateReady
			}
			m.notice = msg.Response.Error
			return m, clearTransientErrorCmd()
		}
		return m, nil

	case DaemonEventMsg:
		cmd := m.handleEvent(msg.Event)
		// Continue reading events on the event client.
		return m, tea.Batch(cmd, readEventCmd(m.evClient))

	case DaemonEventErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		if m.client != nil {
			m.client.Close()
			m.client = nil
		}
		if m.evClient != nil {
			m.evClient.Close()
			m.evClient = nil
		}
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.socketPath)

	case storeOpenedMsg:
		m.store = msg.store
		return m, loadHistoryCmd(m.store)

	case HistoryLoadedMsg:
		m.history = msg.Exchanges
		return m, nil

	case AnswerCopiedMsg:
		if msg.Err != nil {
			m.notice = "copy failed: " + msg.Err.Error()
		} else {
			m.notice = "answer copied"
		}
		return m, clearTransientErrorCmd()

	case ClearTransientErrorMsg:
		m.notice = ""
		return m, nil
	}

	return m, nil
}

// handleEvent processes a daemon event and returns any resulting command.
func (m *Model) handleEvent(ev daemon.Event) tea.Cmd {
	switch ev.Event {
	case daemon.EventFragment:
		entry := TranscriptEntry{
			Text:      ev.Text,
			Timestamp: time.Now(),
		}
		if ev.SequenceNumber != nil {
			entry.SeqNum = *ev.SequenceNumber
		}
		m.entries = append(m.entries, entry)
		m.fragments = len(m.entries)
		if m.transcriptLive {
			m.scrollToBottom()
		}

	case daemon.EventProcessing:
		if ev.Processing != nil {
			if *ev.Processing {
				m.state = StateProcessing
			} else if m.state == StateProcessing {
				m.state = StateReady
			}
		}

	case daemon.EventAnswer:
		m.state = StateReady
		m.answer = ev.Text
		if ev.Question != "" {
			m.lastQuestion = ev.Question
		}
		m.errorMessage = ""
		m.history = append(m.history, HistoryEntry{Question: m.lastQuestion, Answer: ev.Text})
		if m.notify && !m.visible {
			return notifyAnswerCmd(m.lastQuestion)
		}

	case daemon.EventError:
		m.state = StateError
		m.errorMessage = ev.Message
		m.errorTerm = ev.Terminal != nil && *ev.Terminal
	}

	return nil
}

// toggle flips overlay visibility. show/hide are idempotent: toggling
// twice returns to the original state.
func (m *Model) toggle() {
	m.visible = !m.visible
}

// Show makes the overlay visible; a no-op when already visible.
func (m *Model) Show() { m.visible = true }

// Hide collapses the overlay; a no-op when already hidden.
func (m *Model) Hide() { m.visible = false }

// Visible reports current overlay visibility.
func (m Model) Visible() bool { return m.visible }

// handleKey processes key presses. Printable runes feed the input line;
// everything else is a control binding.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit:
		if m.client != nil {
			m.client.Close()
		}
		if m.evClient != nil {
			m.evClient.Close()
		}
		if m.store != nil {
			m.store.Close()
		}
		return m, tea.Quit

	case KeyToggle:
		m.toggle()
		return m, nil
	}

	// All other keys are inert while hidden.
	if !m.visible {
		return m, nil
	}

	switch msg.String() {
	case KeyHide:
		m.Hide()
		return m, nil

	case KeySubmit:
		return m.submit()

	case KeyClearInput:
		m.input = ""
		return m, nil

	case KeyBackspace:
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case KeyCopyAnswer:
		if m.answer != "" {
			return m, copyAnswerCmd(m.answer)
		}
		return m, nil

	case KeyScrollUp:
		m.transcriptLive = false
		if m.transcriptScroll > 0 {
			m.transcriptScroll--
		}
		return m, nil

	case KeyScrollDown:
		maxScroll := m.maxTranscriptScroll()
		m.transcriptScroll++
		if m.transcriptScroll >= maxScroll {
			m.transcriptScroll = maxScroll
			m.transcriptLive = true
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	case tea.KeySpace:
		m.input += " "
	}
	return m, nil
}

// submit sends the typed question. A submission while Processing is
// rejected locally; the daemon enforces the same rule.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	if text == "" || !m.connected {
		return m, nil
	}
	if m.state == StateProcessing {
		m.notice = "still working on the previous question"
		return m, clearTransientErrorCmd()
	}

	m.state = StateProcessing
	m.lastQuestion = text
	m.errorMessage = ""
	m.input = ""
	return m, askCmd(m.client, text)
}

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	totalLines := len(m.entries)
	visible := m.transcriptVisibleLines()
	if totalLines <= visible {
		return 0
	}
	return totalLines - visible
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 8
	}
	// Reserve: header(1) + status(1) + dividers(3) + answer panel + input(1) + footer(1)
	reserved := 8 + m.answerPanelLines()
	return max(3, m.height-reserved)
}

func (m Model) answerPanelLines() int {
	if m.width == 0 {
		return 4
	}
	switch m.state {
	case StateProcessing:
		return 2
	case StateError:
		return 2 + len(wrapText(m.errorMessage, max(10, m.width-4)))
	default:
		if m.answer == "" {
			return 2
		}
		return 2 + len(wrapText(m.answer, max(10, m.width-4)))
	}
}

// View renders the overlay.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	if !m.visible {
		return m.renderCollapsedBar()
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderTranscriptPanel())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderAnswerPanel())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderInputLine())
	if m.notice != "" {
		sections = append(sections, ui.DimStyle.Render(m.notice))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderCollapsedBar() string {
	hint := m.hotkeyHint
	if hint == "" {
		hint = KeyToggle
	}
	return ui.CollapsedBarStyle.Render(padRight("attend hidden ("+hint+" to show)", m.width))
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("ATTEND")
	var model string
	if m.modelName != "" {
		model = ui.DimStyle.Render(" | " + m.modelName)
	}
	return title + model
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.connected {
		dot = ui.ListeningDotStyle.Render("● LIVE")
	} else {
		dot = ui.IdleDotStyle.Render("○ OFFLINE")
	}

	var processing string
	if m.state == StateProcessing {
		processing = "  " + ui.SpinnerStyle.Render("⟳ thinking")
	}

	status := "  " + ui.StatusStyle.Render(m.statusText)
	return dot + processing + status
}

func (m Model) renderTranscriptPanel() string {
	height := m.transcriptVisibleLines()

	var lines []string
	header := ui.PanelTitleStyle.Render("TRANSCRIPT")
	if !m.transcriptLive {
		header += ui.DimStyle.Render(" (scrolled)")
	}
	lines = append(lines, header)

	contentHeight := height - 1

	if !m.connected {
		if m.reconnecting {
			lines = append(lines, ui.ErrorTextStyle.Render("  Daemon disconnected. Reconnecting..."))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Connecting to attendd..."))
		}
	} else if len(m.entries) == 0 {
		lines = append(lines, ui.DimStyle.Render("  Listening... transcript appears as people speak"))
	} else {
		prefixWidth := 11 // "[HH:MM:SS] "
		textWidth := max(10, m.width-prefixWidth-2)
		indentStr := strings.Repeat(" ", prefixWidth)

		var displayLines []string
		for _, e := range m.entries {
			ts := ui.TimestampStyle.Render(e.Timestamp.Format("[15:04:05]"))
			wrapped := wrapText(e.Text, textWidth)
			displayLines = append(displayLines, ts+" "+wrapped[0])
			for _, wl := range wrapped[1:] {
				displayLines = append(displayLines, indentStr+wl)
			}
		}

		start := 0
		if m.transcriptLive {
			if len(displayLines) > contentHeight {
				start = len(displayLines) - contentHeight
			}
		} else {
			start = min(m.transcriptScroll, max(0, len(displayLines)-1))
		}

		end := min(start+contentHeight, len(displayLines))
		for i := start; i < end; i++ {
			lines = append(lines, "  "+displayLines[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAnswerPanel() string {
	var lines []string
	textWidth := max(10, m.width-4)

	switch m.state {
	case StateProcessing:
		lines = append(lines, ui.PanelTitleStyle.Render("ANSWER"))
		lines = append(lines, "  "+ui.SpinnerStyle.Render("⟳ ")+ui.DimStyle.Render(m.lastQuestion))

	case StateError:
		lines = append(lines, ui.PanelTitleStyle.Render("ANSWER"))
		label := "Error: "
		if m.errorTerm {
			label = "Configuration error: "
		}
		for i, wl := range wrapText(m.errorMessage, textWidth) {
			if i == 0 {
				lines = append(lines, "  "+ui.ErrorStyle.Render(label)+ui.ErrorTextStyle.Render(wl))
			} else {
				lines = append(lines, "  "+ui.ErrorTextStyle.Render(wl))
			}
		}

	default:
		lines = append(lines, ui.PanelTitleStyle.Render("ANSWER"))
		if m.answer == "" {
			lines = append(lines, ui.DimStyle.Render("  Type a question and press enter"))
		} else {
			lines = append(lines, "  "+ui.QuestionStyle.Render("Q: "+m.lastQuestion))
			for _, wl := range wrapText(m.answer, textWidth) {
				lines = append(lines, "  "+ui.AnswerStyle.Render(wl))
			}
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderInputLine() string {
	prompt := ui.InputPromptStyle.Render("> ")
	return prompt + m.input + "▌"
}

func (m Model) renderFooter() string {
	var parts []string
	parts = append(parts, ui.FooterKeyStyle.Render("enter")+ui.FooterDescStyle.Render(" Ask"))
	parts = append(parts, ui.FooterKeyStyle.Render("ctrl+y")+ui.FooterDescStyle.Render(" Copy"))
	parts = append(parts, ui.FooterKeyStyle.Render("↑↓")+ui.FooterDescStyle.Render(" Scroll"))
	parts = append(parts, ui.FooterKeyStyle.Render("esc")+ui.FooterDescStyle.Render(" Hide"))
	parts = append(parts, ui.FooterKeyStyle.Render("ctrl+t")+ui.FooterDescStyle.Render(" Toggle"))
	parts = append(parts, ui.FooterKeyStyle.Render("ctrl+c")+ui.FooterDescStyle.Render(" Quit"))
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
