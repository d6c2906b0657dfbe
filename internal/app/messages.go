package app

import "github.com/jcarver/attend/internal/daemon"

// DaemonConnectedMsg is sent when both daemon connections are established.
type DaemonConnectedMsg struct {
	Client   *daemon.Client // for commands (status, context, ask)
	EvClient *daemon.Client // for event subscription
}

// DaemonConnectErrorMsg is sent when the daemon connection fails.
type DaemonConnectErrorMsg struct {
	Err error
}

// DaemonEventMsg wraps a streamed event from the daemon.
type DaemonEventMsg struct {
	Event daemon.Event
}

// DaemonEventErrorMsg is sent when the event stream encounters an error.
type DaemonEventErrorMsg struct {
	Err error
}

// StatusResponseMsg carries the response to a status command.
type StatusResponseMsg struct {
	Response daemon.Response
}

// AskResponseMsg carries the daemon's acceptance (or rejection) of an ask.
type AskResponseMsg struct {
	Response daemon.Response
}

// ToggleRequestMsg requests an overlay visibility toggle; sent by the
// global hotkey listener or the in-TUI keybinding.
type ToggleRequestMsg struct{}

// AnswerCopiedMsg reports a clipboard copy attempt.
type AnswerCopiedMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// HistoryLoadedMsg carries recent exchanges loaded from SQLite.
type HistoryLoadedMsg struct {
	Exchanges []HistoryEntry
}

// HistoryEntry is one past question/answer pair for display.
type HistoryEntry struct {
	Question string
	Answer   string
}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}

type storeOpenedMsg struct{ store historyStore }
