// Package daemon provides the client, server, and protocol types for
// communicating with attendd over a Unix socket using NDJSON.
package daemon

// Command is sent from a client to the daemon.
type Command struct {
	Cmd    string   `json:"cmd"`
	Text   string   `json:"text,omitempty"`
	Events []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK         bool   `json:"ok"`
	SessionID  string `json:"sessionId,omitempty"`
	Answer     string `json:"answer,omitempty"`
	ScreenText string `json:"screenText,omitempty"`
	AudioText  string `json:"audioText,omitempty"`
	Processing *bool  `json:"processing,omitempty"`
	Fragments  *int   `json:"fragments,omitempty"`
	Model      string `json:"model,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event          string `json:"event"`
	Text           string `json:"text,omitempty"`
	Question       string `json:"question,omitempty"`
	Message        string `json:"message,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	SequenceNumber *int   `json:"sequenceNumber,omitempty"`
	Processing     *bool  `json:"processing,omitempty"`
	Terminal       *bool  `json:"terminal,omitempty"`
}

// Event names streamed by the daemon.
const (
	EventFragment   = "fragment"   // new transcript fragment; Text, SequenceNumber
	EventProcessing = "processing" // query in-flight state change; Processing
	EventAnswer     = "answer"     // completed query; Question, Text
	EventError      = "error"      // failed query; Message, Terminal
)

// BoolPtr returns a pointer to a bool value. Convenience for building
// protocol messages.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to an int value.
func IntPtr(n int) *int { return &n }
