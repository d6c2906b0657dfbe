// Package assist composes context-aware prompts and drives the response
// collaborator with credential rotation.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jcarver/attend/internal/llm"
)

// ErrBusy is returned when a query is submitted while another is in flight.
var ErrBusy = errors.New("a query is already in flight")

// ErrKeysExhausted is the terminal configuration failure: every credential
// in the pool was rejected.
var ErrKeysExhausted = errors.New("all API credentials were rejected; check your api_keys configuration")

const systemInstruction = "You are Attend, an AI assistant that helps users during meetings and presentations. " +
	"You have access to both screen content and meeting audio context. " +
	"Provide helpful, concise, and contextually relevant answers. " +
	"Focus on being practical and actionable in your responses.\n\n"

// ScreenSource reads the current screen context; the read may trigger a
// capture when the cache is stale.
type ScreenSource interface {
	Context(ctx context.Context) string
}

// AudioSource reads the recent transcript context; the read is pure.
type AudioSource interface {
	Context() string
}

// Orchestrator handles one user query at a time: snapshot both context
// buffers, compose the prompt, and call the responder, rotating credentials
// on authorization failures.
type Orchestrator struct {
	Screen    ScreenSource
	Audio     AudioSource
	Responder llm.Responder
	Keys      *llm.KeyPool
	Logger    *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// HandleQuery runs one query to completion. A second call while one is in
// flight fails immediately with ErrBusy.
func (o *Orchestrator) HandleQuery(ctx context.Context, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", fmt.Errorf("empty query")
	}
	if !o.begin() {
		return "", ErrBusy
	}
	defer o.end()

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	screenText := o.Screen.Context(ctx)
	audioText := o.Audio.Context()
	prompt := ComposePrompt(screenText, audioText, userText)

	attempts := o.Keys.Size()
	for i := 0; i < attempts; i++ {
		answer, err := o.Responder.Generate(ctx, prompt, o.Keys.Current())
		if err == nil {
			logger.Info("query answered", "prompt_len", len(prompt), "answer_len", len(answer))
			return answer, nil
		}
		if errors.Is(err, llm.ErrAuthDenied) {
			logger.Warn("credential rejected, rotating", "cursor", o.Keys.Cursor())
			o.Keys.Advance()
			continue
		}
		// Any non-authorization failure aborts without rotating.
		logger.Error("query failed", "err", err)
		return "", err
	}

	logger.Error("credential pool exhausted", "size", attempts)
	return "", ErrKeysExhausted
}

// Busy reports whether a query is currently in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return false
	}
	o.inFlight = true
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

// ComposePrompt concatenates, in fixed order: the system instruction, an
// optional screen block, an optional audio block, and the user question.
// Empty context blocks are omitted entirely.
func ComposePrompt(screenText, audioText, userText string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)

	if screenText != "" {
		b.WriteString("SCREEN CONTENT:\n")
		b.WriteString(screenText)
		b.WriteString("\n\n")
	}
	if audioText != "" {
		b.WriteString("MEETING AUDIO TRANSCRIPT:\n")
		b.WriteString(audioText)
		b.WriteString("\n\n")
	}

	b.WriteString("USER QUESTION: ")
	b.WriteString(userText)
	b.WriteString("\n\nASSISTANT:")
	return b.String()
}
