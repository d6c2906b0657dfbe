package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// ErrAuthDenied marks a response-collaborator failure that should trigger
// credential rotation rather than aborting the query.
var ErrAuthDenied = errors.New("authorization denied")

// ErrEmptyResponse marks a successful call that carried no usable text.
var ErrEmptyResponse = errors.New("empty response")

// Responder generates a completion for a prompt using one credential.
type Responder interface {
	Generate(ctx context.Context, prompt, credential string) (string, error)
}

// GeminiResponder calls the Gemini API through the genai SDK. A fresh
// client is built per call because the credential may differ between calls.
type GeminiResponder struct {
	Model  string
	Logger *slog.Logger
}

// NewGeminiResponder creates a responder for the given model identifier.
func NewGeminiResponder(model string, logger *slog.Logger) *GeminiResponder {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiResponder{Model: model, Logger: logger}
}

// Generate submits prompt and returns the trimmed response text.
// Authorization failures are wrapped with ErrAuthDenied; responses without
// text are ErrEmptyResponse.
func (g *GeminiResponder) Generate(ctx context.Context, prompt, credential string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), nil)
	if err != nil {
		if isAuthError(err) {
			return "", fmt.Errorf("%w: %v", ErrAuthDenied, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// isAuthError reports whether the SDK error is a credential rejection.
func isAuthError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	return false
}
