// Package asr transcribes audio chunks with a local whisper.cpp binary.
package asr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jcarver/attend/internal/capture"
)

// WhisperEngine shells out to whisper-cli for each chunk. The chunk is
// written to a temporary WAV file, transcribed, and the file removed.
type WhisperEngine struct {
	Command    string // whisper-cli binary, "whisper-cli" by default
	ModelPath  string // optional -m argument
	Language   string // optional -l argument
	SampleRate int
	Channels   int
	Logger     *slog.Logger
}

// NewWhisperEngine creates an engine for 16-bit PCM chunks in the given
// format.
func NewWhisperEngine(command, modelPath string, sampleRate, channels int, logger *slog.Logger) *WhisperEngine {
	if command == "" {
		command = "whisper-cli"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperEngine{
		Command:    command,
		ModelPath:  modelPath,
		SampleRate: sampleRate,
		Channels:   channels,
		Logger:     logger,
	}
}

// Transcribe writes samples to a temp WAV file and runs the whisper binary
// over it. Returns the trimmed transcript, which may be empty for silence.
func (e *WhisperEngine) Transcribe(ctx context.Context, samples []int16) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("attend-chunk-%s.wav", uuid.NewString()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(path)

	if err := capture.EncodeWAV(f, samples, e.SampleRate, e.Channels); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp wav: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.args(path)...)

	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			e.Logger.Debug("whisper stderr", "output", msg)
		}
		return "", fmt.Errorf("run %s: %w", e.Command, err)
	}

	return strings.TrimSpace(out.String()), nil
}

// args builds the whisper-cli argument list for one chunk file.
func (e *WhisperEngine) args(wavPath string) []string {
	args := []string{"--no-timestamps", "--no-prints"}
	if e.ModelPath != "" {
		args = append(args, "-m", e.ModelPath)
	}
	if e.Language != "" {
		args = append(args, "-l", e.Language)
	}
	return append(args, "-f", wavPath)
}
