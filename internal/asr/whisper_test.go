package asr

import (
	"context"
	"strings"
	"testing"
)

func TestWhisperArgs(t *testing.T) {
	e := NewWhisperEngine("whisper-cli", "", 16000, 1, nil)
	got := strings.Join(e.args("/tmp/chunk.wav"), " ")
	want := "--no-timestamps --no-prints -f /tmp/chunk.wav"
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}

	e.ModelPath = "/models/ggml-base.bin"
	e.Language = "en"
	got = strings.Join(e.args("/tmp/chunk.wav"), " ")
	want = "--no-timestamps --no-prints -m /models/ggml-base.bin -l en -f /tmp/chunk.wav"
	if got != want {
		t.Errorf("args with model = %q, want %q", got, want)
	}
}

func TestWhisperDefaults(t *testing.T) {
	e := NewWhisperEngine("", "", 16000, 1, nil)
	if e.Command != "whisper-cli" {
		t.Errorf("command = %q, want whisper-cli", e.Command)
	}
	if e.Logger == nil {
		t.Error("logger should default to slog.Default")
	}
}

func TestTranscribeTrimsOutput(t *testing.T) {
	// echo stands in for the whisper binary; its stdout is the argument
	// list, which exercises the trim and error paths end to end.
	e := NewWhisperEngine("echo", "", 16000, 1, nil)

	out, err := e.Transcribe(context.Background(), make([]int16, 160))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !strings.HasPrefix(out, "--no-timestamps") {
		t.Errorf("output = %q, want echoed arguments", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("output not trimmed")
	}
}

func TestTranscribeCommandFailure(t *testing.T) {
	e := NewWhisperEngine("false", "", 16000, 1, nil)
	if _, err := e.Transcribe(context.Background(), make([]int16, 160)); err == nil {
		t.Fatal("expected error from failing command")
	}
}
