package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/kbinani/screenshot"
)

// TesseractOCR grabs the primary display and pipes it through a tesseract
// subprocess. The binary path is configurable; "tesseract" must be on PATH
// by default.
type TesseractOCR struct {
	Command string
	Display int
	Logger  *slog.Logger
}

// NewTesseractOCR creates an OCR runner for the given tesseract binary.
func NewTesseractOCR(command string, logger *slog.Logger) *TesseractOCR {
	if command == "" {
		command = "tesseract"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractOCR{Command: command, Logger: logger}
}

// CaptureScreenText captures the display and returns tesseract's raw text
// output. Callers are expected to clean and noise-filter the result.
func (o *TesseractOCR) CaptureScreenText(ctx context.Context) (string, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return "", fmt.Errorf("no active displays")
	}

	img, err := screenshot.CaptureDisplay(o.Display)
	if err != nil {
		return "", fmt.Errorf("capture display %d: %w", o.Display, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}

	// "stdin stdout" makes tesseract read the image from stdin and print
	// plain text to stdout.
	cmd := exec.CommandContext(ctx, o.Command, "stdin", "stdout")
	cmd.Stdin = &buf

	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			o.Logger.Debug("tesseract stderr", "output", msg)
		}
		return "", fmt.Errorf("run %s: %w", o.Command, err)
	}

	return out.String(), nil
}
