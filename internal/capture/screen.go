package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// OCR extracts text from the current screen contents.
type OCR interface {
	CaptureScreenText(ctx context.Context) (string, error)
}

// ScreenCache holds the most recent OCR result. A read triggers a fresh
// capture only when the cached snapshot is older than the configured
// interval; capture failures are logged and surfaced as an empty string.
type ScreenCache struct {
	ocr      OCR
	interval time.Duration
	minChars int
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	text       string
	capturedAt time.Time
}

// NewScreenCache creates a ScreenCache reading through ocr.
func NewScreenCache(ocr OCR, interval time.Duration, minChars int, logger *slog.Logger) *ScreenCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenCache{
		ocr:      ocr,
		interval: interval,
		minChars: minChars,
		logger:   logger,
		now:      time.Now,
	}
}

// Context returns the current screen text, capturing afresh when the cached
// snapshot has expired.
func (c *ScreenCache) Context(ctx context.Context) string {
	c.mu.Lock()
	stale := c.now().Sub(c.capturedAt) > c.interval
	text := c.text
	c.mu.Unlock()

	if !stale {
		return text
	}
	return c.capture(ctx)
}

// Run refreshes the cache on the configured interval until ctx is
// cancelled, keeping query-path reads warm.
func (c *ScreenCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.capture(ctx)
		}
	}
}

// capture performs one OCR pass and stores the cleaned result. Errors are
// absorbed: the snapshot becomes empty and the failure is logged.
func (c *ScreenCache) capture(ctx context.Context) string {
	raw, err := c.ocr.CaptureScreenText(ctx)
	if err != nil {
		c.logger.Warn("screen capture failed", "err", err)
		raw = ""
	}
	text := cleanScreenText(raw, c.minChars)

	c.mu.Lock()
	c.text = text
	c.capturedAt = c.now()
	c.mu.Unlock()

	return text
}

// cleanScreenText trims each line, drops blank lines, and rejects results
// under minChars as OCR noise.
func cleanScreenText(raw string, minChars int) string {
	if raw == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	text := strings.Join(lines, "\n")

	if len(text) < minChars {
		return ""
	}
	return text
}
