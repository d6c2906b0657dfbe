package capture

import (
	"context"
	"log/slog"
	"time"
)

// Transcriber converts one chunk of audio samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16) (string, error)
}

// Listener is the audio capture loop: record a fixed-duration chunk,
// transcribe it, append the result to the ring. Capture and transcription
// failures are logged and absorbed; the loop never stops on them.
type Listener struct {
	Recorder   Recorder
	Engine     Transcriber
	Ring       *Ring
	Chunk      time.Duration
	Logger     *slog.Logger
	OnFragment func(Fragment) // optional, called for every kept fragment

	errBackoff time.Duration
}

// Run loops until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backoff := l.errBackoff
	if backoff == 0 {
		backoff = time.Second
	}

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		samples, err := l.Recorder.RecordChunk(ctx, l.Chunk)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("audio record failed", "err", err)
			sleepCtx(ctx, backoff)
			continue
		}

		text, err := l.Engine.Transcribe(ctx, samples)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("transcription failed", "err", err)
			sleepCtx(ctx, backoff)
			continue
		}

		if !l.Ring.Append(text) {
			continue
		}

		logger.Debug("transcript fragment", "len", len(text))
		if l.OnFragment != nil {
			frags := l.Ring.Snapshot()
			l.OnFragment(frags[len(frags)-1])
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
