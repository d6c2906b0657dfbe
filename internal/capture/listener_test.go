package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedRecorder struct {
	chunks int
	errs   map[int]error
	cancel context.CancelFunc
	calls  int
}

func (r *scriptedRecorder) RecordChunk(ctx context.Context, d time.Duration) ([]int16, error) {
	r.calls++
	if r.calls > r.chunks {
		r.cancel()
		return nil, ctx.Err()
	}
	if err := r.errs[r.calls]; err != nil {
		return nil, err
	}
	return make([]int16, 16), nil
}

type scriptedEngine struct {
	texts []string
	errs  map[int]error
	calls int
}

func (e *scriptedEngine) Transcribe(ctx context.Context, samples []int16) (string, error) {
	e.calls++
	if err := e.errs[e.calls]; err != nil {
		return "", err
	}
	if e.calls <= len(e.texts) {
		return e.texts[e.calls-1], nil
	}
	return "", nil
}

func TestListenerAppendsTranscripts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ring := NewRing(time.Hour, 10, 0)
	var got []Fragment

	l := &Listener{
		Recorder:   &scriptedRecorder{chunks: 2, cancel: cancel},
		Engine:     &scriptedEngine{texts: []string{"first fragment", "second fragment"}},
		Ring:       ring,
		Chunk:      time.Millisecond,
		OnFragment: func(f Fragment) { got = append(got, f) },
	}
	l.Run(ctx)

	if want := "first fragment second fragment"; ring.Context() != want {
		t.Errorf("ring context = %q, want %q", ring.Context(), want)
	}
	if len(got) != 2 {
		t.Fatalf("OnFragment calls = %d, want 2", len(got))
	}
	if got[1].Text != "second fragment" {
		t.Errorf("last fragment = %q, want %q", got[1].Text, "second fragment")
	}
}

func TestListenerSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ring := NewRing(time.Hour, 10, 0)
	l := &Listener{
		Recorder: &scriptedRecorder{
			chunks: 3,
			errs:   map[int]error{1: errors.New("device busy")},
			cancel: cancel,
		},
		Engine: &scriptedEngine{
			texts: []string{"", "kept after failures"},
			errs:  map[int]error{1: errors.New("decode failed")},
		},
		Ring:       ring,
		Chunk:      time.Millisecond,
		errBackoff: time.Millisecond,
	}
	l.Run(ctx)

	if got := ring.Context(); got != "kept after failures" {
		t.Errorf("ring context = %q, want %q", got, "kept after failures")
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &scriptedRecorder{chunks: 100, cancel: func() {}}
	l := &Listener{
		Recorder: rec,
		Engine:   &scriptedEngine{},
		Ring:     NewRing(time.Hour, 10, 0),
		Chunk:    time.Millisecond,
	}

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop on cancelled context")
	}
	if rec.calls != 0 {
		t.Errorf("recorder calls = %d, want 0 after pre-cancelled context", rec.calls)
	}
}
