package capture

import (
	"strings"
	"sync"
	"time"
)

// Fragment is one transcribed segment of audio.
type Fragment struct {
	Text       string
	ProducedAt time.Time
}

// Ring holds recent transcript fragments in chronological order. Fragments
// older than the retention window are evicted on every append and again on
// read, so a stalled capture loop can never leave stale text visible.
type Ring struct {
	mu        sync.Mutex
	retention time.Duration
	keep      int // fragments joined into a context read
	minChars  int
	now       func() time.Time
	frags     []Fragment
}

// NewRing creates a Ring. keep is the number of most-recent fragments a
// Context read joins; minChars is the noise floor below which appends are
// dropped.
func NewRing(retention time.Duration, keep, minChars int) *Ring {
	return &Ring{
		retention: retention,
		keep:      keep,
		minChars:  minChars,
		now:       time.Now,
	}
}

// Append inserts a fragment stamped with the current time. Text at or below
// the noise floor is dropped. Reports whether the fragment was kept.
func (r *Ring) Append(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) <= r.minChars {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.frags = append(r.frags, Fragment{Text: text, ProducedAt: now})
	r.purgeLocked(now)
	return true
}

// Context returns the space-joined text of the most recent fragments in
// chronological order, or "" when the buffer is empty. Pure read: it never
// blocks on capture or transcription.
func (r *Ring) Context() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())
	if len(r.frags) == 0 {
		return ""
	}

	start := 0
	if len(r.frags) > r.keep {
		start = len(r.frags) - r.keep
	}

	texts := make([]string, 0, len(r.frags)-start)
	for _, f := range r.frags[start:] {
		texts = append(texts, f.Text)
	}
	return strings.Join(texts, " ")
}

// Len returns the number of retained fragments.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())
	return len(r.frags)
}

// Snapshot returns a copy of the retained fragments in chronological order.
func (r *Ring) Snapshot() []Fragment {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())
	out := make([]Fragment, len(r.frags))
	copy(out, r.frags)
	return out
}

// purgeLocked drops fragments older than the retention window. Fragments
// are chronological, so the survivors are a suffix.
func (r *Ring) purgeLocked(now time.Time) {
	cutoff := now.Add(-r.retention)
	i := 0
	for i < len(r.frags) && r.frags[i].ProducedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		r.frags = append(r.frags[:0], r.frags[i:]...)
	}
}
