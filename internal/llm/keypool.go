// Package llm provides the response collaborator (Gemini) and the API
// credential pool it draws from.
package llm

import (
	"fmt"
	"sync"
)

// KeyPool is an ordered set of API credentials with a wrap-around cursor.
// The cursor only moves on Advance, which the orchestrator calls after an
// authorization failure.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyPool creates a pool. At least one credential is required.
func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("credential pool is empty")
	}
	owned := make([]string, len(keys))
	copy(owned, keys)
	return &KeyPool{keys: owned}, nil
}

// Current returns the credential at the cursor.
func (p *KeyPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.cursor]
}

// Advance moves the cursor to the next credential, wrapping at the end.
func (p *KeyPool) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = (p.cursor + 1) % len(p.keys)
}

// Cursor returns the current cursor index.
func (p *KeyPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Size returns the number of credentials in the pool.
func (p *KeyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
