package llm

import "testing"

func TestKeyPoolRequiresKeys(t *testing.T) {
	if _, err := NewKeyPool(nil); err == nil {
		t.Fatal("expected error for empty pool")
	}
}

func TestKeyPoolAdvanceWraps(t *testing.T) {
	p, err := NewKeyPool([]string{"key-a", "key-b", "key-c"})
	if err != nil {
		t.Fatal(err)
	}

	if got := p.Current(); got != "key-a" {
		t.Errorf("current = %q, want key-a", got)
	}

	p.Advance()
	if got := p.Current(); got != "key-b" {
		t.Errorf("current = %q, want key-b", got)
	}

	p.Advance()
	p.Advance()
	if got := p.Current(); got != "key-a" {
		t.Errorf("current after wrap = %q, want key-a", got)
	}
	if p.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 after wrap", p.Cursor())
	}
}

func TestKeyPoolCopiesInput(t *testing.T) {
	keys := []string{"key-a"}
	p, err := NewKeyPool(keys)
	if err != nil {
		t.Fatal(err)
	}
	keys[0] = "mutated"
	if got := p.Current(); got != "key-a" {
		t.Errorf("current = %q, want key-a after caller mutation", got)
	}
}
