// Package hotkey registers the global overlay activation combination and
// invokes a callback on every press.
package hotkey

import (
	"context"
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// Binding is a parsed activation combination.
type Binding struct {
	mods []hotkey.Modifier
	key  hotkey.Key
}

// Parse converts a combination like "ctrl+alt+c" into a Binding.
func Parse(combo string) (Binding, error) {
	var b Binding
	keySet := false

	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			b.mods = append(b.mods, hotkey.ModCtrl)
		case "shift":
			b.mods = append(b.mods, hotkey.ModShift)
		case "alt", "option":
			b.mods = append(b.mods, modAlt)
		case "":
			return Binding{}, fmt.Errorf("empty element in combination %q", combo)
		default:
			if keySet {
				return Binding{}, fmt.Errorf("multiple keys in combination %q", combo)
			}
			key, ok := keyByName(part)
			if !ok {
				return Binding{}, fmt.Errorf("unknown key %q in combination %q", part, combo)
			}
			b.key = key
			keySet = true
		}
	}

	if !keySet {
		return Binding{}, fmt.Errorf("no key in combination %q", combo)
	}
	return b, nil
}

// Listen registers the binding and calls fn on every press until ctx is
// cancelled. Blocks; run it on its own goroutine.
func Listen(ctx context.Context, b Binding, fn func()) error {
	hk := hotkey.New(b.mods, b.key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey: %w", err)
	}
	defer hk.Unregister()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hk.Keydown():
			fn()
		}
	}
}

func keyByName(name string) (hotkey.Key, bool) {
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return letterKeys[c-'a'], true
		case c >= '0' && c <= '9':
			return digitKeys[c-'0'], true
		}
	}
	switch name {
	case "space":
		return hotkey.KeySpace, true
	case "enter", "return":
		return hotkey.KeyReturn, true
	case "tab":
		return hotkey.KeyTab, true
	case "esc", "escape":
		return hotkey.KeyEscape, true
	}
	return 0, false
}

var letterKeys = [26]hotkey.Key{
	hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE,
	hotkey.KeyF, hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ,
	hotkey.KeyK, hotkey.KeyL, hotkey.KeyM, hotkey.KeyN, hotkey.KeyO,
	hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR, hotkey.KeyS, hotkey.KeyT,
	hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX, hotkey.KeyY,
	hotkey.KeyZ,
}

var digitKeys = [10]hotkey.Key{
	hotkey.Key0, hotkey.Key1, hotkey.Key2, hotkey.Key3, hotkey.Key4,
	hotkey.Key5, hotkey.Key6, hotkey.Key7, hotkey.Key8, hotkey.Key9,
}
