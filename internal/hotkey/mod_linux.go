//go:build linux

package hotkey

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1.
var modAlt = hotkey.Mod1
