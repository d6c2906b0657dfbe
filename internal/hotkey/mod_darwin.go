//go:build darwin

package hotkey

import "golang.design/x/hotkey"

// macOS calls it Option.
var modAlt = hotkey.ModOption
