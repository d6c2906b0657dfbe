//go:build windows

package hotkey

import "golang.design/x/hotkey"

var modAlt = hotkey.ModAlt
