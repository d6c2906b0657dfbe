package app

// Key binding constants used in handleKey. Printable runes go to the input
// line, so all control bindings are modifier or special keys.
const (
	KeyQuit       = "ctrl+c"
	KeyToggle     = "ctrl+t"
	KeyHide       = "esc"
	KeyCopyAnswer = "ctrl+y"
	KeySubmit     = "enter"
	KeyClearInput = "ctrl+u"
	KeyScrollUp   = "up"
	KeyScrollDown = "down"
	KeyBackspace  = "backspace"
)
