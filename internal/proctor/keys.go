package proctor

import "strings"

// KeyCombo is a keydown reported by the browser.
type KeyCombo struct {
	Key   string `json:"key" validate:"required,max=32"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}

// copy/paste/print/save/select-all/cut and view-source
var restrictedWithModifier = map[string]bool{
	"c": true, "v": true, "p": true, "u": true, "s": true, "a": true, "x": true,
}

// developer tools
var restrictedWithShift = map[string]bool{"i": true, "j": true, "c": true}

// Restricted reports whether the combination opens inspection tools, shows
// the page source, or copies, pastes or prints content.
func (k KeyCombo) Restricted() bool {
	key := strings.ToLower(k.Key)
	switch key {
	case "f12", "printscreen":
		return true
	}

	if !k.Ctrl && !k.Meta {
		return false
	}
	if k.Shift && restrictedWithShift[key] {
		return true
	}
	// macOS: Cmd+Option+I/J/U
	if k.Meta && k.Alt && (key == "i" || key == "j" || key == "u") {
		return true
	}
	return restrictedWithModifier[key]
}
