//go:build darwin

package input

import "golang.design/x/hotkey"

// "alt" is Option and "super" is Command on macOS
func modAlt() hotkey.Modifier   { return hotkey.ModOption }
func modSuper() hotkey.Modifier { return hotkey.ModCmd }
