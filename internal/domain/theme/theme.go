// Package theme holds the colour scheme preference.
package theme

import (
	"fmt"
	"strings"
)

// Preference is the stored theme choice.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

// Parse reads a preference; empty means System.
func Parse(s string) (Preference, error) {
	switch p := Preference(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return System, nil
	case Light, Dark, System:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, s)
	}
}

// Resolve returns the concrete scheme to render. For System it follows the
// OS hint (e.g. Sec-CH-Prefers-Color-Scheme) and defaults to Light.
func (p Preference) Resolve(osHint string) Preference {
	if p == Light || p == Dark {
		return p
	}
	if strings.EqualFold(strings.Trim(osHint, `" `), string(Dark)) {
		return Dark
	}
	return Light
}
