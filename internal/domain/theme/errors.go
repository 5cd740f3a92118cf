package theme

import "errors"

// ErrUnknownPreference is returned for values other than light, dark or system.
var ErrUnknownPreference = errors.New("unknown theme preference")
