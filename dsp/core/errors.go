package core

import "errors"

// ErrConfigurationRejected marks a configuration change that failed validation.
// The previous configuration stays in effect whenever it is returned.
var ErrConfigurationRejected = errors.New("configuration rejected")
