package provision

import "errors"

// ErrRunNotFound is returned when a run record has expired or never existed.
var ErrRunNotFound = errors.New("provisioning run not found")
