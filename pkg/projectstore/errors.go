package projectstore

import "errors"

// ErrNotFound is returned by LoadProject when path has no known project.
var ErrNotFound = errors.New("projectstore: project not found")
