package store

import "errors"

// ErrNotFound is returned when a lookup by id/key finds no row.
var ErrNotFound = errors.New("store: not found")
