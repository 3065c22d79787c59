package domain

import "errors"

// ErrNotFound marks lookups for relations that don't exist.
var ErrNotFound = errors.New("not found")
