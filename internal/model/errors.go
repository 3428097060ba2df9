package model

import "errors"

// ErrNotFound is returned by stores when a record does not exist. Callers
// compare with errors.Is because stores wrap it with context.
var ErrNotFound = errors.New("not found")
