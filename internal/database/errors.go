package database

import "errors"

// Store-level sentinel errors. The service layer translates these into the
// domain taxonomy before they reach a caller.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("record already exists")
	ErrSoftDeleted = errors.New("record is deleted")
)
