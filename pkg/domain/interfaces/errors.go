package interfaces

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned (wrapped) by every repository backend when a record does not exist
var ErrNotFound = goerr.New("not found")

// ErrConflict is returned (wrapped) when a conditional write finds the record changed
var ErrConflict = goerr.New("conflict")
