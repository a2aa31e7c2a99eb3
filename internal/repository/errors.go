// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver-specific error codes.
package repository

import "errors"

// ErrNotFound is returned when a lookup yields no rows. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as inserting a duplicate slot number within
// a lot. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrTxContention is returned when the database aborts a transaction
// because of a deadlock or lock wait timeout. Services retry these a
// bounded number of times before surfacing a generic failure.
var ErrTxContention = errors.New("transaction contention")
