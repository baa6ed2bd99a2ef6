// Package repository defines the data access layer and the error types
// shared across handlers. These sentinel values allow higher layers to
// distinguish between different failure scenarios without string
// matching. For example, ErrEmailExists and ErrPhoneExists signal
// unique-constraint violations that handlers translate into HTTP 409
// responses, while ErrBlankField marks malformed input rejected before
// touching the database.
package repository

import "errors"

// ErrBlankField is returned when a required field is empty after
// trimming. Handlers should translate this into an HTTP 400 response.
var ErrBlankField = errors.New("required field is blank")

// ErrEmailExists is returned when an insert or update would duplicate
// an existing email address. Handlers should translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrPhoneExists is returned when an insert or update would duplicate
// an existing phone number. Handlers should translate this into an
// HTTP 409 response.
var ErrPhoneExists = errors.New("phone already exists")
