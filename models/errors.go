package models

import "errors"

// Sentinel errors shared across services and handlers. Handlers map these
// to HTTP status codes; the websocket layer maps them to error acks.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("already exists")
	ErrSelfChat     = errors.New("cannot chat with yourself")
)
