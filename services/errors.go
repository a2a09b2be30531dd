// services/errors.go
package services

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrRemote            = errors.New("remote service failure")
	ErrChainUnconfigured = errors.New("blockchain service not configured")
)
