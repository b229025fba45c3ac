// Package errors holds sentinels shared by the storage, transport and HTTP
// layers. Domain failures of the aggregation itself live in pkg/fl.
package errors

import "errors"

var (
	// ErrNotFound is returned when a round or key is absent from a store.
	ErrNotFound = errors.New("not found")

	ErrEmptyKey = errors.New("empty storage key")

	// ErrEntityExists guards archived rounds against being rewritten.
	ErrEntityExists = errors.New("entity already exists")

	// ErrMalformedRequest marks a decoded request of the wrong type.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrTransport wraps broker connection, publish and subscribe failures.
	ErrTransport = errors.New("transport error")
)
