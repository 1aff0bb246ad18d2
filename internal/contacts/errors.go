package contacts

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no authenticated identity is given.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("invalid input")
	// ErrRelationshipExists is returned when the pair already has an edge.
	ErrRelationshipExists = errors.New("relationship already exists")
	// ErrPersistence wraps a failed store round trip.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFoundOrForbidden is returned when the edge is missing or the
	// caller may not touch it. The two cases are deliberately not told apart.
	ErrNotFoundOrForbidden = errors.New("not found or forbidden")
)

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
