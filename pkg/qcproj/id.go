package qcproj

import (
	"fmt"

	"github.com/google/uuid"
)

// NewContentID returns a fresh random 128-bit content identifier.
func NewContentID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrIDGenerationExhausted, err)
	}
	return id, nil
}

// mustNewContentID is like NewContentID but panics if the random source fails.
func mustNewContentID() uuid.UUID {
	id, err := NewContentID()
	if err != nil {
		panic(err)
	}
	return id
}
