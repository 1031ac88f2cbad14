package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidRevision indicates a revision missing identity or kind
	// fields, before any graph validation.
	ErrInvalidRevision = errors.New("invalid revision")

	// ErrDuplicateVersionTag indicates a version tag already taken inside
	// the revision group by a different revision.
	ErrDuplicateVersionTag = errors.New("duplicate version tag")

	// ErrStillReferenced indicates a revision some stored workflow still
	// uses, blocking deletion or structural overwrite.
	ErrStillReferenced = errors.New("revision still referenced")

	// ErrConcurrentModification indicates a dependency changed while a
	// compilation was reading it. Callers may retry after re-reading.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// StillReferencedError reports the workflows keeping a revision alive.
type StillReferencedError struct {
	RevisionID uuid.UUID
	Workflows  []uuid.UUID
}

func (e *StillReferencedError) Error() string {
	return fmt.Sprintf("%s: revision %s is used by %d stored workflow(s)", ErrStillReferenced.Error(), e.RevisionID, len(e.Workflows))
}

func (e *StillReferencedError) Unwrap() error { return ErrStillReferenced }

// ConcurrentModificationError reports which revision drifted under a running
// compilation.
type ConcurrentModificationError struct {
	RevisionID uuid.UUID
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s: revision %s changed during compilation", ErrConcurrentModification.Error(), e.RevisionID)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }
