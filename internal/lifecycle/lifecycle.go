// Package lifecycle guards mutation of transformation revisions.
//
// States move DRAFT -> RELEASED -> DISABLED. Drafts may be edited in place,
// releasing is final unless the caller explicitly overwrites, and disabling
// is irreversible.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pipeforge/backend/pkg/models"
)

var (
	// ErrImmutable indicates an attempt to modify a released revision
	// without the explicit overwrite flag.
	ErrImmutable = errors.New("released revision is immutable")

	// ErrInvalidTransition indicates a state change the machine does not
	// permit, such as leaving DISABLED.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ImmutableRevisionError reports a rejected write against a released
// revision.
type ImmutableRevisionError struct {
	ID uuid.UUID
}

func (e *ImmutableRevisionError) Error() string {
	return fmt.Sprintf("%s: revision %s", ErrImmutable.Error(), e.ID)
}

func (e *ImmutableRevisionError) Unwrap() error { return ErrImmutable }

// InvalidTransitionError reports a disallowed state change with both sides
// of the attempted transition.
type InvalidTransitionError struct {
	ID        uuid.UUID
	Current   models.State
	Requested models.State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: revision %s cannot move from %s to %s", ErrInvalidTransition.Error(), e.ID, e.Current, e.Requested)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// AuthorizeWrite decides whether a revision currently in state current may
// be written with state requested.
//
//	DRAFT    -> DRAFT | RELEASED   always
//	RELEASED -> RELEASED           only with allowOverwriteReleased
//	RELEASED -> DISABLED           always, irreversible
//	DISABLED -> anything           never
func AuthorizeWrite(id uuid.UUID, current, requested models.State, allowOverwriteReleased bool) error {
	switch current {
	case models.StateDraft:
		if requested == models.StateDraft || requested == models.StateReleased {
			return nil
		}
	case models.StateReleased:
		switch requested {
		case models.StateReleased:
			if allowOverwriteReleased {
				return nil
			}
			return &ImmutableRevisionError{ID: id}
		case models.StateDisabled:
			return nil
		}
	case models.StateDisabled:
		// no transition leaves DISABLED
	}
	return &InvalidTransitionError{ID: id, Current: current, Requested: requested}
}

// Stamp sets the transition timestamps on rev. A revision reaching RELEASED
// gets released_timestamp, one reaching DISABLED gets disabled_timestamp; an
// overwrite of a released revision keeps the original release time. Imported
// revisions that already carry timestamps keep them.
func Stamp(rev *models.TransformationRevision, existing *models.TransformationRevision, now time.Time) {
	if existing != nil {
		if existing.ReleasedTimestamp != nil {
			rev.ReleasedTimestamp = existing.ReleasedTimestamp
		}
		if existing.DisabledTimestamp != nil {
			rev.DisabledTimestamp = existing.DisabledTimestamp
		}
	}
	if rev.State == models.StateReleased && rev.ReleasedTimestamp == nil {
		ts := now.UTC()
		rev.ReleasedTimestamp = &ts
	}
	if rev.State == models.StateDisabled {
		if rev.ReleasedTimestamp == nil {
			ts := now.UTC()
			rev.ReleasedTimestamp = &ts
		}
		if rev.DisabledTimestamp == nil {
			ts := now.UTC()
			rev.DisabledTimestamp = &ts
		}
	}
}
