// Package repository defines the persistence contract for transformation
// revisions and their derived nesting rows, with Postgres and in-memory
// implementations.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"pipeforge/backend/pkg/models"
)

// ErrNotFound is returned when no revision exists for the requested id or
// group/tag pair.
var ErrNotFound = errors.New("revision not found")

// RevisionStore is the persistence boundary of the core. It exclusively owns
// stored revisions and nesting rows; all callers operate on copies.
//
// Put must apply the revision and its nesting rows as one unit: no reader
// may observe a revision whose content was accepted but whose nesting rows
// are stale.
type RevisionStore interface {
	// Get retrieves a revision by its id.
	Get(ctx context.Context, id uuid.UUID) (*models.TransformationRevision, error)
	// GetByGroupAndTag retrieves the revision with the given version tag
	// inside a revision group.
	GetByGroupAndTag(ctx context.Context, groupID uuid.UUID, tag string) (*models.TransformationRevision, error)
	// List returns all stored revisions, ordered by id.
	List(ctx context.Context) ([]*models.TransformationRevision, error)
	// Put creates or overwrites a revision by id, replacing its nesting
	// rows in the same transaction. Components pass nil rows.
	Put(ctx context.Context, rev *models.TransformationRevision, nestings []models.NestingRow) error
	// Delete removes a revision and its own nesting rows.
	Delete(ctx context.Context, id uuid.UUID) error
	// ListNesting returns the stored nesting rows of a workflow, ordered by
	// (descendant id, operator path).
	ListNesting(ctx context.Context, workflowID uuid.UUID) ([]models.NestingRow, error)
	// UsedBy returns the ids of all stored workflows with a nesting row
	// pointing at the given revision.
	UsedBy(ctx context.Context, revisionID uuid.UUID) ([]uuid.UUID, error)
}
