// Package nesting maintains the transitive closure of "workflow W uses
// revision R", one row per distinct operator path.
package nesting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pipeforge/backend/internal/repository"
	"pipeforge/backend/pkg/models"
)

// ErrUnboundedNesting indicates a reference cycle through the workflow
// being recomputed: an operator pointing back at the workflow itself, or
// stored rows that lead back to it. Recomputation fails rather than
// looping.
var ErrUnboundedNesting = errors.New("unbounded nesting")

// UnboundedNestingError reports the workflow whose closure could not be
// bounded.
type UnboundedNestingError struct {
	WorkflowID uuid.UUID
	Msg        string
}

func (e *UnboundedNestingError) Error() string {
	return fmt.Sprintf("%s: workflow %s: %s", ErrUnboundedNesting.Error(), e.WorkflowID, e.Msg)
}

func (e *UnboundedNestingError) Unwrap() error { return ErrUnboundedNesting }

// maxDepth bounds closure rows far beyond any genuinely acyclic nesting.
const maxDepth = 100

// Recompute derives the nesting rows of a workflow from its graph and the
// already-stored rows of the revisions its operators reference. Each
// operator contributes a direct row at depth 1 plus the target's rows
// prefixed with the operator, depth incremented. Components contribute no
// stored rows, terminating the recursion. The result is sorted by
// (descendant id, operator path), making recomputation idempotent.
func Recompute(ctx context.Context, store repository.RevisionStore, wf *models.TransformationRevision) ([]models.NestingRow, error) {
	if wf.Type != models.TypeWorkflow || wf.Content.Workflow == nil {
		return nil, nil
	}

	var rows []models.NestingRow
	for i := range wf.Content.Workflow.Operators {
		op := &wf.Content.Workflow.Operators[i]

		if op.TransformationID == wf.ID {
			return nil, &UnboundedNestingError{WorkflowID: wf.ID,
				Msg: fmt.Sprintf("operator %s references the workflow itself", op.ID)}
		}

		rows = append(rows, models.NestingRow{
			WorkflowID:      wf.ID,
			DescendantID:    op.TransformationID,
			ViaOperatorPath: []uuid.UUID{op.ID},
			Depth:           1,
		})

		childRows, err := store.ListNesting(ctx, op.TransformationID)
		if err != nil {
			return nil, fmt.Errorf("loading nesting rows of %s: %w", op.TransformationID, err)
		}
		for _, child := range childRows {
			row := models.NestingRow{
				WorkflowID:      wf.ID,
				DescendantID:    child.DescendantID,
				ViaOperatorPath: append([]uuid.UUID{op.ID}, child.ViaOperatorPath...),
				Depth:           child.Depth + 1,
			}
			if row.DescendantID == wf.ID {
				return nil, &UnboundedNestingError{WorkflowID: wf.ID,
					Msg: fmt.Sprintf("descendant rows of operator %s lead back to the workflow itself", op.ID)}
			}
			if row.Depth > maxDepth {
				return nil, &UnboundedNestingError{WorkflowID: wf.ID,
					Msg: fmt.Sprintf("nesting depth exceeds %d", maxDepth)}
			}
			rows = append(rows, row)
		}
	}

	models.SortNestingRows(rows)
	return rows, nil
}

// UsedBy returns the ids of all stored workflows that transitively use the
// given revision. A non-empty result blocks deletion and structural
// overwrite of that revision.
func UsedBy(ctx context.Context, store repository.RevisionStore, revisionID uuid.UUID) ([]uuid.UUID, error) {
	return store.UsedBy(ctx, revisionID)
}
