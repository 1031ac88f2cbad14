// Package services exposes the transformation core to the surrounding
// service layer: validated writes, compilation for execution, and deletion
// guards. All persistence goes through the injected RevisionStore.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"pipeforge/backend/internal/codegen"
	"pipeforge/backend/internal/graph"
	"pipeforge/backend/internal/lifecycle"
	"pipeforge/backend/internal/nesting"
	"pipeforge/backend/internal/repository"
	"pipeforge/backend/pkg/models"
)

// TransformationService is the core facade over the revision store.
type TransformationService struct {
	store  repository.RevisionStore
	logger *zap.SugaredLogger
	now    func() time.Time

	stores   metric.Int64Counter
	compiles metric.Int64Counter
}

// NewTransformationService creates a new TransformationService.
func NewTransformationService(store repository.RevisionStore, logger *zap.SugaredLogger) *TransformationService {
	meter := otel.Meter("pipeforge/backend/services")
	stores, _ := meter.Int64Counter("transformation_revision_writes_total",
		metric.WithDescription("Accepted transformation revision writes"))
	compiles, _ := meter.Int64Counter("transformation_compilations_total",
		metric.WithDescription("Completed workflow compilations"))

	return &TransformationService{
		store:    store,
		logger:   logger,
		now:      time.Now,
		stores:   stores,
		compiles: compiles,
	}
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Type  models.TransformationType
	State models.State
}

// List returns all stored revisions matching the filter.
func (s *TransformationService) List(ctx context.Context, filter ListFilter) ([]*models.TransformationRevision, error) {
	revs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := revs[:0]
	for _, rev := range revs {
		if filter.Type != "" && rev.Type != filter.Type {
			continue
		}
		if filter.State != "" && rev.State != filter.State {
			continue
		}
		out = append(out, rev)
	}
	return out, nil
}

// Get retrieves a single revision by id.
func (s *TransformationService) Get(ctx context.Context, id uuid.UUID) (*models.TransformationRevision, error) {
	return s.store.Get(ctx, id)
}

// GetByGroupAndTag retrieves the revision with the given version tag inside
// a revision group.
func (s *TransformationService) GetByGroupAndTag(ctx context.Context, groupID uuid.UUID, tag string) (*models.TransformationRevision, error) {
	return s.store.GetByGroupAndTag(ctx, groupID, tag)
}

// ValidateAndStore authorizes, validates and persists one revision write as
// a single unit: lifecycle check, graph validation, nesting recomputation
// and the store write either all happen or none do. The stored revision is
// returned with its transition timestamps stamped.
func (s *TransformationService) ValidateAndStore(ctx context.Context, rev *models.TransformationRevision, allowOverwriteReleased bool) (*models.TransformationRevision, error) {
	if err := rev.CheckComplete(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRevision, err)
	}

	existing, err := s.store.Get(ctx, rev.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Type != rev.Type {
			return nil, fmt.Errorf("%w: revision %s cannot change type from %s to %s",
				ErrInvalidRevision, rev.ID, existing.Type, rev.Type)
		}
		if err := lifecycle.AuthorizeWrite(rev.ID, existing.State, rev.State, allowOverwriteReleased); err != nil {
			return nil, err
		}
		// overwriting a released revision may not retarget its operators
		// while any stored workflow still embeds it
		if existing.State == models.StateReleased && operatorTargetsChanged(existing, rev) {
			users, err := s.activeUsers(ctx, rev.ID)
			if err != nil {
				return nil, err
			}
			if len(users) > 0 {
				return nil, &StillReferencedError{RevisionID: rev.ID, Workflows: users}
			}
		}
	}

	// version_tag is unique within a revision group, on create and on any
	// update that changes the tag
	if existing == nil || rev.VersionTag != existing.VersionTag {
		if conflict, err := s.versionTagTaken(ctx, rev); err != nil {
			return nil, err
		} else if conflict {
			return nil, fmt.Errorf("%w: tag %q in group %s", ErrDuplicateVersionTag, rev.VersionTag, rev.RevisionGroupID)
		}
	}

	lifecycle.Stamp(rev, existing, s.now())

	if err := graph.ValidateWiring(rev.TestWiring, rev.IOInterface); err != nil {
		return nil, err
	}

	var nestings []models.NestingRow
	switch rev.Type {
	case models.TypeWorkflow:
		resolve := func(id uuid.UUID) (*models.TransformationRevision, bool) {
			target, err := s.store.Get(ctx, id)
			if err != nil {
				return nil, false
			}
			return target, true
		}
		if err := graph.Validate(rev, resolve); err != nil {
			return nil, err
		}
		nestings, err = nesting.Recompute(ctx, s.store, rev)
		if err != nil {
			if errors.Is(err, nesting.ErrUnboundedNesting) {
				s.logger.Errorw("workflow nesting forms a reference cycle", "id", rev.ID, "error", err)
			}
			return nil, err
		}
	case models.TypeComponent:
		if rev.Content.Code == "" {
			code, err := codegen.GenerateComponentModule(rev)
			if err != nil {
				return nil, err
			}
			rev.Content.Code = code
		} else {
			// keep the generated COMPONENT_INFO region in sync with the
			// revision's details and io interface
			code, err := codegen.UpdateComponentModule(rev)
			if err != nil {
				return nil, err
			}
			rev.Content.Code = code
		}
	}

	if err := s.store.Put(ctx, rev, nestings); err != nil {
		return nil, err
	}

	s.stores.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(rev.Type))))
	s.logger.Infow("stored transformation revision",
		"id", rev.ID, "type", rev.Type, "state", rev.State, "version_tag", rev.VersionTag)
	return rev, nil
}

// CompileForExecution compiles the revision into one executable unit and
// verifies that none of the recursively read revisions changed underneath
// the compilation. On drift it returns ConcurrentModificationError, which
// the caller may retry.
func (s *TransformationService) CompileForExecution(ctx context.Context, id uuid.UUID) (*codegen.ExecutableUnit, error) {
	res, err := codegen.Compile(ctx, s.store, id)
	if err != nil {
		// validation prevents cycles from being stored; hitting one here
		// means the store holds corrupt data
		if errors.Is(err, graph.ErrStructural) {
			s.logger.Errorw("stored workflow graph contains a cycle", "id", id, "error", err)
		}
		return nil, err
	}

	for depID, sum := range res.ReadSet {
		current, err := s.store.Get(ctx, depID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &ConcurrentModificationError{RevisionID: depID}
			}
			return nil, err
		}
		currentSum, err := current.Checksum()
		if err != nil {
			return nil, err
		}
		if currentSum != sum {
			return nil, &ConcurrentModificationError{RevisionID: depID}
		}
	}

	s.compiles.Add(ctx, 1)
	s.logger.Debugw("compiled transformation revision", "id", id, "dependencies", len(res.Unit.Dependencies))
	return res.Unit, nil
}

// CheckDeletable reports whether a revision may be deleted: it must exist,
// must not be RELEASED, and no stored workflow may reference it.
func (s *TransformationService) CheckDeletable(ctx context.Context, id uuid.UUID) error {
	rev, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rev.State == models.StateReleased {
		return &lifecycle.ImmutableRevisionError{ID: id}
	}
	users, err := s.activeUsers(ctx, id)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return &StillReferencedError{RevisionID: id, Workflows: users}
	}
	return nil
}

// activeUsers returns the workflows that use a revision and could still run
// it. Disabled workflows never leave DISABLED, so they do not block deletion
// or structural overwrite.
func (s *TransformationService) activeUsers(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	users, err := nesting.UsedBy(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, wfID := range users {
		wf, err := s.store.Get(ctx, wfID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if wf.State != models.StateDisabled {
			active = append(active, wfID)
		}
	}
	return active, nil
}

// Delete removes a deletable revision together with its own nesting rows.
func (s *TransformationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.CheckDeletable(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("deleted transformation revision", "id", id)
	return nil
}

func (s *TransformationService) versionTagTaken(ctx context.Context, rev *models.TransformationRevision) (bool, error) {
	other, err := s.store.GetByGroupAndTag(ctx, rev.RevisionGroupID, rev.VersionTag)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return other.ID != rev.ID, nil
}

func operatorTargetsChanged(before, after *models.TransformationRevision) bool {
	if before.Type != models.TypeWorkflow {
		return false
	}
	targets := func(rev *models.TransformationRevision) map[uuid.UUID]int {
		out := make(map[uuid.UUID]int)
		if rev.Content.Workflow == nil {
			return out
		}
		for _, op := range rev.Content.Workflow.Operators {
			out[op.TransformationID]++
		}
		return out
	}
	b, a := targets(before), targets(after)
	if len(b) != len(a) {
		return true
	}
	for id, n := range b {
		if a[id] != n {
			return true
		}
	}
	return false
}
