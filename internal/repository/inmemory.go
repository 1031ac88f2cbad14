package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pipeforge/backend/pkg/models"
)

// InMemoryStore is a mutex-guarded RevisionStore used by tests, seeding and
// dev mode. Revisions are deep-copied on the way in and out so callers never
// alias store-held data.
type InMemoryStore struct {
	mu        sync.RWMutex
	revisions map[uuid.UUID]*models.TransformationRevision
	nestings  map[uuid.UUID][]models.NestingRow
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		revisions: make(map[uuid.UUID]*models.TransformationRevision),
		nestings:  make(map[uuid.UUID][]models.NestingRow),
	}
}

// Get retrieves a revision by its id.
func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*models.TransformationRevision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rev, ok := s.revisions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rev.Clone()
}

// GetByGroupAndTag retrieves the revision with the given version tag inside
// a revision group.
func (s *InMemoryStore) GetByGroupAndTag(_ context.Context, groupID uuid.UUID, tag string) (*models.TransformationRevision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rev := range s.revisions {
		if rev.RevisionGroupID == groupID && rev.VersionTag == tag {
			return rev.Clone()
		}
	}
	return nil, ErrNotFound
}

// List returns all stored revisions, ordered by id.
func (s *InMemoryStore) List(_ context.Context) ([]*models.TransformationRevision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TransformationRevision, 0, len(s.revisions))
	for _, rev := range s.revisions {
		clone, err := rev.Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Put creates or overwrites a revision and replaces its nesting rows
// atomically under the store lock.
func (s *InMemoryStore) Put(_ context.Context, rev *models.TransformationRevision, nestings []models.NestingRow) error {
	clone, err := rev.Clone()
	if err != nil {
		return err
	}
	rows := append([]models.NestingRow(nil), nestings...)
	models.SortNestingRows(rows)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revisions[clone.ID] = clone
	if len(rows) == 0 {
		delete(s.nestings, clone.ID)
	} else {
		s.nestings[clone.ID] = rows
	}
	return nil
}

// Delete removes a revision and its own nesting rows.
func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revisions[id]; !ok {
		return ErrNotFound
	}
	delete(s.revisions, id)
	delete(s.nestings, id)
	return nil
}

// ListNesting returns the stored nesting rows of a workflow.
func (s *InMemoryStore) ListNesting(_ context.Context, workflowID uuid.UUID) ([]models.NestingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := append([]models.NestingRow(nil), s.nestings[workflowID]...)
	return rows, nil
}

// UsedBy returns the ids of all workflows with a nesting row pointing at the
// given revision.
func (s *InMemoryStore) UsedBy(_ context.Context, revisionID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uuid.UUID
	for wfID, rows := range s.nestings {
		for _, row := range rows {
			if row.DescendantID == revisionID {
				out = append(out, wfID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
