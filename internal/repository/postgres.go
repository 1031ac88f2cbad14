package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pipeforge/backend/pkg/models"
)

// PostgresRevisionStore is a PostgreSQL implementation of the RevisionStore
// interface. Each revision is stored as a jsonb document alongside the
// columns queries filter on; nesting rows live in their own table and are
// replaced together with the revision in one transaction.
type PostgresRevisionStore struct {
	db *pgxpool.Pool
}

// NewPostgresRevisionStore creates a new PostgresRevisionStore.
func NewPostgresRevisionStore(db *pgxpool.Pool) *PostgresRevisionStore {
	return &PostgresRevisionStore{db: db}
}

// EnsureSchema creates the tables the store needs if they do not exist.
func (s *PostgresRevisionStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transformation_revisions (
			id UUID PRIMARY KEY,
			revision_group_id UUID NOT NULL,
			version_tag TEXT NOT NULL,
			type TEXT NOT NULL,
			state TEXT NOT NULL,
			document JSONB NOT NULL,
			UNIQUE (revision_group_id, version_tag)
		);
		CREATE TABLE IF NOT EXISTS nestings (
			workflow_id UUID NOT NULL REFERENCES transformation_revisions (id) ON DELETE CASCADE,
			descendant_id UUID NOT NULL,
			via_operator_path TEXT NOT NULL,
			depth INT NOT NULL,
			PRIMARY KEY (workflow_id, descendant_id, via_operator_path)
		);
		CREATE INDEX IF NOT EXISTS nestings_descendant_idx ON nestings (descendant_id);
	`)
	return err
}

// Get retrieves a revision by its id.
func (s *PostgresRevisionStore) Get(ctx context.Context, id uuid.UUID) (*models.TransformationRevision, error) {
	return s.scanRevision(s.db.QueryRow(ctx,
		"SELECT document FROM transformation_revisions WHERE id = $1", id))
}

// GetByGroupAndTag retrieves the revision with the given version tag inside
// a revision group.
func (s *PostgresRevisionStore) GetByGroupAndTag(ctx context.Context, groupID uuid.UUID, tag string) (*models.TransformationRevision, error) {
	return s.scanRevision(s.db.QueryRow(ctx,
		"SELECT document FROM transformation_revisions WHERE revision_group_id = $1 AND version_tag = $2", groupID, tag))
}

func (s *PostgresRevisionStore) scanRevision(row pgx.Row) (*models.TransformationRevision, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rev models.TransformationRevision
	if err := json.Unmarshal(doc, &rev); err != nil {
		return nil, fmt.Errorf("decoding stored revision: %w", err)
	}
	return &rev, nil
}

// List returns all stored revisions, ordered by id.
func (s *PostgresRevisionStore) List(ctx context.Context) ([]*models.TransformationRevision, error) {
	rows, err := s.db.Query(ctx, "SELECT document FROM transformation_revisions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TransformationRevision
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var rev models.TransformationRevision
		if err := json.Unmarshal(doc, &rev); err != nil {
			return nil, fmt.Errorf("decoding stored revision: %w", err)
		}
		out = append(out, &rev)
	}
	return out, rows.Err()
}

// Put creates or overwrites a revision by id and replaces its nesting rows
// in the same transaction.
func (s *PostgresRevisionStore) Put(ctx context.Context, rev *models.TransformationRevision, nestings []models.NestingRow) error {
	doc, err := json.Marshal(rev)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO transformation_revisions (id, revision_group_id, version_tag, type, state, document)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			revision_group_id = EXCLUDED.revision_group_id,
			version_tag = EXCLUDED.version_tag,
			type = EXCLUDED.type,
			state = EXCLUDED.state,
			document = EXCLUDED.document`,
		rev.ID, rev.RevisionGroupID, rev.VersionTag, rev.Type, rev.State, doc)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM nestings WHERE workflow_id = $1", rev.ID); err != nil {
		return err
	}
	for _, row := range nestings {
		_, err := tx.Exec(ctx,
			"INSERT INTO nestings (workflow_id, descendant_id, via_operator_path, depth) VALUES ($1, $2, $3, $4)",
			row.WorkflowID, row.DescendantID, row.PathKey(), row.Depth)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a revision; its nesting rows go with it via the foreign
// key cascade.
func (s *PostgresRevisionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM transformation_revisions WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNesting returns the stored nesting rows of a workflow, ordered by
// (descendant id, operator path).
func (s *PostgresRevisionStore) ListNesting(ctx context.Context, workflowID uuid.UUID) ([]models.NestingRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT workflow_id, descendant_id, via_operator_path, depth
		FROM nestings WHERE workflow_id = $1
		ORDER BY descendant_id, via_operator_path`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NestingRow
	for rows.Next() {
		var row models.NestingRow
		var path string
		if err := rows.Scan(&row.WorkflowID, &row.DescendantID, &path, &row.Depth); err != nil {
			return nil, err
		}
		row.ViaOperatorPath, err = parseOperatorPath(path)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UsedBy returns the ids of all workflows with a nesting row pointing at
// the given revision.
func (s *PostgresRevisionStore) UsedBy(ctx context.Context, revisionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		"SELECT DISTINCT workflow_id FROM nestings WHERE descendant_id = $1 ORDER BY workflow_id", revisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func parseOperatorPath(path string) ([]uuid.UUID, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, "/")
	out := make([]uuid.UUID, len(parts))
	for i, part := range parts {
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("corrupt operator path %q: %w", path, err)
		}
		out[i] = id
	}
	return out, nil
}
