package models

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// NestingRow records one distinct path by which a workflow transitively uses
// a descendant revision. Rows are derived data: recomputed on every workflow
// write, deleted with the workflow, never mutated in place.
type NestingRow struct {
	WorkflowID      uuid.UUID   `json:"workflow_id"`
	DescendantID    uuid.UUID   `json:"descendant_id"`
	ViaOperatorPath []uuid.UUID `json:"via_operator_path"`
	Depth           int         `json:"depth"`
}

// PathKey renders the operator path as a stable string, used for sorting and
// persistence.
func (r NestingRow) PathKey() string {
	parts := make([]string, len(r.ViaOperatorPath))
	for i, id := range r.ViaOperatorPath {
		parts[i] = id.String()
	}
	return strings.Join(parts, "/")
}

// SortNestingRows orders rows by (descendant id, operator path) so that
// recomputation yields byte-identical row sets on unchanged input.
func SortNestingRows(rows []NestingRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DescendantID != rows[j].DescendantID {
			return rows[i].DescendantID.String() < rows[j].DescendantID.String()
		}
		return rows[i].PathKey() < rows[j].PathKey()
	})
}
