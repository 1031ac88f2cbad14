package graph

import (
	"github.com/google/uuid"

	"pipeforge/backend/pkg/models"
)

// TopologicalSort orders a workflow's operators so that every operator
// appears after all operators feeding its inputs. Ties between independent
// operators are broken by declaration order, so the result is deterministic
// for structurally equal graphs regardless of map iteration order.
//
// The sort fails closed: if the graph contains a cycle it returns the same
// StructuralError Validate would have reported rather than emitting a
// partial order.
func TopologicalSort(w *models.WorkflowContent) ([]*models.Operator, error) {
	adjacency := operatorAdjacency(w)

	indegree := make(map[uuid.UUID]int, len(w.Operators))
	for i := range w.Operators {
		indegree[w.Operators[i].ID] = 0
	}
	for _, targets := range adjacency {
		for _, dst := range targets {
			indegree[dst]++
		}
	}

	ordered := make([]*models.Operator, 0, len(w.Operators))
	done := make(map[uuid.UUID]bool, len(w.Operators))

	for len(ordered) < len(w.Operators) {
		// pick the first ready operator in declaration order
		picked := -1
		for i := range w.Operators {
			id := w.Operators[i].ID
			if !done[id] && indegree[id] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			// every remaining operator waits on another: a cycle
			if err := checkAcyclic(w); err != nil {
				return nil, err
			}
			return nil, &StructuralError{}
		}

		op := &w.Operators[picked]
		done[op.ID] = true
		ordered = append(ordered, op)
		for _, dst := range adjacency[op.ID] {
			indegree[dst]--
		}
	}
	return ordered, nil
}
