package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeforge/backend/pkg/models"
)

// diamondWorkflow builds operators A, B, C, D where A feeds both B and C and
// both feed D. B and C have no dependency between them, so the tie-break
// decides their relative order.
func diamondWorkflow() (*models.WorkflowContent, [4]uuid.UUID) {
	var ops [4]models.Operator
	var outs [4]models.IOConnector
	var ins [4][]models.IOConnector
	names := [4]string{"A", "B", "C", "D"}
	for i := range ops {
		outs[i] = connector("out", models.DataTypeFloat)
		ops[i] = models.Operator{
			ID:               uuid.New(),
			RevisionGroupID:  uuid.New(),
			Name:             names[i],
			Type:             models.TypeComponent,
			State:            models.StateReleased,
			VersionTag:       "1.0.0",
			TransformationID: uuid.New(),
			Outputs:          []models.IOConnector{outs[i]},
		}
	}
	for i := 1; i < 4; i++ {
		ins[i] = []models.IOConnector{connector("in", models.DataTypeFloat)}
		ops[i].Inputs = ins[i]
	}
	ins[3] = append(ins[3], connector("in2", models.DataTypeFloat))
	ops[3].Inputs = ins[3]

	w := &models.WorkflowContent{
		Operators: []models.Operator{ops[0], ops[1], ops[2], ops[3]},
		Links: []models.Link{
			link(&ops[0].ID, outs[0], &ops[1].ID, ins[1][0]),
			link(&ops[0].ID, outs[0], &ops[2].ID, ins[2][0]),
			link(&ops[1].ID, outs[1], &ops[3].ID, ins[3][0]),
			link(&ops[2].ID, outs[2], &ops[3].ID, ins[3][1]),
		},
	}
	return w, [4]uuid.UUID{ops[0].ID, ops[1].ID, ops[2].ID, ops[3].ID}
}

func TestTopologicalSort(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		ordered, err := TopologicalSort(&models.WorkflowContent{})
		require.NoError(t, err)
		assert.Empty(t, ordered)
	})

	t.Run("chain keeps data order", func(t *testing.T) {
		f := newChainFixture()
		ordered, err := TopologicalSort(f.w)
		require.NoError(t, err)
		require.Len(t, ordered, 2)
		assert.Equal(t, f.opA.ID, ordered[0].ID)
		assert.Equal(t, f.opB.ID, ordered[1].ID)
	})

	t.Run("independent operators break ties by declaration order", func(t *testing.T) {
		w, ids := diamondWorkflow()
		ordered, err := TopologicalSort(w)
		require.NoError(t, err)
		got := make([]uuid.UUID, len(ordered))
		for i, op := range ordered {
			got[i] = op.ID
		}
		assert.Equal(t, []uuid.UUID{ids[0], ids[1], ids[2], ids[3]}, got)

		// declaring C before B flips only the tie
		w.Operators[1], w.Operators[2] = w.Operators[2], w.Operators[1]
		ordered, err = TopologicalSort(w)
		require.NoError(t, err)
		got = got[:0]
		for _, op := range ordered {
			got = append(got, op.ID)
		}
		assert.Equal(t, []uuid.UUID{ids[0], ids[2], ids[1], ids[3]}, got)
	})

	t.Run("cycle fails closed with the cycle path", func(t *testing.T) {
		w, ids := diamondWorkflow()
		// back edge D -> A
		w.Links = append(w.Links, link(&w.Operators[3].ID, w.Operators[3].Outputs[0],
			&w.Operators[0].ID, connectorWithID(ids[0])))
		w.Operators[0].Inputs = []models.IOConnector{connectorWithID(ids[0])}

		ordered, err := TopologicalSort(w)
		assert.Nil(t, ordered)
		var structural *StructuralError
		require.ErrorAs(t, err, &structural)
		assert.NotEmpty(t, structural.CyclePath)
	})
}

func connectorWithID(id uuid.UUID) models.IOConnector {
	return models.IOConnector{Connector: models.Connector{ID: id, Name: "back", DataType: models.DataTypeFloat}}
}
