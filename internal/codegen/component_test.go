package codegen

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeforge/backend/pkg/models"
)

func TestGenerateComponentModule(t *testing.T) {
	rev := &models.TransformationRevision{
		ID:              uuid.MustParse("c4dbcc42-eaec-4587-a362-ce6567f21d92"),
		RevisionGroupID: uuid.MustParse("f5a206ed-d4d9-4ec5-9dbb-567aff027f5b"),
		Name:            "Alerts from Score",
		Description:     "Generate a series of alerts from a score",
		Category:        "Anomaly Detection",
		Documentation:   "Thresholds the score and marks runs above it.",
		Type:            models.TypeComponent,
		State:           models.StateDraft,
		VersionTag:      "1.0.0",
		IOInterface: models.IOInterface{
			Inputs: []models.Connector{
				{ID: uuid.New(), Name: "scores", DataType: models.DataTypeSeries},
				{ID: uuid.New(), Name: "threshold", DataType: models.DataTypeFloat},
			},
			Outputs: []models.Connector{
				{ID: uuid.New(), Name: "alerts", DataType: models.DataTypeSeries},
			},
		},
	}

	code, err := GenerateComponentModule(rev)
	require.NoError(t, err)

	assert.Contains(t, code, `"""Documentation for Alerts from Score`)
	assert.Contains(t, code, "Thresholds the score and marks runs above it.")
	assert.Contains(t, code, "# ***** DO NOT EDIT LINES BELOW *****")
	assert.Contains(t, code, "# ***** DO NOT EDIT LINES ABOVE *****")
	assert.Contains(t, code, `"scores": {"data_type": "SERIES"}`)
	assert.Contains(t, code, `"threshold": {"data_type": "FLOAT"}`)
	assert.Contains(t, code, `"alerts": {"data_type": "SERIES"}`)
	assert.Contains(t, code, `"id": "c4dbcc42-eaec-4587-a362-ce6567f21d92"`)
	assert.Contains(t, code, `"state": "DRAFT"`)
	assert.Contains(t, code, "def main(*, scores, threshold):")
	assert.NotContains(t, code, "released_timestamp")
}

func TestGenerateComponentModuleTimestamps(t *testing.T) {
	released := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	rev := &models.TransformationRevision{
		ID: newID(), RevisionGroupID: newID(),
		Name:              "Identity",
		Type:              models.TypeComponent,
		State:             models.StateReleased,
		VersionTag:        "1.0.0",
		ReleasedTimestamp: &released,
	}

	code, err := GenerateComponentModule(rev)
	require.NoError(t, err)
	assert.Contains(t, code, `"released_timestamp": "2026-08-01T09:30:00Z"`)
}

func TestGenerateComponentModuleNoInputs(t *testing.T) {
	rev := &models.TransformationRevision{
		ID: newID(), RevisionGroupID: newID(),
		Name:       "Now",
		Type:       models.TypeComponent,
		State:      models.StateDraft,
		VersionTag: "1.0.0",
	}

	code, err := GenerateComponentModule(rev)
	require.NoError(t, err)
	assert.Contains(t, code, "def main(*):")
}

func TestGenerateComponentModuleRejectsWorkflows(t *testing.T) {
	rev := &models.TransformationRevision{
		ID: newID(), RevisionGroupID: newID(),
		Name:       "WF",
		Type:       models.TypeWorkflow,
		State:      models.StateDraft,
		VersionTag: "1.0.0",
		Content:    models.Content{Workflow: &models.WorkflowContent{}},
	}

	_, err := GenerateComponentModule(rev)
	assert.Error(t, err)
}

func TestGenerateComponentModuleEscapesStrings(t *testing.T) {
	rev := &models.TransformationRevision{
		ID: newID(), RevisionGroupID: newID(),
		Name:        `Quote "Heavy" Name`,
		Description: "line one\nline two",
		Type:        models.TypeComponent,
		State:       models.StateDraft,
		VersionTag:  "1.0.0",
	}

	code, err := GenerateComponentModule(rev)
	require.NoError(t, err)
	assert.Contains(t, code, `"name": "Quote \"Heavy\" Name"`)
	assert.Contains(t, code, `"description": "line one\nline two"`)
	assert.Equal(t, 1, strings.Count(code, "COMPONENT_INFO = {"))
}

func TestUpdateComponentModule(t *testing.T) {
	rev := &models.TransformationRevision{
		ID: newID(), RevisionGroupID: newID(),
		Name:       "Scale",
		Type:       models.TypeComponent,
		State:      models.StateDraft,
		VersionTag: "1.0.0",
		IOInterface: models.IOInterface{
			Inputs:  []models.Connector{{ID: newID(), Name: "x", DataType: models.DataTypeFloat}},
			Outputs: []models.Connector{{ID: newID(), Name: "y", DataType: models.DataTypeFloat}},
		},
	}
	code, err := GenerateComponentModule(rev)
	require.NoError(t, err)

	authored := code + `    return {"y": x * 2}` + "\n"
	rev.Content.Code = authored

	t.Run("interface changes rewrite the marked region only", func(t *testing.T) {
		rev.IOInterface.Inputs = append(rev.IOInterface.Inputs,
			models.Connector{ID: newID(), Name: "factor", DataType: models.DataTypeFloat})

		updated, err := UpdateComponentModule(rev)
		require.NoError(t, err)
		assert.Contains(t, updated, "def main(*, x, factor):")
		assert.Contains(t, updated, `"factor": {"data_type": "FLOAT"}`)
		assert.Contains(t, updated, `return {"y": x * 2}`)
		assert.Contains(t, updated, `"""Documentation for Scale`)
	})

	t.Run("code without markers passes through", func(t *testing.T) {
		rev.Content.Code = "def main(*, x):\n    return {\"y\": x}\n"
		updated, err := UpdateComponentModule(rev)
		require.NoError(t, err)
		assert.Equal(t, rev.Content.Code, updated)
	})
}

func newID() uuid.UUID { return uuid.New() }
