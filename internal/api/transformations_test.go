package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pipeforge/backend/internal/codegen"
	"pipeforge/backend/internal/repository"
	"pipeforge/backend/internal/services"
	"pipeforge/backend/pkg/models"
)

func newTestAPI() *echo.Echo {
	e := echo.New()
	service := services.NewTransformationService(repository.NewInMemoryStore(), zap.NewNop().Sugar())
	NewServer(service).RegisterRoutes(e.Group("/api"))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func apiComponent(name string) *models.TransformationRevision {
	return &models.TransformationRevision{
		ID:              uuid.New(),
		RevisionGroupID: uuid.New(),
		Name:            name,
		Category:        "Test",
		Type:            models.TypeComponent,
		State:           models.StateDraft,
		VersionTag:      "1.0.0",
		IOInterface: models.IOInterface{
			Inputs:  []models.Connector{{ID: uuid.New(), Name: "x", DataType: models.DataTypeFloat}},
			Outputs: []models.Connector{{ID: uuid.New(), Name: "y", DataType: models.DataTypeFloat}},
		},
		Content: models.Content{Code: "def main(*, x):\n    return {\"y\": x}\n"},
	}
}

func apiWorkflow(name string, target *models.TransformationRevision) *models.TransformationRevision {
	opIn := models.IOConnector{Connector: target.IOInterface.Inputs[0]}
	opOut := models.IOConnector{Connector: target.IOInterface.Outputs[0]}
	op := models.Operator{
		ID:               uuid.New(),
		RevisionGroupID:  target.RevisionGroupID,
		Name:             target.Name,
		Type:             target.Type,
		State:            target.State,
		VersionTag:       target.VersionTag,
		TransformationID: target.ID,
		Inputs:           []models.IOConnector{opIn},
		Outputs:          []models.IOConnector{opOut},
	}
	wfIn := models.IOConnector{Connector: models.Connector{ID: uuid.New(), Name: "X", DataType: models.DataTypeFloat}}
	wfOut := models.IOConnector{Connector: models.Connector{ID: uuid.New(), Name: "Y", DataType: models.DataTypeFloat}}

	return &models.TransformationRevision{
		ID:              uuid.New(),
		RevisionGroupID: uuid.New(),
		Name:            name,
		Type:            models.TypeWorkflow,
		State:           models.StateDraft,
		VersionTag:      "1.0.0",
		IOInterface: models.IOInterface{
			Inputs:  []models.Connector{wfIn.Connector},
			Outputs: []models.Connector{wfOut.Connector},
		},
		Content: models.Content{Workflow: &models.WorkflowContent{
			Inputs:    []models.IOConnector{wfIn},
			Outputs:   []models.IOConnector{wfOut},
			Operators: []models.Operator{op},
			Links: []models.Link{
				{ID: uuid.New(), Start: models.Vertex{Connector: wfIn}, End: models.Vertex{Operator: &op.ID, Connector: opIn}},
				{ID: uuid.New(), Start: models.Vertex{Operator: &op.ID, Connector: opOut}, End: models.Vertex{Connector: wfOut}},
			},
		}},
	}
}

func TestTransformationEndpoints(t *testing.T) {
	e := newTestAPI()
	c := apiComponent("Scale")

	t.Run("create", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/transformations", c)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var stored models.TransformationRevision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
		assert.Equal(t, c.ID, stored.ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/transformations/"+c.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.TransformationRevision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, c.Content.Code, got.Content.Code)
	})

	t.Run("get unknown id is 404", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/transformations/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Found no transformation revision")
	})

	t.Run("get malformed id is 400", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/transformations/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list with filters", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/transformations?type=COMPONENT", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var revs []models.TransformationRevision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &revs))
		assert.Len(t, revs, 1)

		rec = doJSON(t, e, http.MethodGet, "/api/transformations?type=WORKFLOW", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("update", func(t *testing.T) {
		updated, err := c.Clone()
		require.NoError(t, err)
		updated.Description = "now documented"
		rec := doJSON(t, e, http.MethodPut, "/api/transformations/"+c.ID.String(), updated)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("update with mismatched ids is 409", func(t *testing.T) {
		other := apiComponent("Other")
		rec := doJSON(t, e, http.MethodPut, "/api/transformations/"+c.ID.String(), other)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodDelete, "/api/transformations/"+c.ID.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, e, http.MethodDelete, "/api/transformations/"+c.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTransformationLifecycleOverHTTP(t *testing.T) {
	e := newTestAPI()
	c := apiComponent("Scale")

	rec := doJSON(t, e, http.MethodPost, "/api/transformations", c)
	require.Equal(t, http.StatusCreated, rec.Code)

	released, err := c.Clone()
	require.NoError(t, err)
	released.State = models.StateReleased
	rec = doJSON(t, e, http.MethodPut, "/api/transformations/"+c.ID.String(), released)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("overwriting a released revision is 403 without the flag", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPut, "/api/transformations/"+c.ID.String(), released)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("the flag permits the overwrite", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPut,
			"/api/transformations/"+c.ID.String()+"?allow_overwrite_released=true", released)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("deleting a released revision is 403", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodDelete, "/api/transformations/"+c.ID.String(), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("duplicate version tag is 409", func(t *testing.T) {
		dup := apiComponent("Dup")
		dup.RevisionGroupID = c.RevisionGroupID
		rec := doJSON(t, e, http.MethodPost, "/api/transformations", dup)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestWorkflowValidationOverHTTP(t *testing.T) {
	e := newTestAPI()
	c := apiComponent("Scale")
	rec := doJSON(t, e, http.MethodPost, "/api/transformations", c)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("valid workflow is stored", func(t *testing.T) {
		wf := apiWorkflow("WF", c)
		rec := doJSON(t, e, http.MethodPost, "/api/transformations", wf)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("dangling operator reference is 404", func(t *testing.T) {
		wf := apiWorkflow("Dangling", c)
		wf.Content.Workflow.Operators[0].TransformationID = uuid.New()
		rec := doJSON(t, e, http.MethodPost, "/api/transformations", wf)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unwired input is 422", func(t *testing.T) {
		wf := apiWorkflow("Unwired", c)
		wf.Content.Workflow.Links = wf.Content.Workflow.Links[1:]
		rec := doJSON(t, e, http.MethodPost, "/api/transformations", wf)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("incomplete revision is 400", func(t *testing.T) {
		wf := apiWorkflow("NoTag", c)
		wf.VersionTag = ""
		rec := doJSON(t, e, http.MethodPost, "/api/transformations", wf)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCompileOverHTTP(t *testing.T) {
	e := newTestAPI()
	c := apiComponent("Scale")
	rec := doJSON(t, e, http.MethodPost, "/api/transformations", c)
	require.Equal(t, http.StatusCreated, rec.Code)
	wf := apiWorkflow("WF", c)
	rec = doJSON(t, e, http.MethodPost, "/api/transformations", wf)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("compile returns the executable unit", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/transformations/"+wf.ID.String()+"/compile", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var unit codegen.ExecutableUnit
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unit))
		assert.Equal(t, wf.ID, unit.RevisionID)
		require.NotNil(t, unit.Workflow)
		require.Len(t, unit.Workflow.Steps, 1)
		require.Len(t, unit.Dependencies, 1)
		assert.Equal(t, c.ID, unit.Dependencies[0].RevisionID)
	})

	t.Run("compiling an unknown revision is 404", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/transformations/"+uuid.NewString()+"/compile", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
