package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"pipeforge/backend/internal/codegen"
	"pipeforge/backend/internal/graph"
	"pipeforge/backend/internal/lifecycle"
	"pipeforge/backend/internal/nesting"
	"pipeforge/backend/internal/repository"
	"pipeforge/backend/internal/services"
	"pipeforge/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Service *services.TransformationService
}

// NewServer creates a new Server.
func NewServer(service *services.TransformationService) *Server {
	return &Server{Service: service}
}

// RegisterRoutes mounts all transformation endpoints on the given group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/transformations", s.ListTransformations)
	g.POST("/transformations", s.CreateTransformation)
	g.GET("/transformations/:id", s.GetTransformation)
	g.PUT("/transformations/:id", s.UpdateTransformation)
	g.DELETE("/transformations/:id", s.DeleteTransformation)
	g.POST("/transformations/:id/compile", s.CompileTransformation)
}

// ListTransformations returns all stored revisions, optionally filtered by
// ?type= and ?state=
// (GET /api/transformations)
func (s *Server) ListTransformations(c echo.Context) error {
	ctx := c.Request().Context()

	filter := services.ListFilter{
		Type:  models.TransformationType(c.QueryParam("type")),
		State: models.State(c.QueryParam("state")),
	}
	revisions, err := s.Service.List(ctx, filter)
	if err != nil {
		return toHTTPError(err)
	}
	if revisions == nil {
		revisions = []*models.TransformationRevision{}
	}
	return c.JSON(http.StatusOK, revisions)
}

// GetTransformation returns one revision by id
// (GET /api/transformations/:id)
func (s *Server) GetTransformation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid revision id: "+err.Error())
	}
	rev, err := s.Service.Get(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rev)
}

// CreateTransformation stores a new revision
// (POST /api/transformations)
func (s *Server) CreateTransformation(c echo.Context) error {
	return s.storeTransformation(c, uuid.Nil)
}

// UpdateTransformation overwrites a revision by id; released revisions need
// ?allow_overwrite_released=true
// (PUT /api/transformations/:id)
func (s *Server) UpdateTransformation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid revision id: "+err.Error())
	}
	return s.storeTransformation(c, id)
}

func (s *Server) storeTransformation(c echo.Context, id uuid.UUID) error {
	ctx := c.Request().Context()

	var rev models.TransformationRevision
	if err := c.Bind(&rev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if id != uuid.Nil && rev.ID != id {
		return echo.NewHTTPError(http.StatusConflict, "Path id and body id differ")
	}

	allowOverwrite := c.QueryParam("allow_overwrite_released") == "true"
	stored, err := s.Service.ValidateAndStore(ctx, &rev, allowOverwrite)
	if err != nil {
		return toHTTPError(err)
	}

	status := http.StatusOK
	if id == uuid.Nil {
		status = http.StatusCreated
	}
	return c.JSON(status, stored)
}

// DeleteTransformation removes a revision if nothing references it
// (DELETE /api/transformations/:id)
func (s *Server) DeleteTransformation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid revision id: "+err.Error())
	}
	if err := s.Service.Delete(ctx, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CompileTransformation compiles a revision into one executable unit for an
// external executor
// (POST /api/transformations/:id/compile)
func (s *Server) CompileTransformation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid revision id: "+err.Error())
	}
	unit, err := s.Service.CompileForExecution(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, unit)
}

// toHTTPError maps core error types onto HTTP statuses: not-found and
// dangling references to 404, immutability to 403, lifecycle and reference
// conflicts to 409, validation failures to 422.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Found no transformation revision: "+err.Error())
	case errors.Is(err, graph.ErrDanglingReference),
		errors.Is(err, codegen.ErrUnresolvedDependency):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrImmutable):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, services.ErrStillReferenced),
		errors.Is(err, services.ErrDuplicateVersionTag),
		errors.Is(err, services.ErrConcurrentModification):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, graph.ErrStructural),
		errors.Is(err, graph.ErrConnectivity),
		errors.Is(err, graph.ErrTypeMismatch),
		errors.Is(err, nesting.ErrUnboundedNesting):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidRevision):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
