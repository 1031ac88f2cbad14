package codegen

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"pipeforge/backend/internal/graph"
	"pipeforge/backend/internal/repository"
	"pipeforge/backend/pkg/models"
)

// Result carries a compiled unit together with the checksums of every
// revision read along the way, so callers can detect concurrent overwrites
// of dependencies before trusting the unit.
type Result struct {
	Unit    *ExecutableUnit
	ReadSet map[uuid.UUID]string
}

// Compile produces one executable unit from the revision with the given id,
// fully expanding nested workflows. Revisions used by several operators are
// compiled once per call and re-bound per step; the memo table lives only
// for this compilation, never across calls.
func Compile(ctx context.Context, store repository.RevisionStore, id uuid.UUID) (*Result, error) {
	c := &compiler{
		store:   store,
		memo:    make(map[uuid.UUID]*ExecutableUnit),
		readSet: make(map[uuid.UUID]string),
	}
	root, err := c.compile(ctx, id)
	if err != nil {
		return nil, err
	}

	deps := make([]*ExecutableUnit, 0, len(c.memo)-1)
	for depID, unit := range c.memo {
		if depID != id {
			deps = append(deps, unit)
		}
	}
	sort.Slice(deps, func(i, j int) bool {
		return deps[i].RevisionID.String() < deps[j].RevisionID.String()
	})
	root.Dependencies = deps

	return &Result{Unit: root, ReadSet: c.readSet}, nil
}

type compiler struct {
	store   repository.RevisionStore
	memo    map[uuid.UUID]*ExecutableUnit
	readSet map[uuid.UUID]string
	stack   []uuid.UUID
}

func (c *compiler) compile(ctx context.Context, id uuid.UUID) (*ExecutableUnit, error) {
	// a revision already on the compilation stack means validation was
	// bypassed and the store holds a reference cycle: fail closed
	for i, s := range c.stack {
		if s == id {
			return nil, &graph.StructuralError{CyclePath: append(append([]uuid.UUID{}, c.stack[i:]...), id)}
		}
	}
	if unit, ok := c.memo[id]; ok {
		return unit, nil
	}

	rev, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &UnresolvedDependencyError{RevisionID: id}
		}
		return nil, &UnresolvedDependencyError{RevisionID: id, Err: err}
	}
	sum, err := rev.Checksum()
	if err != nil {
		return nil, err
	}
	c.readSet[id] = sum

	unit := &ExecutableUnit{
		RevisionID:  rev.ID,
		Name:        rev.Name,
		VersionTag:  rev.VersionTag,
		Type:        rev.Type,
		IOInterface: rev.IOInterface,
	}

	switch rev.Type {
	case models.TypeComponent:
		// already executable: stored code and declared interface, verbatim
		unit.Code = rev.Content.Code
	case models.TypeWorkflow:
		c.stack = append(c.stack, id)
		body, err := c.compileWorkflow(ctx, rev)
		c.stack = c.stack[:len(c.stack)-1]
		if err != nil {
			return nil, err
		}
		unit.Workflow = body
	default:
		return nil, &UnresolvedDependencyError{RevisionID: id,
			Err: fmt.Errorf("unknown revision type %q", rev.Type)}
	}

	c.memo[id] = unit
	return unit, nil
}

func (c *compiler) compileWorkflow(ctx context.Context, rev *models.TransformationRevision) (*WorkflowBody, error) {
	w := rev.Content.Workflow
	if w == nil {
		return nil, &UnresolvedDependencyError{RevisionID: rev.ID,
			Err: fmt.Errorf("workflow has no graph content")}
	}

	ordered, err := graph.TopologicalSort(w)
	if err != nil {
		return nil, err
	}

	inbound := inboundLinks(w)
	body := &WorkflowBody{}

	for _, op := range ordered {
		if _, err := c.compile(ctx, op.TransformationID); err != nil {
			if errors.Is(err, ErrUnresolvedDependency) || errors.Is(err, graph.ErrStructural) {
				return nil, err
			}
			return nil, &UnresolvedDependencyError{RevisionID: op.TransformationID, Err: err}
		}

		step := Step{
			OperatorID:       op.ID,
			OperatorName:     op.Name,
			TransformationID: op.TransformationID,
		}
		for _, in := range op.Inputs {
			link, ok := inbound[endKey{operator: op.ID, connector: in.ID}]
			if !ok {
				return nil, &graph.ConnectivityError{
					Connector: fmt.Sprintf("%s.%s", op.Name, in.Name),
					Msg:       "operator input has no inbound link"}
			}
			src, err := resolveSource(w, link)
			if err != nil {
				return nil, err
			}
			step.Inputs = append(step.Inputs, InputBinding{Name: in.Name, Source: src})
		}
		body.Steps = append(body.Steps, step)
	}

	for _, out := range w.Outputs {
		link, ok := inbound[endKey{connector: out.ID}]
		if !ok {
			return nil, &graph.ConnectivityError{Connector: out.Name,
				Msg: "workflow output has no inbound link"}
		}
		src, err := resolveSource(w, link)
		if err != nil {
			return nil, err
		}
		body.Outputs = append(body.Outputs, OutputWire{Name: out.Name, Source: src})
	}

	return body, nil
}

type endKey struct {
	operator  uuid.UUID
	connector uuid.UUID
}

func inboundLinks(w *models.WorkflowContent) map[endKey]*models.Link {
	out := make(map[endKey]*models.Link, len(w.Links))
	for i := range w.Links {
		link := &w.Links[i]
		key := endKey{connector: link.End.Connector.ID}
		if link.End.Operator != nil {
			key.operator = *link.End.Operator
		}
		out[key] = link
	}
	return out
}

// resolveSource maps a link's start vertex to the binding the executor will
// evaluate: an upstream operator output, a workflow input, or a constant.
func resolveSource(w *models.WorkflowContent, link *models.Link) (Source, error) {
	if link.Start.Operator != nil {
		srcOp, ok := w.OperatorByID(*link.Start.Operator)
		if !ok {
			return Source{}, &graph.ConnectivityError{Connector: link.Start.Connector.Name,
				Msg: fmt.Sprintf("link %s starts at unknown operator %s", link.ID, *link.Start.Operator)}
		}
		for _, out := range srcOp.Outputs {
			if out.ID == link.Start.Connector.ID {
				opID := srcOp.ID
				return Source{Kind: SourceOperatorOutput, OperatorID: &opID, Output: out.Name}, nil
			}
		}
		return Source{}, &graph.ConnectivityError{Connector: link.Start.Connector.Name,
			Msg: fmt.Sprintf("link %s starts at no output of operator %s", link.ID, srcOp.Name)}
	}

	for _, in := range w.Inputs {
		if in.ID == link.Start.Connector.ID {
			return Source{Kind: SourceWorkflowInput, WorkflowInput: in.Name}, nil
		}
	}
	if constant, ok := w.ConstantByID(link.Start.Connector.ID); ok {
		return Source{Kind: SourceConstant, Value: constant.Value, DataType: constant.DataType}, nil
	}
	return Source{}, &graph.ConnectivityError{Connector: link.Start.Connector.Name,
		Msg: fmt.Sprintf("link %s starts at no workflow input or constant", link.ID)}
}
