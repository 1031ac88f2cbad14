// Package codegen turns stored transformation revisions into executable
// units. Components pass through verbatim; workflows are recursively
// expanded into an ordered sequence of operator invocations with bound
// inputs, handed to an external executor.
package codegen

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pipeforge/backend/pkg/models"
)

// ErrUnresolvedDependency indicates a referenced revision that could not be
// loaded or compiled.
var ErrUnresolvedDependency = errors.New("unresolved dependency")

// UnresolvedDependencyError reports the revision whose compilation failed
// and, when raised through an operator, the underlying cause.
type UnresolvedDependencyError struct {
	RevisionID uuid.UUID
	Err        error
}

func (e *UnresolvedDependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: revision %s: %v", ErrUnresolvedDependency.Error(), e.RevisionID, e.Err)
	}
	return fmt.Sprintf("%s: revision %s", ErrUnresolvedDependency.Error(), e.RevisionID)
}

func (e *UnresolvedDependencyError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnresolvedDependency
}

// Is lets errors.Is match the sentinel even when a cause is wrapped.
func (e *UnresolvedDependencyError) Is(target error) bool {
	return target == ErrUnresolvedDependency
}

// SourceKind discriminates where a bound value comes from.
type SourceKind string

const (
	SourceWorkflowInput  SourceKind = "workflow_input"
	SourceConstant       SourceKind = "constant"
	SourceOperatorOutput SourceKind = "operator_output"
)

// Source names the origin of one bound value: a workflow input, a fixed
// constant, or the output of an upstream operator.
type Source struct {
	Kind          SourceKind      `json:"kind"`
	WorkflowInput string          `json:"workflow_input,omitempty"`
	Value         string          `json:"value,omitempty"`
	DataType      models.DataType `json:"data_type,omitempty"`
	OperatorID    *uuid.UUID      `json:"operator_id,omitempty"`
	Output        string          `json:"output,omitempty"`
}

// InputBinding binds one named input of a step to its source.
type InputBinding struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
}

// Step is one operator invocation in execution order.
type Step struct {
	OperatorID       uuid.UUID      `json:"operator_id"`
	OperatorName     string         `json:"operator_name"`
	TransformationID uuid.UUID      `json:"transformation_id"`
	Inputs           []InputBinding `json:"inputs"`
}

// OutputWire binds one workflow output to the source producing it.
type OutputWire struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
}

// WorkflowBody is the compiled form of a workflow graph: steps in
// deterministic topological order plus the wiring of workflow outputs.
type WorkflowBody struct {
	Steps   []Step       `json:"steps"`
	Outputs []OutputWire `json:"outputs"`
}

// ExecutableUnit is the compiled, runnable artifact for one revision. Its
// external interface is exactly the revision's io interface; the body is
// either verbatim component code or a workflow body whose steps reference
// entries of the root unit's flat dependency table.
type ExecutableUnit struct {
	RevisionID   uuid.UUID                 `json:"revision_id"`
	Name         string                    `json:"name"`
	VersionTag   string                    `json:"version_tag"`
	Type         models.TransformationType `json:"type"`
	IOInterface  models.IOInterface        `json:"io_interface"`
	Code         string                    `json:"code,omitempty"`
	Workflow     *WorkflowBody             `json:"workflow,omitempty"`
	Dependencies []*ExecutableUnit         `json:"dependencies,omitempty"`
}
