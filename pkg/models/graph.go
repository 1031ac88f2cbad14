package models

import "github.com/google/uuid"

// Operator is a placed reference, inside a workflow graph, to another
// transformation revision. Descriptive fields and connectors are a snapshot
// of the referenced revision taken when the operator was placed.
type Operator struct {
	ID               uuid.UUID          `json:"id"`
	RevisionGroupID  uuid.UUID          `json:"revision_group_id"`
	Name             string             `json:"name"`
	Type             TransformationType `json:"type"`
	State            State              `json:"state"`
	VersionTag       string             `json:"version_tag"`
	TransformationID uuid.UUID          `json:"transformation_id"`
	Inputs           []IOConnector      `json:"inputs"`
	Outputs          []IOConnector      `json:"outputs"`
	Position         Position           `json:"position"`
}

// Constant is a fixed value bound to a workflow graph. It acts as a link
// source in place of a wired input; the value is the serialized form of the
// declared data type.
type Constant struct {
	ID       uuid.UUID `json:"id"`
	DataType DataType  `json:"data_type"`
	Value    string    `json:"value"`
	Position Position  `json:"position"`
}

// Vertex identifies one end of a link. Operator is nil when the connector
// belongs to the workflow itself (an input, output, or constant).
type Vertex struct {
	Operator  *uuid.UUID  `json:"operator,omitempty"`
	Connector IOConnector `json:"connector"`
}

// Link is a directed wire from exactly one source connector to exactly one
// destination connector. Path is presentation-only routing geometry.
type Link struct {
	ID    uuid.UUID  `json:"id"`
	Start Vertex     `json:"start"`
	End   Vertex     `json:"end"`
	Path  []Position `json:"path"`
}

// WorkflowContent is the internal graph of a workflow revision.
type WorkflowContent struct {
	Inputs    []IOConnector `json:"inputs"`
	Outputs   []IOConnector `json:"outputs"`
	Constants []Constant    `json:"constants"`
	Operators []Operator    `json:"operators"`
	Links     []Link        `json:"links"`
}

// OperatorByID returns the operator with the given id.
func (w *WorkflowContent) OperatorByID(id uuid.UUID) (*Operator, bool) {
	for i := range w.Operators {
		if w.Operators[i].ID == id {
			return &w.Operators[i], true
		}
	}
	return nil, false
}

// ConstantByID returns the constant with the given id.
func (w *WorkflowContent) ConstantByID(id uuid.UUID) (*Constant, bool) {
	for i := range w.Constants {
		if w.Constants[i].ID == id {
			return &w.Constants[i], true
		}
	}
	return nil, false
}
