package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for programmatic checks via errors.Is().
var (
	// ErrStructural indicates a cycle in the operator graph.
	ErrStructural = errors.New("structural error")

	// ErrConnectivity indicates a missing or duplicated inbound link, or a
	// link end that names no existing connector.
	ErrConnectivity = errors.New("connectivity error")

	// ErrTypeMismatch indicates incompatible data types on a link.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDanglingReference indicates an operator whose target revision
	// cannot be resolved.
	ErrDanglingReference = errors.New("dangling reference")
)

// StructuralError reports one minimal cycle through the operator graph.
// CyclePath holds the operator ids from the revisited node back to itself.
type StructuralError struct {
	CyclePath []uuid.UUID
}

func (e *StructuralError) Error() string {
	parts := make([]string, len(e.CyclePath))
	for i, id := range e.CyclePath {
		parts[i] = id.String()
	}
	return fmt.Sprintf("%s: cycle detected: %s", ErrStructural.Error(), strings.Join(parts, " -> "))
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// ConnectivityError identifies the connector violating link cardinality or
// referencing a nonexistent slot.
type ConnectivityError struct {
	Connector string
	Msg       string
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: connector %q: %s", ErrConnectivity.Error(), e.Connector, e.Msg)
}

func (e *ConnectivityError) Unwrap() error { return ErrConnectivity }

// TypeMismatchError identifies a link whose source and destination types are
// neither identical nor bridged by an ANY destination.
type TypeMismatchError struct {
	LinkID   uuid.UUID
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: link %s expects %s but gets %s", ErrTypeMismatch.Error(), e.LinkID, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// DanglingReferenceError identifies an operator whose transformation id does
// not resolve to a usable revision.
type DanglingReferenceError struct {
	OperatorID       uuid.UUID
	TransformationID uuid.UUID
	Msg              string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: operator %s references %s: %s", ErrDanglingReference.Error(), e.OperatorID, e.TransformationID, e.Msg)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }
