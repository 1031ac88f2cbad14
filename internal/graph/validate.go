// Package graph validates workflow graphs and orders their operators.
//
// A workflow's content is a DAG: operators reference other transformation
// revisions, links wire connectors together, constants substitute for wired
// inputs. Validation enforces the structural invariants every stored
// workflow must satisfy; the sort produces the deterministic execution
// order used by code generation.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"pipeforge/backend/pkg/models"
)

// ResolveFunc looks up a revision referenced by an operator. The second
// return value is false when no such revision exists.
type ResolveFunc func(id uuid.UUID) (*models.TransformationRevision, bool)

// Validate checks all workflow graph invariants: the io interface matches
// the graph-level connectors, every link joins one existing source to one
// existing destination of a compatible type, every operator input and
// workflow output has exactly one inbound link, operator targets resolve,
// and the operator graph is acyclic. Components are not validated; their
// content is opaque.
func Validate(rev *models.TransformationRevision, resolve ResolveFunc) error {
	if rev.Type != models.TypeWorkflow {
		return nil
	}
	w := rev.Content.Workflow
	if w == nil {
		return &ConnectivityError{Connector: "", Msg: "workflow has no graph content"}
	}

	if err := checkInterfaceMatchesGraph(rev.IOInterface, w); err != nil {
		return err
	}
	if err := checkOperatorTargets(rev.State, w, resolve); err != nil {
		return err
	}
	if err := checkLinks(w); err != nil {
		return err
	}
	return checkAcyclic(w)
}

// ValidateWiring checks that a test wiring names only connectors present in
// the revision's io interface.
func ValidateWiring(wiring models.TestWiring, io models.IOInterface) error {
	for _, iw := range wiring.InputWirings {
		if _, ok := io.InputByName(iw.WorkflowInputName); !ok {
			return &ConnectivityError{Connector: iw.WorkflowInputName, Msg: "test wiring names no existing input"}
		}
	}
	for _, ow := range wiring.OutputWirings {
		if _, ok := io.OutputByName(ow.WorkflowOutputName); !ok {
			return &ConnectivityError{Connector: ow.WorkflowOutputName, Msg: "test wiring names no existing output"}
		}
	}
	return nil
}

func checkInterfaceMatchesGraph(io models.IOInterface, w *models.WorkflowContent) error {
	if len(io.Inputs) != len(w.Inputs) {
		return &ConnectivityError{Connector: "", Msg: fmt.Sprintf(
			"io interface declares %d inputs but the graph has %d", len(io.Inputs), len(w.Inputs))}
	}
	if len(io.Outputs) != len(w.Outputs) {
		return &ConnectivityError{Connector: "", Msg: fmt.Sprintf(
			"io interface declares %d outputs but the graph has %d", len(io.Outputs), len(w.Outputs))}
	}
	for _, in := range w.Inputs {
		c, ok := io.InputByName(in.Name)
		if !ok || c.DataType != in.DataType {
			return &ConnectivityError{Connector: in.Name, Msg: "graph input not mirrored in io interface"}
		}
	}
	for _, out := range w.Outputs {
		c, ok := io.OutputByName(out.Name)
		if !ok || c.DataType != out.DataType {
			return &ConnectivityError{Connector: out.Name, Msg: "graph output not mirrored in io interface"}
		}
	}
	return nil
}

func checkOperatorTargets(state models.State, w *models.WorkflowContent, resolve ResolveFunc) error {
	for i := range w.Operators {
		op := &w.Operators[i]
		target, ok := resolve(op.TransformationID)
		if !ok {
			return &DanglingReferenceError{OperatorID: op.ID, TransformationID: op.TransformationID,
				Msg: "no such revision"}
		}
		if state == models.StateReleased && target.State == models.StateDisabled {
			return &DanglingReferenceError{OperatorID: op.ID, TransformationID: op.TransformationID,
				Msg: "released workflow references a disabled revision"}
		}
	}
	return nil
}

// linkEnd keys a destination connector: the operator input or workflow
// output a link terminates at.
type linkEnd struct {
	operator  uuid.UUID // uuid.Nil for workflow outputs
	connector uuid.UUID
}

func checkLinks(w *models.WorkflowContent) error {
	inbound := make(map[linkEnd]int)

	for i := range w.Links {
		link := &w.Links[i]
		srcType, err := sourceType(w, link)
		if err != nil {
			return err
		}
		dstType, end, err := destinationType(w, link)
		if err != nil {
			return err
		}
		if !dstType.AcceptsFrom(srcType) {
			return &TypeMismatchError{LinkID: link.ID, Expected: string(dstType), Actual: string(srcType)}
		}
		inbound[end]++
		if inbound[end] > 1 {
			return &ConnectivityError{Connector: link.End.Connector.Name,
				Msg: "more than one inbound link (fan-in is forbidden)"}
		}
	}

	// every operator input and every workflow output needs its single link
	for i := range w.Operators {
		op := &w.Operators[i]
		for _, in := range op.Inputs {
			if inbound[linkEnd{operator: op.ID, connector: in.ID}] == 0 {
				return &ConnectivityError{Connector: fmt.Sprintf("%s.%s", op.Name, in.Name),
					Msg: "operator input has no inbound link"}
			}
		}
	}
	for _, out := range w.Outputs {
		if inbound[linkEnd{connector: out.ID}] == 0 {
			return &ConnectivityError{Connector: out.Name, Msg: "workflow output has no inbound link"}
		}
	}
	return nil
}

func sourceType(w *models.WorkflowContent, link *models.Link) (models.DataType, error) {
	if link.Start.Operator != nil {
		op, ok := w.OperatorByID(*link.Start.Operator)
		if !ok {
			return "", &ConnectivityError{Connector: link.Start.Connector.Name,
				Msg: fmt.Sprintf("link %s starts at unknown operator %s", link.ID, *link.Start.Operator)}
		}
		for _, out := range op.Outputs {
			if out.ID == link.Start.Connector.ID {
				return out.DataType, nil
			}
		}
		return "", &ConnectivityError{Connector: link.Start.Connector.Name,
			Msg: fmt.Sprintf("link %s starts at no output of operator %s", link.ID, op.Name)}
	}
	for _, in := range w.Inputs {
		if in.ID == link.Start.Connector.ID {
			return in.DataType, nil
		}
	}
	if c, ok := w.ConstantByID(link.Start.Connector.ID); ok {
		return c.DataType, nil
	}
	return "", &ConnectivityError{Connector: link.Start.Connector.Name,
		Msg: fmt.Sprintf("link %s starts at no workflow input or constant", link.ID)}
}

func destinationType(w *models.WorkflowContent, link *models.Link) (models.DataType, linkEnd, error) {
	if link.End.Operator != nil {
		op, ok := w.OperatorByID(*link.End.Operator)
		if !ok {
			return "", linkEnd{}, &ConnectivityError{Connector: link.End.Connector.Name,
				Msg: fmt.Sprintf("link %s ends at unknown operator %s", link.ID, *link.End.Operator)}
		}
		for _, in := range op.Inputs {
			if in.ID == link.End.Connector.ID {
				return in.DataType, linkEnd{operator: op.ID, connector: in.ID}, nil
			}
		}
		return "", linkEnd{}, &ConnectivityError{Connector: link.End.Connector.Name,
			Msg: fmt.Sprintf("link %s ends at no input of operator %s", link.ID, op.Name)}
	}
	for _, out := range w.Outputs {
		if out.ID == link.End.Connector.ID {
			return out.DataType, linkEnd{connector: out.ID}, nil
		}
	}
	return "", linkEnd{}, &ConnectivityError{Connector: link.End.Connector.Name,
		Msg: fmt.Sprintf("link %s ends at no workflow output", link.ID)}
}

// checkAcyclic runs a depth-first traversal over the operator-collapsed
// graph. A revisit of an operator still on the recursion stack is a cycle;
// the reported path is the stack slice from that operator back to itself.
func checkAcyclic(w *models.WorkflowContent) error {
	adjacency := operatorAdjacency(w)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uuid.UUID]int, len(w.Operators))
	var stack []uuid.UUID

	var visit func(id uuid.UUID) error
	visit = func(id uuid.UUID) error {
		color[id] = gray
		stack = append(stack, id)

		for _, next := range adjacency[id] {
			switch color[next] {
			case gray:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append(append([]uuid.UUID{}, stack[start:]...), next)
				return &StructuralError{CyclePath: cycle}
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for i := range w.Operators {
		if color[w.Operators[i].ID] == white {
			if err := visit(w.Operators[i].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// operatorAdjacency collapses operators to nodes: an edge src -> dst exists
// for every link from an output of src to an input of dst. Neighbor order
// follows link declaration order, keeping traversal deterministic.
func operatorAdjacency(w *models.WorkflowContent) map[uuid.UUID][]uuid.UUID {
	adjacency := make(map[uuid.UUID][]uuid.UUID, len(w.Operators))
	for i := range w.Links {
		link := &w.Links[i]
		if link.Start.Operator == nil || link.End.Operator == nil {
			continue
		}
		adjacency[*link.Start.Operator] = append(adjacency[*link.Start.Operator], *link.End.Operator)
	}
	return adjacency
}
