package models

import "github.com/google/uuid"

// Connector is a named, typed input or output slot on a revision or operator.
type Connector struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	DataType DataType  `json:"data_type"`
}

// Position is diagram placement metadata. It carries no semantic weight.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// IOConnector is a connector placed on the workflow canvas.
type IOConnector struct {
	Connector
	Position Position `json:"position"`
}

// IOInterface is the ordered set of connectors a revision exposes to callers.
type IOInterface struct {
	Inputs  []Connector `json:"inputs"`
	Outputs []Connector `json:"outputs"`
}

// InputByName returns the input connector with the given name.
func (io IOInterface) InputByName(name string) (Connector, bool) {
	for _, c := range io.Inputs {
		if c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}

// OutputByName returns the output connector with the given name.
func (io IOInterface) OutputByName(name string) (Connector, bool) {
	for _, c := range io.Outputs {
		if c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}
