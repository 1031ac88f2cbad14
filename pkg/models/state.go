package models

// State is the lifecycle state of a transformation revision.
type State string

const (
	StateDraft    State = "DRAFT"
	StateReleased State = "RELEASED"
	StateDisabled State = "DISABLED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateDraft, StateReleased, StateDisabled:
		return true
	}
	return false
}

// TransformationType distinguishes leaf components from workflow graphs.
type TransformationType string

const (
	TypeComponent TransformationType = "COMPONENT"
	TypeWorkflow  TransformationType = "WORKFLOW"
)

// Valid reports whether t is a known transformation type.
func (t TransformationType) Valid() bool {
	return t == TypeComponent || t == TypeWorkflow
}

// DataType is the nominal data type carried by a connector.
type DataType string

const (
	DataTypeInt          DataType = "INT"
	DataTypeFloat        DataType = "FLOAT"
	DataTypeString       DataType = "STRING"
	DataTypeBoolean      DataType = "BOOLEAN"
	DataTypeSeries       DataType = "SERIES"
	DataTypeDataFrame    DataType = "DATAFRAME"
	DataTypeMultiTSFrame DataType = "MULTITSFRAME"
	DataTypeAny          DataType = "ANY"
)

// AcceptsFrom reports whether a value of type src may flow into a
// destination of type d. Types must be identical unless the destination
// accepts any type.
func (d DataType) AcceptsFrom(src DataType) bool {
	return d == DataTypeAny || d == src
}
