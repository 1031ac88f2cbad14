package models

// AdapterDirectProvisioning marks wirings whose values are supplied inline
// with the execution request rather than loaded through an adapter.
const AdapterDirectProvisioning = "direct_provisioning"

// InputWiring binds an input source to a workflow input by name.
type InputWiring struct {
	WorkflowInputName string         `json:"workflow_input_name"`
	AdapterID         string         `json:"adapter_id"`
	Filters           map[string]any `json:"filters,omitempty"`
}

// OutputWiring binds a workflow output by name to an output sink.
type OutputWiring struct {
	WorkflowOutputName string `json:"workflow_output_name"`
	AdapterID          string `json:"adapter_id"`
}

// TestWiring is the default set of input/output bindings used for ad-hoc
// execution. It is structurally independent of the graph but must name only
// connectors present in the revision's io interface.
type TestWiring struct {
	InputWirings  []InputWiring  `json:"input_wirings"`
	OutputWirings []OutputWiring `json:"output_wirings"`
}
