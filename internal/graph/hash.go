package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"pipeforge/backend/pkg/models"
)

// ContentHash computes a stable hash of a workflow graph. Position and path
// metadata are stripped first: two graphs that differ only in diagram layout
// hash identically, matching the structural-equality notion used by the
// code generator's determinism guarantee.
func ContentHash(w *models.WorkflowContent) (string, error) {
	data, err := json.Marshal(stripped(w))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func stripped(w *models.WorkflowContent) *models.WorkflowContent {
	out := &models.WorkflowContent{
		Inputs:    stripConnectors(w.Inputs),
		Outputs:   stripConnectors(w.Outputs),
		Constants: make([]models.Constant, len(w.Constants)),
		Operators: make([]models.Operator, len(w.Operators)),
		Links:     make([]models.Link, len(w.Links)),
	}
	for i, c := range w.Constants {
		c.Position = models.Position{}
		out.Constants[i] = c
	}
	for i, op := range w.Operators {
		op.Position = models.Position{}
		op.Inputs = stripConnectors(op.Inputs)
		op.Outputs = stripConnectors(op.Outputs)
		out.Operators[i] = op
	}
	for i, link := range w.Links {
		link.Path = nil
		link.Start.Connector.Position = models.Position{}
		link.End.Connector.Position = models.Position{}
		out.Links[i] = link
	}
	return out
}

func stripConnectors(cs []models.IOConnector) []models.IOConnector {
	out := make([]models.IOConnector, len(cs))
	for i, c := range cs {
		c.Position = models.Position{}
		out[i] = c
	}
	return out
}
