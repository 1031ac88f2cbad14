// Package models defines the domain model for transformation revisions:
// versioned units that are either a leaf component (opaque executable code)
// or a workflow (a directed graph of operators referencing other revisions).
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Content is the kind-dependent payload of a revision: code for components,
// a graph for workflows. Exactly one side is populated, selected by the
// revision's Type tag.
type Content struct {
	Code     string
	Workflow *WorkflowContent
}

// TransformationRevision is one versioned transformation unit. ID is unique
// and immutable; RevisionGroupID groups versions of the same logical
// transformation over time, with VersionTag unique within a group.
type TransformationRevision struct {
	ID                uuid.UUID          `json:"id"`
	RevisionGroupID   uuid.UUID          `json:"revision_group_id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	Documentation     string             `json:"documentation"`
	Type              TransformationType `json:"type"`
	State             State              `json:"state"`
	ReleasedTimestamp *time.Time         `json:"released_timestamp,omitempty"`
	DisabledTimestamp *time.Time         `json:"disabled_timestamp,omitempty"`
	VersionTag        string             `json:"version_tag"`
	IOInterface       IOInterface        `json:"io_interface"`
	Content           Content            `json:"content"`
	TestWiring        TestWiring         `json:"test_wiring"`
}

type revisionAlias TransformationRevision

type revisionWire struct {
	revisionAlias
	Content json.RawMessage `json:"content"`
}

// MarshalJSON serializes Content as a plain code string for components and
// as a graph object for workflows.
func (tr TransformationRevision) MarshalJSON() ([]byte, error) {
	wire := revisionWire{revisionAlias: revisionAlias(tr)}

	var err error
	switch tr.Type {
	case TypeWorkflow:
		wf := tr.Content.Workflow
		if wf == nil {
			wf = &WorkflowContent{}
		}
		wire.Content, err = json.Marshal(wf)
	default:
		wire.Content, err = json.Marshal(tr.Content.Code)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

// UnmarshalJSON dispatches the content payload on the revision's type tag.
func (tr *TransformationRevision) UnmarshalJSON(data []byte) error {
	var wire revisionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*tr = TransformationRevision(wire.revisionAlias)
	tr.Content = Content{}

	if len(wire.Content) == 0 {
		return nil
	}
	switch tr.Type {
	case TypeWorkflow:
		var wf WorkflowContent
		if err := json.Unmarshal(wire.Content, &wf); err != nil {
			return fmt.Errorf("workflow content of %s: %w", tr.ID, err)
		}
		tr.Content.Workflow = &wf
	case TypeComponent:
		if err := json.Unmarshal(wire.Content, &tr.Content.Code); err != nil {
			return fmt.Errorf("component content of %s: %w", tr.ID, err)
		}
	default:
		return fmt.Errorf("revision %s has unknown type %q", tr.ID, tr.Type)
	}
	return nil
}

// Clone returns a deep copy via a JSON round trip, so callers can hand out
// revisions without aliasing store-held data.
func (tr *TransformationRevision) Clone() (*TransformationRevision, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return nil, err
	}
	var out TransformationRevision
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checksum is a stable content hash over the serialized revision, used to
// detect concurrent modification of dependencies during compilation.
func (tr *TransformationRevision) Checksum() (string, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CheckComplete verifies the identity and kind fields every stored revision
// must carry, independent of graph validation.
func (tr *TransformationRevision) CheckComplete() error {
	if tr.ID == uuid.Nil {
		return fmt.Errorf("revision is missing an id")
	}
	if tr.RevisionGroupID == uuid.Nil {
		return fmt.Errorf("revision %s is missing a revision group id", tr.ID)
	}
	if tr.VersionTag == "" {
		return fmt.Errorf("revision %s is missing a version tag", tr.ID)
	}
	if !tr.Type.Valid() {
		return fmt.Errorf("revision %s has unknown type %q", tr.ID, tr.Type)
	}
	if !tr.State.Valid() {
		return fmt.Errorf("revision %s has unknown state %q", tr.ID, tr.State)
	}
	if tr.Type == TypeWorkflow && tr.Content.Workflow == nil {
		return fmt.Errorf("workflow revision %s has no graph content", tr.ID)
	}
	return nil
}
