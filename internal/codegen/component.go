package codegen

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"pipeforge/backend/pkg/models"
)

// componentModuleTmpl renders the standard component module layout: a
// documentation docstring, the COMPONENT_INFO block between the DO NOT EDIT
// markers, and a main stub with keyword-only parameters. The marker lines
// delimit the region rewritten when a component's details or io interface
// change.
var componentModuleTmpl = template.Must(template.New("component").Funcs(template.FuncMap{
	"py": pyString,
}).Parse(`"""Documentation for {{.Name}}

{{.Documentation}}
"""

# ***** DO NOT EDIT LINES BELOW *****
# These lines may be overwritten if component details or inputs/outputs change.
COMPONENT_INFO = {
    "inputs": {
{{- range .Inputs}}
        {{py .Name}}: {"data_type": {{py (printf "%s" .DataType)}}},
{{- end}}
    },
    "outputs": {
{{- range .Outputs}}
        {{py .Name}}: {"data_type": {{py (printf "%s" .DataType)}}},
{{- end}}
    },
    "name": {{py .Name}},
    "category": {{py .Category}},
    "description": {{py .Description}},
    "version_tag": {{py .VersionTag}},
    "id": {{py .ID}},
    "revision_group_id": {{py .RevisionGroupID}},
    "state": {{py .State}},
{{- if .ReleasedTimestamp}}
    "released_timestamp": {{py .ReleasedTimestamp}},
{{- end}}
{{- if .DisabledTimestamp}}
    "disabled_timestamp": {{py .DisabledTimestamp}},
{{- end}}
}


def main(*{{range .Inputs}}, {{.Name}}{{end}}):
    # entrypoint function for this component
    # ***** DO NOT EDIT LINES ABOVE *****

    pass
`))

type componentModuleData struct {
	Name              string
	Documentation     string
	Category          string
	Description       string
	VersionTag        string
	ID                string
	RevisionGroupID   string
	State             string
	ReleasedTimestamp string
	DisabledTimestamp string
	Inputs            []models.Connector
	Outputs           []models.Connector
}

// GenerateComponentModule renders the code of a component revision from its
// metadata and io interface. It is used when a component is created without
// code, giving the author a stub matching the declared signature. Inputs
// keep their io-interface order, so rendering is deterministic.
func GenerateComponentModule(rev *models.TransformationRevision) (string, error) {
	if rev.Type != models.TypeComponent {
		return "", fmt.Errorf("revision %s is not a component", rev.ID)
	}
	data := componentModuleData{
		Name:            rev.Name,
		Documentation:   rev.Documentation,
		Category:        rev.Category,
		Description:     rev.Description,
		VersionTag:      rev.VersionTag,
		ID:              rev.ID.String(),
		RevisionGroupID: rev.RevisionGroupID.String(),
		State:           string(rev.State),
		Inputs:          rev.IOInterface.Inputs,
		Outputs:         rev.IOInterface.Outputs,
	}
	if rev.ReleasedTimestamp != nil {
		data.ReleasedTimestamp = rev.ReleasedTimestamp.UTC().Format(time.RFC3339Nano)
	}
	if rev.DisabledTimestamp != nil {
		data.DisabledTimestamp = rev.DisabledTimestamp.UTC().Format(time.RFC3339Nano)
	}

	var buf strings.Builder
	if err := componentModuleTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const (
	editStartMarker = "# ***** DO NOT EDIT LINES BELOW *****"
	editEndMarker   = "# ***** DO NOT EDIT LINES ABOVE *****"
)

// UpdateComponentModule re-renders the marked region of an existing component
// module after its details or io interface changed: COMPONENT_INFO and the
// main signature are replaced, everything outside the markers is kept
// verbatim. Code without both markers is returned unchanged.
func UpdateComponentModule(rev *models.TransformationRevision) (string, error) {
	code := rev.Content.Code
	start := strings.Index(code, editStartMarker)
	end := strings.Index(code, editEndMarker)
	if start < 0 || end < start {
		return code, nil
	}

	fresh, err := GenerateComponentModule(rev)
	if err != nil {
		return "", err
	}
	freshStart := strings.Index(fresh, editStartMarker)
	freshEnd := strings.Index(fresh, editEndMarker)

	return code[:start] + fresh[freshStart:freshEnd+len(editEndMarker)] + code[end+len(editEndMarker):], nil
}

// pyString renders s as a Python string literal. JSON string escaping is a
// subset of Python's, so the encoder output is reused directly.
func pyString(s string) (string, error) {
	out, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
