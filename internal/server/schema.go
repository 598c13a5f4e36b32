package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// UpdateRequest is an ingestion payload after schema validation. Type
// and MatchingState keep their wire encoding; the handler maps them to
// domain values.
type UpdateRequest struct {
	Type          int      `json:"type"`
	Players       int      `json:"players"`
	Instances     []string `json:"instances"`
	Server        string   `json:"server"`
	MatchingState int      `json:"matching_state"`
}

const updateSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "players", "instances", "server", "matching_state"],
  "properties": {
    "type": {"type": "integer", "enum": [0, 1]},
    "players": {"type": "integer", "minimum": 0, "maximum": 1000},
    "instances": {
      "type": "array",
      "maxItems": 20,
      "items": {"type": "string", "minLength": 1, "maxLength": 50}
    },
    "server": {"type": "string", "minLength": 1, "maxLength": 50},
    "matching_state": {"type": "integer", "enum": [0, 1]}
  }
}`

// Compiled once at init; the schema is a program constant and a compile
// failure is a build defect, not a runtime condition.
var updateSchema = jsonschema.MustCompileString("update.json", updateSchemaJSON)

// decodeUpdate validates the raw body against the update schema and
// decodes it. Fields outside the schema are dropped by the typed
// decode, not rejected. The returned details are human-readable leaf
// causes for the audit entry.
func decodeUpdate(body io.Reader) (*UpdateRequest, []string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []string{"body is not valid JSON"}, err
	}

	if err := updateSchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, flattenCauses(ve), err
		}
		return nil, []string{err.Error()}, err
	}

	var req UpdateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, []string{"body does not match the expected shape"}, err
	}
	return &req, nil, nil
}

// flattenCauses walks the validation tree and keeps only leaf causes,
// which carry the actionable message for each failing field.
func flattenCauses(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, ve.Message)}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, flattenCauses(cause)...)
	}
	return out
}
