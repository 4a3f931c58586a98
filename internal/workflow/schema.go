package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed steps.schema.json
var stepsSchemaJSON []byte

const stepsSchemaURL = "https://holalucia.schemas.local/workflow/steps.schema.json"

// ErrInvalidSteps wraps every step-map validation failure.
var ErrInvalidSteps = errors.New("invalid step map")

var stepsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(stepsSchemaURL, bytes.NewReader(stepsSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load steps schema: %w", err)
	}
	return c.Compile(stepsSchemaURL)
})

// ValidateSteps checks an inbound step map before it replaces a stored one.
// Stored documents never go through here; Decode tolerates anything.
func ValidateSteps(data []byte) error {
	schema, err := stepsSchema()
	if err != nil {
		return err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSteps, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after document", ErrInvalidSteps)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSteps, err)
	}

	// The map key is the step id; a disagreeing stepId field is ambiguous.
	for id, raw := range doc.(map[string]any) {
		step := raw.(map[string]any)
		if sid, ok := step["stepId"].(string); ok && sid != id {
			return fmt.Errorf("%w: step %q declares stepId %q", ErrInvalidSteps, id, sid)
		}
	}
	return nil
}
