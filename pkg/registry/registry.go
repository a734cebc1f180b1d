// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*ActionRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActionRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Lookup returns the registered action, or nil when the id is unknown.
func (r *ActionRegistry) Lookup(id string) *Action {
	for i := range r.Actions {
		if r.Actions[i].ID == id {
			return &r.Actions[i]
		}
	}
	return nil
}

// ValidatePayload checks a raw request payload against the action's schema.
// A nil schema means the action takes no payload.
func (r *ActionRegistry) ValidatePayload(actionID string, payload map[string]interface{}) error {
	action := r.Lookup(actionID)
	if action == nil {
		return fmt.Errorf("unknown action: %s", actionID)
	}
	if action.PayloadSchema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(action.PayloadSchema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("payload validation failed: %v", errs)
	}

	return nil
}
