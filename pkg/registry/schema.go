// pkg/registry/schema.go
package registry

// ActionRegistry is the catalog of lifecycle actions the service exposes.
// Each entry declares who may invoke the action and the JSON schema its
// request payload must satisfy before the transition engine ever sees it.
type ActionRegistry struct {
	Version     string   `json:"version"`
	LastUpdated string   `json:"lastUpdated"`
	Actions     []Action `json:"actions"`
}

type Action struct {
	ID            string                 `json:"id"`
	DisplayName   string                 `json:"displayName"`
	Description   string                 `json:"description"`
	RequiredRole  string                 `json:"requiredRole"`
	FromStatuses  []string               `json:"fromStatuses"`
	PayloadSchema map[string]interface{} `json:"payloadSchema"`
	Notifies      []string               `json:"notifies"`
	Tags          []string               `json:"tags"`
}
