package models

import (
	"encoding/json"
	"fmt"
)

// Merge overlays the top-level keys of partial onto the JSON object doc.
// The "id" key of doc is preserved.
func Merge(doc []byte, partial map[string]any) ([]byte, error) {
	var base map[string]any
	if err := json.Unmarshal(doc, &base); err != nil {
		return nil, fmt.Errorf("failed to decode stored record: %w", err)
	}
	id, hasID := base["id"]
	for k, v := range partial {
		base[k] = v
	}
	if hasID {
		base["id"] = id
	}
	return json.Marshal(base)
}
