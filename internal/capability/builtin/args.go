// Package builtin provides the capabilities that ship with the agent.
package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/capability"
)

// stringArg reads a required string field from a JSON object. The returned
// message is the user-facing error text when ok is false.
func stringArg(args json.RawMessage, field string) (value, message string, ok bool) {
	var obj map[string]json.RawMessage
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, &obj); err != nil {
		return "", fmt.Sprintf("Error: arguments must be a JSON object: %v", err), false
	}

	raw, present := obj[field]
	if !present {
		return "", fmt.Sprintf("Error: arguments must contain '%s'", field), false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Sprintf("Error: '%s' must be a string", field), false
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Sprintf("Error: %s cannot be empty", field), false
	}
	return s, "", true
}

func schema(field, description string) map[string]any {
	return capability.ObjectSchema(map[string]string{field: description}, field)
}
