package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode maps tool arguments onto T through their JSON tags. Unknown
// arguments are ignored. A wrongly typed argument is reported by name.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, fmt.Errorf("arguments are not JSON: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return out, fmt.Errorf("argument %q must be a %s, got %s", typeErr.Field, typeErr.Type.Kind(), typeErr.Value)
		}
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}
