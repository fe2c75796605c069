package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse wraps data as the text content of a tool result
func createJSONResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result so the
// client can see it and correct the call
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createSmartErrorResponse(operation, err, nil)
}

// createSmartErrorResponse is createErrorResponse with extra context such
// as "did you mean" suggestions
func createSmartErrorResponse(operation string, err error, context map[string]any) (*mcp.CallToolResult, error) {
	data := map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if help := toolHelp(operation); help != "" {
		data["help"] = help
	}
	for k, v := range context {
		data[k] = v
	}

	response, marshalErr := createJSONResponse(data)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

func toolHelp(operation string) string {
	for _, t := range toolDocs {
		if t.Name == operation {
			return t.Example
		}
	}
	return ""
}
