package mcp

import (
	"encoding/json"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResponseEnvelope is the common shape of every tool result. Diagrams are
// Mermaid, DOT or markdown blocks ready to show as they are.
type ResponseEnvelope struct {
	Context  map[string]any `json:"context,omitempty"`
	Data     any            `json:"data"`
	Diagrams []string       `json:"-"`
	Warnings []string       `json:"warnings,omitempty"`
}

// WrapResponse builds an envelope, dropping empty diagrams.
func WrapResponse(data any, ctx map[string]any, diagrams ...string) ResponseEnvelope {
	env := ResponseEnvelope{Context: ctx, Data: data}
	for _, d := range diagrams {
		if strings.TrimSpace(d) != "" {
			env.Diagrams = append(env.Diagrams, d)
		}
	}
	return env
}

func (e ResponseEnvelope) warn(msg string) ResponseEnvelope {
	e.Warnings = append(e.Warnings, msg)
	return e
}

// toResult renders the envelope as one JSON block followed by one text block
// per diagram.
func toResult(env ResponseEnvelope) *sdk.CallToolResult {
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	content := []sdk.Content{&sdk.TextContent{Text: string(out)}}
	for _, d := range env.Diagrams {
		content = append(content, &sdk.TextContent{Text: d})
	}
	return &sdk.CallToolResult{Content: content}
}

func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
	}
}
