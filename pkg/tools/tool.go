// Package tools implements the function-calling tools exposed to the chat
// model: news search, player stats, and FPL analysis.
package tools

import (
	"context"
	"fmt"

	"github.com/pitchwire/pitchwire/pkg/llm"
	"github.com/pitchwire/pitchwire/pkg/search"
)

// Tool is one callable function the model may invoke. Arguments arrive as
// the raw JSON string produced by the model.
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() string
	Execute(ctx context.Context, arguments string) (string, error)
}

// Searcher is the slice of the search service the tools need.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]search.Ranked, error)
}

// Registry holds the available tools keyed by name.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Name()] = t
	}
	return r
}

// Definitions returns the tool descriptors in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:             t.Name(),
			Description:      t.Description(),
			ParametersSchema: t.ParametersSchema(),
		})
	}
	return defs
}

// Execute dispatches a call to the named tool.
func (r *Registry) Execute(ctx context.Context, name, arguments string) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return t.Execute(ctx, arguments)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
