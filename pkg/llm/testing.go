package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedResponse is one turn of a ScriptedClient conversation.
type ScriptedResponse struct {
	Text      string
	ToolCalls []ToolCall
	Err       string
}

// ScriptedClient replays canned responses in order. It records every
// GenerateInput it receives so tests can assert on the conversation
// the caller assembled.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	Inputs    []*GenerateInput
}

func NewScriptedClient(responses ...ScriptedResponse) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

// Enqueue appends another scripted turn.
func (c *ScriptedClient) Enqueue(r ScriptedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, r)
}

func (c *ScriptedClient) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	c.mu.Lock()
	c.Inputs = append(c.Inputs, input)
	if len(c.responses) == 0 {
		c.mu.Unlock()
		return nil, errors.New("scripted client: no responses left")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	c.mu.Unlock()

	ch := make(chan Chunk, len(resp.ToolCalls)+3)
	go func() {
		defer close(ch)
		if resp.Err != "" {
			ch <- &ErrorChunk{Message: resp.Err}
			return
		}
		if resp.Text != "" {
			ch <- &TextChunk{Content: resp.Text}
		}
		for _, tc := range resp.ToolCalls {
			ch <- &ToolCallChunk{CallID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		}
		ch <- &UsageChunk{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	}()
	return ch, nil
}

func (c *ScriptedClient) Close() error { return nil }
