// Package orchestrator runs the conversational chat loop: cache lookup,
// tool-calling agent iterations, memory persistence, and event streaming.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitchwire/pitchwire/pkg/classifier"
	"github.com/pitchwire/pitchwire/pkg/llm"
	"github.com/pitchwire/pitchwire/pkg/llmcache"
	"github.com/pitchwire/pitchwire/pkg/memory"
	"github.com/pitchwire/pitchwire/pkg/tools"
)

const (
	defaultMaxIterations = 3
	cachedTokenDelay     = 10 * time.Millisecond
)

// Orchestrator coordinates one chat turn end to end.
type Orchestrator struct {
	llm      llm.Client
	registry *tools.Registry
	cache    *llmcache.Cache
	memory   *memory.Manager
	logger   *slog.Logger

	maxIterations int
	tokenDelay    time.Duration
}

func New(client llm.Client, registry *tools.Registry, cache *llmcache.Cache, mem *memory.Manager, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		llm:           client,
		registry:      registry,
		cache:         cache,
		memory:        mem,
		logger:        logger.With("component", "orchestrator"),
		maxIterations: defaultMaxIterations,
		tokenDelay:    cachedTokenDelay,
	}
}

// Chat processes one user message. Events stream to sink as the turn
// progresses; the final response text is returned. LLM failures degrade to
// an apology message rather than an error: the turn is still recorded in
// conversation memory, but never cached.
func (o *Orchestrator) Chat(ctx context.Context, message, conversationID string, sink Sink) (string, error) {
	if sink == nil {
		sink = discard
	}

	buf := memory.NewBuffer(memory.DefaultWindow)
	buf.Replace(o.memory.Load(ctx, conversationID))
	convContext := buf.CacheContext()

	result := o.cache.Lookup(ctx, message, convContext)
	if result.Hit {
		if err := o.replayCached(ctx, result, sink); err != nil {
			return "", err
		}
		o.persistTurn(ctx, conversationID, buf, message, result.Response)
		return result.Response, nil
	}

	if err := o.emitCacheStatus(ctx, result, sink); err != nil {
		return "", err
	}

	response, err := o.runAgent(ctx, buf.Messages(), message, sink)
	if err != nil {
		o.logger.Error("Chat processing failed", "conversation_id", conversationID, "error", err)
		response = "I encountered an error while processing your request: " + err.Error()
		if emitErr := sink(ctx, Event{Type: EventError, Content: response}); emitErr != nil {
			o.logger.Warn("Failed to emit error event", "error", emitErr)
		}
		o.persistTurn(ctx, conversationID, buf, message, response)
		return response, nil
	}

	o.cache.Store(ctx, message, response, convContext)
	if err := sink(ctx, Event{Type: EventFinalResponse, Content: response}); err != nil {
		return "", err
	}
	o.persistTurn(ctx, conversationID, buf, message, response)
	return response, nil
}

// History returns the stored conversation messages.
func (o *Orchestrator) History(ctx context.Context, conversationID string) []memory.Message {
	return o.memory.Load(ctx, conversationID)
}

// ClearConversation deletes the stored conversation.
func (o *Orchestrator) ClearConversation(ctx context.Context, conversationID string) error {
	if err := o.memory.Delete(ctx, conversationID); err != nil {
		return err
	}
	o.logger.Info("Cleared conversation", "conversation_id", conversationID)
	return nil
}

func (o *Orchestrator) replayCached(ctx context.Context, result llmcache.Result, sink Sink) error {
	ev := Event{
		Type:     EventCacheHit,
		Message:  fmt.Sprintf("Response retrieved from cache (category: %s)", result.Category),
		Category: string(result.Category),
	}
	if err := sink(ctx, ev); err != nil {
		return err
	}

	words := strings.Fields(result.Response)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := sink(ctx, Event{Type: EventToken, Content: chunk}); err != nil {
			return err
		}
		select {
		case <-time.After(o.tokenDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return sink(ctx, Event{Type: EventFinalResponse, Content: result.Response})
}

func (o *Orchestrator) emitCacheStatus(ctx context.Context, result llmcache.Result, sink Sink) error {
	if result.Category == classifier.CategoryNoCache {
		return sink(ctx, Event{
			Type:     EventNoCache,
			Message:  fmt.Sprintf("Personalized query detected - not caching (category: %s)", result.Category),
			Category: string(result.Category),
		})
	}

	ttlHours := int(result.TTL / time.Hour)
	return sink(ctx, Event{
		Type:     EventCacheMiss,
		Message:  fmt.Sprintf("Processing new request with LLM (category: %s, will cache for %dh)", result.Category, ttlHours),
		Category: string(result.Category),
		TTLHours: ttlHours,
	})
}

// runAgent drives the tool-calling loop. Tools are offered for up to
// maxIterations rounds; one final round without tools forces a text answer
// if the model is still requesting calls.
func (o *Orchestrator) runAgent(ctx context.Context, history []memory.Message, message string, sink Sink) (string, error) {
	convo := make([]llm.ConversationMessage, 0, len(history)+2)
	convo = append(convo, llm.ConversationMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		role := "user"
		if m.Role == memory.RoleAssistant {
			role = "assistant"
		}
		convo = append(convo, llm.ConversationMessage{Role: role, Content: m.Content})
	}
	convo = append(convo, llm.ConversationMessage{Role: "user", Content: message})

	var defs []llm.ToolDefinition
	if o.registry != nil {
		defs = o.registry.Definitions()
	}

	for iteration := 0; ; iteration++ {
		input := &llm.GenerateInput{Messages: convo}
		if iteration < o.maxIterations {
			input.Tools = defs
		}

		text, calls, err := o.generate(ctx, input, sink)
		if err != nil {
			return "", err
		}
		if len(calls) == 0 {
			return text, nil
		}

		convo = append(convo, llm.ConversationMessage{Role: "assistant", Content: text, ToolCalls: calls})
		for _, call := range calls {
			output, err := o.registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				o.logger.Warn("Tool execution failed", "tool", call.Name, "error", err)
				output = "Error: " + err.Error()
			}
			convo = append(convo, llm.ConversationMessage{Role: "tool", Content: output, ToolCallID: call.ID})
		}
	}
}

func (o *Orchestrator) generate(ctx context.Context, input *llm.GenerateInput, sink Sink) (string, []llm.ToolCall, error) {
	ch, err := o.llm.Generate(ctx, input)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var calls []llm.ToolCall
	for chunk := range ch {
		switch c := chunk.(type) {
		case *llm.TextChunk:
			text.WriteString(c.Content)
			if err := sink(ctx, Event{Type: EventToken, Content: c.Content}); err != nil {
				return "", nil, err
			}
		case *llm.ToolCallChunk:
			calls = append(calls, llm.ToolCall{ID: c.CallID, Name: c.Name, Arguments: c.Arguments})
		case *llm.UsageChunk:
			o.logger.Debug("Token usage", "input", c.InputTokens, "output", c.OutputTokens, "total", c.TotalTokens)
		case *llm.ErrorChunk:
			return "", nil, errors.New(c.Message)
		}
	}
	return text.String(), calls, nil
}

func (o *Orchestrator) persistTurn(ctx context.Context, conversationID string, buf *memory.Buffer, userMessage, reply string) {
	buf.AddExchange(userMessage, reply)
	if err := o.memory.Save(ctx, conversationID, buf.Messages()); err != nil {
		o.logger.Warn("Failed to persist conversation", "conversation_id", conversationID, "error", err)
	}
}
