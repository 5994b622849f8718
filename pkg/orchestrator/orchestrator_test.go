package orchestrator

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwire/pitchwire/pkg/kvstore"
	"github.com/pitchwire/pitchwire/pkg/llm"
	"github.com/pitchwire/pitchwire/pkg/llmcache"
	"github.com/pitchwire/pitchwire/pkg/memory"
	"github.com/pitchwire/pitchwire/pkg/tools"
)

type recordedTool struct {
	name   string
	calls  []string
	output string
}

func (t *recordedTool) Name() string             { return t.name }
func (t *recordedTool) Description() string      { return "test tool" }
func (t *recordedTool) ParametersSchema() string { return `{"type":"object"}` }
func (t *recordedTool) Execute(ctx context.Context, arguments string) (string, error) {
	t.calls = append(t.calls, arguments)
	return t.output, nil
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) sink(ctx context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestOrchestrator(t *testing.T, client llm.Client, tool tools.Tool) (*Orchestrator, *kvstore.FakeStore) {
	t.Helper()
	store := kvstore.NewFakeStore()
	logger := slog.Default()
	var registry *tools.Registry
	if tool != nil {
		registry = tools.NewRegistry(tool)
	}
	orch := New(client, registry, llmcache.New(store, logger), memory.NewManager(store, logger), logger)
	orch.tokenDelay = 0
	return orch, store
}

func TestChat_DirectAnswer(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedResponse{Text: "Arsenal won 3-1."})
	orch, _ := newTestOrchestrator(t, client, nil)

	rec := &eventRecorder{}
	resp, err := orch.Chat(context.Background(), "latest arsenal news", "conv-1", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "Arsenal won 3-1.", resp)

	assert.Equal(t, []EventType{EventCacheMiss, EventToken, EventFinalResponse}, rec.types())
	assert.Contains(t, rec.events[0].Message, "will cache for 2h")

	history := orch.History(context.Background(), "conv-1")
	require.Len(t, history, 2)
	assert.Equal(t, memory.RoleHuman, history[0].Role)
	assert.Equal(t, "latest arsenal news", history[0].Content)
	assert.Equal(t, memory.RoleAssistant, history[1].Role)
}

func TestChat_SecondCallHitsCache(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedResponse{Text: "Arsenal won 3-1."})
	orch, _ := newTestOrchestrator(t, client, nil)

	_, err := orch.Chat(context.Background(), "latest arsenal news", "conv-1", nil)
	require.NoError(t, err)

	// Fresh conversation so the cache context matches.
	rec := &eventRecorder{}
	resp, err := orch.Chat(context.Background(), "latest arsenal news", "conv-2", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "Arsenal won 3-1.", resp)

	assert.Equal(t, []EventType{EventCacheHit, EventToken, EventToken, EventToken, EventFinalResponse}, rec.types())
	assert.Equal(t, "Arsenal ", rec.events[1].Content)
	assert.Equal(t, "won ", rec.events[2].Content)
	assert.Equal(t, "3-1.", rec.events[3].Content)
	assert.Equal(t, "Arsenal won 3-1.", rec.events[4].Content)
	// Only the first call reached the model.
	assert.Len(t, client.Inputs, 1)
}

func TestChat_ToolCallLoop(t *testing.T) {
	tool := &recordedTool{name: "football_news_search", output: "Arsenal beat Spurs."}
	client := llm.NewScriptedClient(
		llm.ScriptedResponse{ToolCalls: []llm.ToolCall{{
			ID: "call_1", Name: "football_news_search", Arguments: `{"query":"arsenal"}`,
		}}},
		llm.ScriptedResponse{Text: "Arsenal beat Spurs yesterday."},
	)
	orch, _ := newTestOrchestrator(t, client, tool)

	resp, err := orch.Chat(context.Background(), "latest arsenal news", "conv-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Arsenal beat Spurs yesterday.", resp)

	require.Len(t, tool.calls, 1)
	assert.Equal(t, `{"query":"arsenal"}`, tool.calls[0])

	require.Len(t, client.Inputs, 2)
	second := client.Inputs[1].Messages
	assistant := second[len(second)-2]
	toolMsg := second[len(second)-1]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "tool", toolMsg.Role)
	assert.Equal(t, "Arsenal beat Spurs.", toolMsg.Content)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
}

func TestChat_ForcedConclusionWithoutTools(t *testing.T) {
	tool := &recordedTool{name: "football_news_search", output: "result"}
	call := llm.ScriptedResponse{ToolCalls: []llm.ToolCall{{
		ID: "c", Name: "football_news_search", Arguments: `{}`,
	}}}
	client := llm.NewScriptedClient(call, call, call, llm.ScriptedResponse{Text: "Final answer."})
	orch, _ := newTestOrchestrator(t, client, tool)

	resp, err := orch.Chat(context.Background(), "latest arsenal news", "conv-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Final answer.", resp)

	require.Len(t, client.Inputs, 4)
	assert.NotEmpty(t, client.Inputs[0].Tools)
	assert.NotEmpty(t, client.Inputs[2].Tools)
	assert.Empty(t, client.Inputs[3].Tools)
	assert.Len(t, tool.calls, 3)
}

func TestChat_PersonalizedSkipsCache(t *testing.T) {
	client := llm.NewScriptedClient(
		llm.ScriptedResponse{Text: "Captain Haaland."},
		llm.ScriptedResponse{Text: "Captain Haaland."},
	)
	orch, _ := newTestOrchestrator(t, client, nil)

	rec := &eventRecorder{}
	query := "Who should I captain in my team?"
	_, err := orch.Chat(context.Background(), query, "conv-1", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, EventNoCache, rec.types()[0])
	assert.Contains(t, rec.events[0].Message, "Personalized query detected")

	// Same query again still reaches the model.
	_, err = orch.Chat(context.Background(), query, "conv-2", nil)
	require.NoError(t, err)
	assert.Len(t, client.Inputs, 2)
}

func TestChat_LLMErrorDegrades(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedResponse{Err: "model overloaded"})
	orch, _ := newTestOrchestrator(t, client, nil)

	rec := &eventRecorder{}
	resp, err := orch.Chat(context.Background(), "latest arsenal news", "conv-1", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "I encountered an error while processing your request: model overloaded", resp)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, resp, last.Content)

	// The failed turn is still recorded in memory.
	history := orch.History(context.Background(), "conv-1")
	require.Len(t, history, 2)
	assert.Equal(t, resp, history[1].Content)

	// And the error text is never cached.
	client.Enqueue(llm.ScriptedResponse{Text: "Recovered."})
	resp, err = orch.Chat(context.Background(), "latest arsenal news", "conv-2", nil)
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", resp)
}

func TestChat_HistoryFlowsIntoPrompt(t *testing.T) {
	client := llm.NewScriptedClient(
		llm.ScriptedResponse{Text: "First answer."},
		llm.ScriptedResponse{Text: "Second answer."},
	)
	orch, _ := newTestOrchestrator(t, client, nil)

	_, err := orch.Chat(context.Background(), "Who should I pick this week?", "conv-1", nil)
	require.NoError(t, err)
	_, err = orch.Chat(context.Background(), "What about my defence?", "conv-1", nil)
	require.NoError(t, err)

	require.Len(t, client.Inputs, 2)
	msgs := client.Inputs[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "Who should I pick this week?", msgs[1].Content)
	assert.Equal(t, "First answer.", msgs[2].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "What about my defence?", msgs[3].Content)
}

func TestClearConversation(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedResponse{Text: "Answer."})
	orch, _ := newTestOrchestrator(t, client, nil)

	_, err := orch.Chat(context.Background(), "Who should I pick?", "conv-1", nil)
	require.NoError(t, err)
	require.Len(t, orch.History(context.Background(), "conv-1"), 2)

	require.NoError(t, orch.ClearConversation(context.Background(), "conv-1"))
	assert.Empty(t, orch.History(context.Background(), "conv-1"))
}
