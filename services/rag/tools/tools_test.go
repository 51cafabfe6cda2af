package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
)

type fakeTool struct {
	name   string
	result string
	err    error
	calls  int
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Name: f.name, InputSchema: map[string]interface{}{"type": "object"}}
}

func (f *fakeTool) Execute(_ context.Context, _ map[string]interface{}, _ *SourceTracker) (string, error) {
	f.calls++
	return f.result, f.err
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	tool := &fakeTool{name: "lookup", result: "found it"}
	require.NoError(t, r.Register(tool))

	out, err := r.Execute(context.Background(), "lookup", nil, NewSourceTracker())
	require.NoError(t, err)
	assert.Equal(t, "found it", out)
	assert.Equal(t, 1, tool.calls)
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", nil, NewSourceTracker())
	require.Error(t, err)
	assert.True(t, IsUnknownTool(err))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "dup"}))
	assert.Error(t, r.Register(&fakeTool{name: "dup"}))
}

func TestRegistryDefinitionsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "first"}))
	require.NoError(t, r.Register(&fakeTool{name: "second"}))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "first", defs[0].Name)
	assert.Equal(t, "second", defs[1].Name)
}

func TestSourceTrackerGetAndClear(t *testing.T) {
	tracker := NewSourceTracker()
	refs := []datatypes.SourceRef{{CourseTitle: "Testing 101"}}
	tracker.Record(refs)

	got := tracker.GetAndClearLastSources()
	assert.Equal(t, refs, got)

	// Second read before another record yields nothing.
	assert.Nil(t, tracker.GetAndClearLastSources())
}

func TestSourceTrackerRecordReplaces(t *testing.T) {
	tracker := NewSourceTracker()
	tracker.Record([]datatypes.SourceRef{{CourseTitle: "Old"}})
	tracker.Record([]datatypes.SourceRef{{CourseTitle: "New"}})

	got := tracker.GetAndClearLastSources()
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].CourseTitle)
}
