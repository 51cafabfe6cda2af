package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientBoundsStalledServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise this handler never returns.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(func() {
		// The handler blocks until its connection dies; force-close client
		// connections so Close does not wait on the stalled handler.
		srv.CloseClientConnections()
		srv.Close()
	})

	old := openAITimeout
	openAITimeout = 100 * time.Millisecond
	t.Cleanup(func() { openAITimeout = old })

	client, err := NewOpenAIClient("test-key", "test-model", srv.URL+"/v1")
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Complete(context.Background(), &Request{Messages: []Message{UserText("hi")}})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestToOpenAIMessagesPlainText(t *testing.T) {
	out, err := toOpenAIMessages(UserText("hello"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, RoleUser, out[0].Role)
	assert.Equal(t, "hello", out[0].Content)
}

func TestToOpenAIMessagesToolUseBecomesToolCall(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []ContentBlock{{
		Type:    BlockToolUse,
		ToolUse: &ToolUse{ID: "call_1", Name: "search_course_content", Input: map[string]interface{}{"query": "bugs"}},
	}}}

	out, err := toOpenAIMessages(msg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].ToolCalls, 1)

	call := out[0].ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, openai.ToolTypeFunction, call.Type)
	assert.Equal(t, "search_course_content", call.Function.Name)
	assert.JSONEq(t, `{"query": "bugs"}`, call.Function.Arguments)
}

func TestToOpenAIMessagesToolResultBecomesToolRole(t *testing.T) {
	out, err := toOpenAIMessages(ToolResultMessage("call_1", "result text", false))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, openai.ChatMessageRoleTool, out[0].Role)
	assert.Equal(t, "call_1", out[0].ToolCallID)
	assert.Equal(t, "result text", out[0].Content)
}

func TestToOpenAIMessagesRejectsMalformedToolUse(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []ContentBlock{{Type: BlockToolUse}}}
	_, err := toOpenAIMessages(msg)
	assert.Error(t, err)
}
