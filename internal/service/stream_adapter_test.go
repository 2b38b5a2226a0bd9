package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/agent"
	"docuagent-be/pkg/agent/graph"
)

func pipeEvents(t *testing.T, events []graph.Event) string {
	t.Helper()

	ch := make(chan graph.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)

	var buf bytes.Buffer
	adapter := NewStreamAdapter(logger.NewNopLogger())
	adapter.Pipe(bufio.NewWriter(&buf), "s1", "t1", ch, func() {})
	return buf.String()
}

func TestPipeHappyPath(t *testing.T) {
	answer := &agent.Answer{Response: " The answer is 42.", Summary: " The answer is 42.", ResponseId: "r-9"}

	out := pipeEvents(t, []graph.Event{
		graph.TokenDelta{Node: agent.NodeGenerateAnswer, Text: "The answer"},
		graph.TokenDelta{Node: agent.NodeGenerateAnswer, Text: " is 42."},
		graph.NodeCompleted{Node: agent.NodeGenerateAnswer, State: agent.WorkflowState{Answer: answer}},
		graph.NodeCompleted{Node: agent.NodeSaveMemories, State: agent.WorkflowState{Answer: answer}},
		graph.StreamEnd{},
	})

	assert.Equal(t,
		`{"session_id":"s1", "thread_id":"t1","response":`+
			"The answer is 42. The answer is 42."+
			`,"response_id":"r-9"}`,
		out)
}

func TestPipeSkipsNonGeneratorDeltas(t *testing.T) {
	out := pipeEvents(t, []graph.Event{
		graph.TokenDelta{Node: agent.NodeRetrieveMemories, Text: "internal"},
		graph.TokenDelta{Node: agent.NodeGenerateResponse, Text: "visible"},
		graph.StreamEnd{},
	})

	assert.NotContains(t, out, "internal")
	assert.Contains(t, out, "visible")
}

func TestPipeStreamError(t *testing.T) {
	out := pipeEvents(t, []graph.Event{
		graph.TokenDelta{Node: agent.NodeGenerateAnswer, Text: "partial text"},
		graph.StreamError{Err: errors.New("workflow failed")},
	})

	assert.Contains(t, out, "partial text")
	require.True(t, bytes.HasSuffix([]byte(out), []byte(`{"error": "Error processing response", "partial_response": true}}`)))
}

func TestPipeErrorBeforeAnyTokens(t *testing.T) {
	out := pipeEvents(t, []graph.Event{
		graph.StreamError{Err: errors.New("workflow failed")},
	})

	// With no tokens emitted the error fragment fills the response value and
	// the whole payload parses.
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "s1", parsed["session_id"])
	resp, ok := parsed["response"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, resp["partial_response"])
}

func TestPipeChannelClosedWithoutTerminal(t *testing.T) {
	out := pipeEvents(t, []graph.Event{
		graph.TokenDelta{Node: agent.NodeGenerateAnswer, Text: `"half an ans`},
	})

	assert.Contains(t, out, `"partial_response": true`)
	assert.Equal(t, byte('}'), out[len(out)-1])
}

func TestPipeCancelsOnWriteFailure(t *testing.T) {
	ch := make(chan graph.Event, 2)
	ch <- graph.TokenDelta{Node: agent.NodeGenerateAnswer, Text: "x"}
	close(ch)

	ctx, cancel := context.WithCancel(context.Background())
	w := bufio.NewWriterSize(&failingWriter{}, 1)

	adapter := NewStreamAdapter(logger.NewNopLogger())
	adapter.Pipe(w, "s1", "t1", ch, cancel)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected workflow context to be canceled after write failure")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
