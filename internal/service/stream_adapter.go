package service

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/agent"
	"docuagent-be/pkg/agent/graph"
)

// streamErrorFragment keeps the outbound stream parseable by concatenation
// even when processing fails mid-response.
const streamErrorFragment = `{"error": "Error processing response", "partial_response": true}`

// StreamAdapter translates the workflow event stream into the incremental
// chat wire format: an opening fragment with the session ids, raw token
// deltas, the generated summary, a response_id fragment once the turn is
// persisted, and a closing brace.
type StreamAdapter struct {
	log logger.ILogger
}

func NewStreamAdapter(log logger.ILogger) *StreamAdapter {
	return &StreamAdapter{log: log}
}

// Pipe writes the wire protocol for one request. cancel is invoked when the
// client stops reading so the in-flight workflow is aborted.
func (a *StreamAdapter) Pipe(w *bufio.Writer, sessionId, threadId string, events <-chan graph.Event, cancel context.CancelFunc) {
	write := func(fragment string) bool {
		if _, err := w.WriteString(fragment); err != nil {
			a.log.Warn("stream", "client disconnected", map[string]interface{}{"session_id": sessionId})
			cancel()
			return false
		}
		if err := w.Flush(); err != nil {
			a.log.Warn("stream", "flush failed, aborting workflow", map[string]interface{}{"session_id": sessionId})
			cancel()
			return false
		}
		return true
	}

	if !write(fmt.Sprintf(`{"session_id":"%s", "thread_id":"%s","response":`, sessionId, threadId)) {
		return
	}

	for event := range events {
		switch ev := event.(type) {
		case graph.TokenDelta:
			if strings.HasPrefix(ev.Node, "generate_") && ev.Text != "" {
				if !write(ev.Text) {
					return
				}
			}

		case graph.NodeCompleted:
			state, ok := ev.State.(agent.WorkflowState)
			if !ok || state.Answer == nil {
				continue
			}
			switch ev.Node {
			case agent.NodeGenerateAnswer:
				text := state.Answer.Summary
				if text == "" {
					text = state.Answer.Response
				}
				if !write(text) {
					return
				}
			case agent.NodeSaveMemories:
				if state.Answer.ResponseId != "" {
					if !write(fmt.Sprintf(`,"response_id":"%s"`, state.Answer.ResponseId)) {
						return
					}
				}
			}

		case graph.StreamError:
			a.log.Error("stream", "error processing event stream", map[string]interface{}{
				"session_id": sessionId, "error": ev.Err.Error(),
			})
			write(streamErrorFragment + "}")
			return

		case graph.StreamEnd:
			write("}")
			return
		}
	}

	// Channel closed without a terminal event: treat as failure.
	write(streamErrorFragment + "}")
}
