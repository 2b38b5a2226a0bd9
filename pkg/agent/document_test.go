package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/agent"
)

func TestClassifyOperation(t *testing.T) {
	tests := []struct {
		text string
		want agent.Operation
	}{
		{"create", agent.OpCreate},
		{"The user wants to CREATE a new document", agent.OpCreate},
		{"update", agent.OpUpdate},
		{"assign", agent.OpAssign},
		{"fetch", agent.OpFetch},
		{"get the document", agent.OpFetch},
		{"search", agent.OpSearch},
		{"comment", agent.OpComment},
		{"delete", agent.OpDelete},
		{"analyze", agent.OpAnalyze},
		{"something unrelated", agent.OpSearch},
		{"", agent.OpSearch},
		// create takes precedence over later keywords
		{"create and assign", agent.OpCreate},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, agent.ClassifyOperation(tc.text), "input=%q", tc.text)
	}
}

func TestShouldStoreDocument(t *testing.T) {
	data := map[string]interface{}{"id": "d1", "title": "notes"}

	tests := []struct {
		name  string
		state agent.DocumentState
		want  bool
	}{
		{"create with data", agent.DocumentState{Operation: agent.OpCreate, DocumentData: data}, true},
		{"update with data", agent.DocumentState{Operation: agent.OpUpdate, DocumentData: data}, true},
		{"fetch with data", agent.DocumentState{Operation: agent.OpFetch, DocumentData: data}, true},
		{"search result never re-persisted", agent.DocumentState{Operation: agent.OpSearch, DocumentData: data}, false},
		{"delete result not persisted", agent.DocumentState{Operation: agent.OpDelete, DocumentData: data}, false},
		{"found in store", agent.DocumentState{Operation: agent.OpFetch, DocumentData: data, FoundInStore: true}, false},
		{"handler error", agent.DocumentState{Operation: agent.OpCreate, DocumentData: data, Err: "boom"}, false},
		{"message-only payload", agent.DocumentState{Operation: agent.OpFetch, DocumentData: map[string]interface{}{"message": "not found"}}, false},
		{"error payload", agent.DocumentState{Operation: agent.OpCreate, DocumentData: map[string]interface{}{"error": "bad"}}, false},
		{"empty data", agent.DocumentState{Operation: agent.OpCreate, DocumentData: map[string]interface{}{}}, false},
		{"nil data", agent.DocumentState{Operation: agent.OpCreate}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, agent.ShouldStoreDocument(tc.state))
			wantNode := agent.NodeGenerateResponse
			if tc.want {
				wantNode = agent.NodeStoreDocument
			}
			assert.Equal(t, wantNode, agent.RouteStorage(tc.state))
		})
	}
}

func TestDocumentAgentPersistsCreatedDocument(t *testing.T) {
	provider := &stubLLM{generate: func(prompt string) (string, error) {
		if prompt == "" {
			return "", errors.New("empty prompt")
		}
		return "create", nil
	}}
	ops := &stubOps{result: agent.DocumentState{
		DocumentId:   "d42",
		DocumentData: map[string]interface{}{"id": "d42", "title": "roadmap", "content": "..."},
	}}
	doc := agent.NewDocumentAgent(provider, ops, logger.NewNopLogger())

	st, err := doc.Run(context.Background(), agent.DocumentState{
		Task: agent.Task{Original: "create a document called roadmap"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.OpCreate, st.Operation)
	assert.True(t, ops.storeCalled)
	assert.True(t, st.TaskComplete)
	require.NotNil(t, st.Answer)
	assert.NotEmpty(t, st.Answer.Response)
	assert.Equal(t, st.Answer.Response, st.Answer.Summary)
	assert.NotEmpty(t, st.Answer.ResponseId)
}

func TestDocumentAgentSkipsStoreForSearch(t *testing.T) {
	provider := &stubLLM{generate: func(string) (string, error) {
		return "search", nil
	}}
	ops := &stubOps{result: agent.DocumentState{
		StoreSearchResults: []map[string]interface{}{{"id": "d1", "title": "roadmap"}},
		FoundInStore:       true,
	}}
	doc := agent.NewDocumentAgent(provider, ops, logger.NewNopLogger())

	st, err := doc.Run(context.Background(), agent.DocumentState{
		Task: agent.Task{Original: "search for the roadmap"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.OpSearch, st.Operation)
	assert.False(t, ops.storeCalled)
	assert.True(t, st.TaskComplete)
	require.NotNil(t, st.Answer)
}

func TestDocumentAgentClassifierFailureDefaultsToSearch(t *testing.T) {
	calls := 0
	provider := &stubLLM{generate: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("classifier down")
		}
		return "summary of results", nil
	}}
	ops := &stubOps{}
	doc := agent.NewDocumentAgent(provider, ops, logger.NewNopLogger())

	st, err := doc.Run(context.Background(), agent.DocumentState{
		Task: agent.Task{Original: "do something with documents"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.OpSearch, st.Operation)
	assert.False(t, ops.storeCalled)
}

func TestDocumentAgentResponseFallback(t *testing.T) {
	calls := 0
	provider := &stubLLM{generate: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "fetch", nil
		}
		return "", errors.New("generation down")
	}}
	ops := &stubOps{result: agent.DocumentState{
		DocumentData: map[string]interface{}{"message": "Document not found"},
	}}
	doc := agent.NewDocumentAgent(provider, ops, logger.NewNopLogger())

	st, err := doc.Run(context.Background(), agent.DocumentState{
		Task: agent.Task{Original: "fetch the missing document"},
	}, nil)
	require.NoError(t, err)

	assert.False(t, ops.storeCalled, "message payloads are never persisted")
	require.NotNil(t, st.Answer)
	assert.Contains(t, st.Answer.Response, "fetch operation")
	assert.Contains(t, st.Answer.Response, "I encountered an error")
	assert.True(t, st.TaskComplete)
}
