package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/agent/graph"
	"docuagent-be/pkg/llm"
)

// DocumentOperations is the contract of the document store the sub-agent
// dispatches to. Handlers fill DocumentData, StoreSearchResults, or Err on
// the returned state; they never fail the workflow. Store persists the
// current document payload into the vector-backed document collection.
type DocumentOperations interface {
	Create(ctx context.Context, st DocumentState) DocumentState
	Update(ctx context.Context, st DocumentState) DocumentState
	Assign(ctx context.Context, st DocumentState) DocumentState
	Fetch(ctx context.Context, st DocumentState) DocumentState
	Search(ctx context.Context, st DocumentState) DocumentState
	Comment(ctx context.Context, st DocumentState) DocumentState
	Delete(ctx context.Context, st DocumentState) DocumentState
	Analyze(ctx context.Context, st DocumentState) DocumentState
	Store(ctx context.Context, st DocumentState) DocumentState
}

// DocumentAgent classifies a request into one of eight operations, runs the
// matching handler, conditionally persists the result, and summarizes the
// outcome for the user.
type DocumentAgent struct {
	llm   llm.LLMProvider
	ops   DocumentOperations
	log   logger.ILogger
	graph *graph.Graph[DocumentState]
}

func NewDocumentAgent(provider llm.LLMProvider, ops DocumentOperations, log logger.ILogger) *DocumentAgent {
	a := &DocumentAgent{llm: provider, ops: ops, log: log}

	g := graph.New[DocumentState]()
	g.AddNode(NodeAnalyzeRequest, a.analyzeRequest)
	g.AddNode(NodeExecuteOperation, a.executeOperation)
	g.AddNode(NodeStoreDocument, a.storeDocument)
	g.AddNode(NodeGenerateResponse, a.generateResponse)

	g.AddEdge(NodeAnalyzeRequest, NodeExecuteOperation)
	g.AddConditionalEdge(NodeExecuteOperation, RouteStorage)
	g.AddEdge(NodeStoreDocument, NodeGenerateResponse)

	g.SetEntry(NodeAnalyzeRequest)
	g.SetTerminal(NodeGenerateResponse)

	a.graph = g
	return a
}

func (a *DocumentAgent) Run(ctx context.Context, state DocumentState, emit graph.EmitFunc) (DocumentState, error) {
	return a.graph.Run(ctx, state, emit)
}

// ClassifyOperation maps free-form classifier output onto a known operation
// by keyword containment, in fixed precedence order. Unmatched input means
// search.
func ClassifyOperation(text string) Operation {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "create"):
		return OpCreate
	case strings.Contains(t, "update"):
		return OpUpdate
	case strings.Contains(t, "assign"):
		return OpAssign
	case strings.Contains(t, "fetch"), strings.Contains(t, "get"):
		return OpFetch
	case strings.Contains(t, "search"):
		return OpSearch
	case strings.Contains(t, "comment"):
		return OpComment
	case strings.Contains(t, "delete"):
		return OpDelete
	case strings.Contains(t, "analyze"):
		return OpAnalyze
	default:
		return OpSearch
	}
}

// ShouldStoreDocument decides whether the operation result goes into the
// vector store. Results already retrieved from the store, error results, and
// message-only payloads are never re-persisted; only create, update, and
// fetch results with real data are.
func ShouldStoreDocument(st DocumentState) bool {
	if st.FoundInStore {
		return false
	}
	if st.Err != "" {
		return false
	}
	if st.DocumentData != nil {
		if _, ok := st.DocumentData["message"]; ok {
			return false
		}
		if _, ok := st.DocumentData["error"]; ok {
			return false
		}
	}
	switch st.Operation {
	case OpCreate, OpUpdate, OpFetch:
	default:
		return false
	}
	return len(st.DocumentData) > 0
}

func RouteStorage(st DocumentState) string {
	if ShouldStoreDocument(st) {
		return NodeStoreDocument
	}
	return NodeGenerateResponse
}

func (a *DocumentAgent) analyzeRequest(ctx context.Context, st DocumentState, _ graph.EmitFunc) (DocumentState, error) {
	resp, err := a.llm.Generate(ctx, classifyOperationPrompt(st.Task.Original))
	if err != nil {
		a.log.Error("document_agent", "operation classification failed", map[string]interface{}{"error": err.Error()})
		st.Operation = OpSearch
		return st, nil
	}
	st.Operation = ClassifyOperation(resp)
	a.log.Info("document_agent", "classified operation", map[string]interface{}{
		"operation": string(st.Operation),
	})
	return st, nil
}

func (a *DocumentAgent) executeOperation(ctx context.Context, st DocumentState, _ graph.EmitFunc) (DocumentState, error) {
	switch st.Operation {
	case OpCreate:
		st = a.ops.Create(ctx, st)
	case OpUpdate:
		st = a.ops.Update(ctx, st)
	case OpAssign:
		st = a.ops.Assign(ctx, st)
	case OpFetch:
		st = a.ops.Fetch(ctx, st)
	case OpComment:
		st = a.ops.Comment(ctx, st)
	case OpDelete:
		st = a.ops.Delete(ctx, st)
	case OpAnalyze:
		st = a.ops.Analyze(ctx, st)
	default:
		st = a.ops.Search(ctx, st)
	}
	if st.Err != "" {
		a.log.Warn("document_agent", "operation handler failed", map[string]interface{}{
			"operation": string(st.Operation), "error": st.Err,
		})
	}
	return st, nil
}

func (a *DocumentAgent) storeDocument(ctx context.Context, st DocumentState, _ graph.EmitFunc) (DocumentState, error) {
	st = a.ops.Store(ctx, st)
	if st.Err != "" {
		a.log.Error("document_agent", "failed to store document data", map[string]interface{}{"error": st.Err})
	}
	return st, nil
}

func (a *DocumentAgent) generateResponse(ctx context.Context, st DocumentState, emit graph.EmitFunc) (DocumentState, error) {
	payload := "{}"
	if st.DocumentData != nil {
		if b, err := json.Marshal(st.DocumentData); err == nil {
			payload = string(b)
		}
	} else if len(st.StoreSearchResults) > 0 {
		if b, err := json.Marshal(st.StoreSearchResults); err == nil {
			payload = string(b)
		}
	}

	text, err := a.llm.GenerateStream(ctx, documentResponsePrompt(st.Operation, st.Task.Original, payload), func(chunk string) {
		emit(graph.TokenDelta{Node: NodeGenerateResponse, Text: chunk})
	})
	if err != nil {
		a.log.Error("document_agent", "response generation failed", map[string]interface{}{"error": err.Error()})
		text = fmt.Sprintf("I encountered an error while processing your request related to %s operation. Please try again.", st.Operation)
	}

	st.Answer = &Answer{
		Response:   text,
		Summary:    text,
		ResponseId: uuid.New().String(),
		Timestamp:  time.Now(),
	}
	st.TaskComplete = true
	return st, nil
}
