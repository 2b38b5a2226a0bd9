// Package agent contains the orchestration core: the supervisor workflow that
// routes a user request through memory retrieval, planning, an optional
// document sub-agent, answer generation, and memory persistence.
package agent

import (
	"time"

	"docuagent-be/pkg/memory"
)

// Supervisor node names.
const (
	NodeRetrieveMemories = "retrieve_memories"
	NodeCreatePlan       = "create_plan"
	NodeDocumentAgent    = "document_agent"
	NodeGenerateAnswer   = "generate_answer"
	NodeSaveMemories     = "save_memories"
)

// Document sub-agent node names.
const (
	NodeAnalyzeRequest   = "analyze_request"
	NodeExecuteOperation = "execute_operation"
	NodeStoreDocument    = "store_document_data"
	NodeGenerateResponse = "generate_response"
)

// Routing targets produced by create_plan.
const (
	NextStepDocument       = "document"
	NextStepGenerateAnswer = "generate_answer"
)

// Task is the user's request, immutable once created at request ingress.
type Task struct {
	Original  string
	SessionId string
	ThreadId  string
}

// Answer is the final user-facing payload. Summary mirrors Response; two
// downstream consumers historically read different fields.
type Answer struct {
	Response   string
	Summary    string
	ResponseId string
	Timestamp  time.Time
}

// WorkflowState is threaded through every supervisor node. Each node mutates
// its own fields and appends its name to ExecutedSteps.
type WorkflowState struct {
	User          string
	Task          Task
	Memories      []memory.Record
	Entities      map[string]interface{}
	Context       string
	NextStep      string
	Plan          string
	Answer        *Answer
	TaskComplete  bool
	ExecutedSteps []string
}

// Answered reports whether a non-empty answer is present. Once true, routing
// back into a sub-agent must not occur.
func (s WorkflowState) Answered() bool {
	return s.Answer != nil && s.Answer.Response != ""
}

// Operation is a document sub-agent action.
type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpAssign  Operation = "assign"
	OpFetch   Operation = "fetch"
	OpSearch  Operation = "search"
	OpComment Operation = "comment"
	OpDelete  Operation = "delete"
	OpAnalyze Operation = "analyze"
)

// DocumentState is scoped to one document sub-agent traversal. Operation is
// set by analyze_request before any handler runs; a non-empty Err
// short-circuits persistence.
type DocumentState struct {
	Task               Task
	Operation          Operation
	DocumentData       map[string]interface{}
	DocumentId         string
	SearchQuery        string
	StoreSearchResults []map[string]interface{}
	Err                string
	Answer             *Answer
	FoundInStore       bool
	TaskComplete       bool
}
