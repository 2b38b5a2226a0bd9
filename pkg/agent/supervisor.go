package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/agent/graph"
	"docuagent-be/pkg/llm"
	"docuagent-be/pkg/memory"
)

const answerFallback = "I'm sorry, I wasn't able to process your request at this time. Please try again later."

// MemoryStore is the slice of the long-term memory manager the supervisor
// needs. Both methods degrade internally and never fail the workflow.
type MemoryStore interface {
	SaveQuestionAnswer(ctx context.Context, p memory.SaveParams) string
	GetSimilarQuestions(ctx context.Context, question string, limit int, minScore float64) []memory.Record
}

// Supervisor is the top-level workflow. It retrieves memories, plans, routes
// to the document sub-agent or directly to answer generation, and persists
// the finished turn.
type Supervisor struct {
	planner     llm.LLMProvider
	answerer    llm.LLMProvider
	memories    MemoryStore
	document    *DocumentAgent
	log         logger.ILogger
	graph       *graph.Graph[WorkflowState]
	searchLimit int
	minScore    float64
}

// NewSupervisor builds the workflow graph. planner handles classification and
// planning; answerer handles final answer generation and may be a stronger
// model. searchLimit and minScore bound the memory retrieval; non-positive
// values fall back to the package defaults.
func NewSupervisor(
	planner llm.LLMProvider,
	answerer llm.LLMProvider,
	memories MemoryStore,
	document *DocumentAgent,
	searchLimit int,
	minScore float64,
	log logger.ILogger,
) *Supervisor {
	if searchLimit <= 0 {
		searchLimit = memory.DefaultSearchLimit
	}
	if minScore <= 0 {
		minScore = memory.DefaultMinScore
	}
	s := &Supervisor{
		planner:     planner,
		answerer:    answerer,
		memories:    memories,
		document:    document,
		log:         log,
		searchLimit: searchLimit,
		minScore:    minScore,
	}

	g := graph.New[WorkflowState]()
	g.AddNode(NodeRetrieveMemories, s.retrieveMemories)
	g.AddNode(NodeCreatePlan, s.createPlan)
	g.AddNode(NodeDocumentAgent, s.runDocumentAgent)
	g.AddNode(NodeGenerateAnswer, s.generateAnswer)
	g.AddNode(NodeSaveMemories, s.saveMemories)

	g.AddEdge(NodeRetrieveMemories, NodeCreatePlan)
	g.AddConditionalEdge(NodeCreatePlan, RouteNextStep)
	g.AddConditionalEdge(NodeDocumentAgent, RouteCompletion)
	g.AddEdge(NodeGenerateAnswer, NodeSaveMemories)

	g.SetEntry(NodeRetrieveMemories)
	g.SetTerminal(NodeSaveMemories)

	s.graph = g
	return s
}

// Run executes one request through the workflow, emitting events to emit as
// nodes produce output and complete.
func (s *Supervisor) Run(ctx context.Context, state WorkflowState, emit graph.EmitFunc) (WorkflowState, error) {
	return s.graph.Run(ctx, state, emit)
}

// RouteNextStep resolves create_plan's decision to a node name. Anything the
// planner produced that is not a known agent falls back to answer generation.
func RouteNextStep(st WorkflowState) string {
	if st.NextStep == NextStepDocument {
		return NodeDocumentAgent
	}
	return NodeGenerateAnswer
}

// RouteCompletion is the single three-way branch taken after the document
// sub-agent returns: a completed answer goes straight to persistence, an
// incomplete answer is regenerated, and no answer means more planning.
func RouteCompletion(st WorkflowState) string {
	answered := st.Answered()
	switch {
	case st.TaskComplete && answered:
		return NodeSaveMemories
	case answered:
		return NodeGenerateAnswer
	default:
		return NodeCreatePlan
	}
}

func (s *Supervisor) retrieveMemories(ctx context.Context, st WorkflowState, _ graph.EmitFunc) (WorkflowState, error) {
	st.Memories = []memory.Record{}
	if st.Task.Original != "" {
		st.Memories = s.memories.GetSimilarQuestions(ctx, st.Task.Original, s.searchLimit, s.minScore)
	}
	s.log.Info("supervisor", "retrieved memories", map[string]interface{}{
		"count": len(st.Memories), "session_id": st.Task.SessionId,
	})
	st.ExecutedSteps = append(st.ExecutedSteps, NodeRetrieveMemories)
	return st, nil
}

func (s *Supervisor) createPlan(ctx context.Context, st WorkflowState, _ graph.EmitFunc) (WorkflowState, error) {
	// An already answered request needs no further agent work.
	if st.Answered() {
		st.NextStep = NextStepGenerateAnswer
		st.Plan = "Answer directly with the information already available."
		st.ExecutedSteps = append(st.ExecutedSteps, NodeCreatePlan)
		return st, nil
	}

	enriched := enrichTask(st.Task.Original, st.Memories)

	next := NextStepGenerateAnswer
	resp, err := s.planner.Generate(ctx, classifyAgentPrompt(enriched))
	if err != nil {
		s.log.Error("supervisor", "agent classification failed", map[string]interface{}{"error": err.Error()})
	} else if strings.Contains(strings.ToLower(resp), "document") {
		next = NextStepDocument
	}

	plan, err := s.planner.Generate(ctx, planPrompt(enriched, next))
	if err != nil {
		s.log.Error("supervisor", "plan generation failed", map[string]interface{}{"error": err.Error()})
		plan = fmt.Sprintf("Process the request using the %s agent.", next)
	}

	st.NextStep = next
	st.Plan = plan
	st.ExecutedSteps = append(st.ExecutedSteps, NodeCreatePlan)
	s.log.Info("supervisor", "created plan", map[string]interface{}{"next_step": next})
	return st, nil
}

func (s *Supervisor) runDocumentAgent(ctx context.Context, st WorkflowState, emit graph.EmitFunc) (WorkflowState, error) {
	docState, err := s.document.Run(ctx, DocumentState{Task: st.Task}, emit)
	if err != nil {
		return st, err
	}
	if docState.Err != "" {
		s.log.Warn("supervisor", "document agent reported error", map[string]interface{}{
			"operation": string(docState.Operation), "error": docState.Err,
		})
	}
	st.Answer = docState.Answer
	st.TaskComplete = docState.TaskComplete
	st.ExecutedSteps = append(st.ExecutedSteps, NodeDocumentAgent)
	return st, nil
}

func (s *Supervisor) generateAnswer(ctx context.Context, st WorkflowState, emit graph.EmitFunc) (WorkflowState, error) {
	question := st.Task.Original
	if question == "" {
		s.log.Warn("supervisor", "no question found in task", nil)
		question = "No question provided"
	}

	prompt := answerPrompt(question, st.Memories, st.Plan)
	text, err := s.answerer.GenerateStream(ctx, prompt, func(chunk string) {
		emit(graph.TokenDelta{Node: NodeGenerateAnswer, Text: chunk})
	})
	if err != nil {
		s.log.Error("supervisor", "answer generation failed", map[string]interface{}{"error": err.Error()})
		text = answerFallback
	}

	st.Answer = &Answer{
		Response:   text,
		Summary:    text,
		ResponseId: uuid.New().String(),
		Timestamp:  time.Now(),
	}
	st.ExecutedSteps = append(st.ExecutedSteps, NodeGenerateAnswer)
	return st, nil
}

func (s *Supervisor) saveMemories(ctx context.Context, st WorkflowState, _ graph.EmitFunc) (WorkflowState, error) {
	question := st.Task.Original

	var response, responseId string
	if st.Answer != nil {
		response = st.Answer.Response
		if response == "" {
			response = st.Answer.Summary
		}
		responseId = st.Answer.ResponseId
	}

	// A turn without both sides is simply not recorded.
	if question == "" || response == "" {
		s.log.Warn("supervisor", "missing question or response, skipping memory save", map[string]interface{}{
			"session_id": st.Task.SessionId,
		})
		return st, nil
	}

	id := s.memories.SaveQuestionAnswer(ctx, memory.SaveParams{
		Question:   question,
		Answer:     response,
		ResponseId: responseId,
		UserId:     st.User,
		Metadata: map[string]interface{}{
			"entities":   st.Entities,
			"context":    st.Context,
			"session_id": st.Task.SessionId,
			"thread_id":  st.Task.ThreadId,
		},
	})
	if id == "" {
		s.log.Error("supervisor", "failed to persist memory", map[string]interface{}{
			"session_id": st.Task.SessionId,
		})
		st.ExecutedSteps = append(st.ExecutedSteps, NodeSaveMemories)
		return st, nil
	}

	st.Answer.ResponseId = id
	st.ExecutedSteps = append(st.ExecutedSteps, NodeSaveMemories)
	return st, nil
}
