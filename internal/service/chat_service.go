package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"docuagent-be/internal/dto"
	"docuagent-be/internal/entity"
	"docuagent-be/internal/pkg/logger"
	"docuagent-be/internal/repository/contract"
	repoMemory "docuagent-be/internal/repository/memory"
	"docuagent-be/pkg/agent"
	"docuagent-be/pkg/agent/graph"
	"docuagent-be/pkg/embedding"
	"docuagent-be/pkg/llm"
	"docuagent-be/pkg/memory"
	"docuagent-be/pkg/vectorstore"
)

type IChatService interface {
	EnsureSession(tenant string, req *dto.ChatRequest) *entity.ChatSession
	Stream(ctx context.Context, tenant string, req *dto.ChatRequest) <-chan graph.Event
	Vote(ctx context.Context, tenant string, req *dto.VoteRequest) bool
	ClearMemories(ctx context.Context, tenant string) bool
}

// tenantRuntime bundles the per-tenant workflow and memory manager. Runtimes
// are constructed lazily and reused; the registry is the only shared mutable
// structure, so access is serialized.
type tenantRuntime struct {
	supervisor *agent.Supervisor
	ltm        *memory.LongTermMemory
}

type chatService struct {
	mu       sync.Mutex
	runtimes map[string]*tenantRuntime

	pool        *vectorstore.Pool
	embedder    embedding.EmbeddingProvider
	planner     llm.LLMProvider
	answerer    llm.LLMProvider
	docRepo     contract.DocumentRepository
	publisher   memory.EventPublisher
	sessionRepo *repoMemory.SessionRepository
	searchLimit int
	minScore    float64
	log         logger.ILogger
}

func NewChatService(
	pool *vectorstore.Pool,
	embedder embedding.EmbeddingProvider,
	planner llm.LLMProvider,
	answerer llm.LLMProvider,
	docRepo contract.DocumentRepository,
	publisher memory.EventPublisher,
	sessionRepo *repoMemory.SessionRepository,
	searchLimit int,
	minScore float64,
	log logger.ILogger,
) IChatService {
	return &chatService{
		runtimes:    make(map[string]*tenantRuntime),
		pool:        pool,
		embedder:    embedder,
		planner:     planner,
		answerer:    answerer,
		docRepo:     docRepo,
		publisher:   publisher,
		sessionRepo: sessionRepo,
		searchLimit: searchLimit,
		minScore:    minScore,
		log:         log,
	}
}

func (s *chatService) runtime(tenant string) (*tenantRuntime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt, ok := s.runtimes[tenant]; ok {
		return rt, nil
	}

	ltm, err := memory.NewLongTermMemory(tenant, s.pool, s.embedder, s.publisher, s.log)
	if err != nil {
		return nil, err
	}

	ops := NewDocumentOpsService(tenant, s.docRepo, s.embedder, s.planner, s.log)
	docAgent := agent.NewDocumentAgent(s.planner, ops, s.log)
	supervisor := agent.NewSupervisor(s.planner, s.answerer, ltm, docAgent, s.searchLimit, s.minScore, s.log)

	rt := &tenantRuntime{supervisor: supervisor, ltm: ltm}
	s.runtimes[tenant] = rt
	s.log.Info("chat", "initialized tenant runtime", map[string]interface{}{"tenant": tenant})
	return rt, nil
}

// EnsureSession fills in missing session/thread ids and records the session.
func (s *chatService) EnsureSession(tenant string, req *dto.ChatRequest) *entity.ChatSession {
	if req.SessionId == "" {
		req.SessionId = uuid.New().String()
	}
	if req.ThreadId == "" {
		req.ThreadId = uuid.New().String()
	}

	session, found := s.sessionRepo.Get(req.SessionId)
	if !found {
		session = &entity.ChatSession{
			Id:        req.SessionId,
			ThreadId:  req.ThreadId,
			Tenant:    tenant,
			CreatedAt: time.Now(),
		}
	}
	s.sessionRepo.Save(session)
	return session
}

// Stream runs the supervisor workflow for one request and returns its event
// stream. The channel is closed after StreamEnd or StreamError.
func (s *chatService) Stream(ctx context.Context, tenant string, req *dto.ChatRequest) <-chan graph.Event {
	events := make(chan graph.Event, 64)

	rt, err := s.runtime(tenant)
	if err != nil {
		s.log.Error("chat", "failed to initialize tenant runtime", map[string]interface{}{
			"tenant": tenant, "error": err.Error(),
		})
		go func() {
			defer close(events)
			send(ctx, events, graph.StreamError{Err: err})
		}()
		return events
	}

	state := agent.WorkflowState{
		Task: agent.Task{
			Original:  req.Question,
			SessionId: req.SessionId,
			ThreadId:  req.ThreadId,
		},
	}

	go func() {
		defer close(events)
		_, err := rt.supervisor.Run(ctx, state, func(e graph.Event) {
			send(ctx, events, e)
		})
		if err != nil {
			s.log.Error("chat", "workflow run failed", map[string]interface{}{
				"tenant": tenant, "session_id": req.SessionId, "error": err.Error(),
			})
			send(ctx, events, graph.StreamError{Err: err})
			return
		}
		send(ctx, events, graph.StreamEnd{})
	}()
	return events
}

func (s *chatService) Vote(ctx context.Context, tenant string, req *dto.VoteRequest) bool {
	rt, err := s.runtime(tenant)
	if err != nil {
		return false
	}
	return rt.ltm.UpdateVotes(ctx, req.ResponseId, req.Upvote)
}

func (s *chatService) ClearMemories(ctx context.Context, tenant string) bool {
	rt, err := s.runtime(tenant)
	if err != nil {
		return false
	}
	return rt.ltm.ClearMemories(ctx)
}

// send delivers an event unless the request context is already gone.
func send(ctx context.Context, events chan<- graph.Event, e graph.Event) {
	select {
	case events <- e:
	case <-ctx.Done():
	}
}
