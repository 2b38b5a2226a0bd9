package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/embedding"
	"docuagent-be/pkg/events"
	"docuagent-be/pkg/vectorstore"
)

// CollectionName is the base name of the long-term memory collection; the
// store suffixes it with the tenant key.
const CollectionName = "ltm"

const (
	DefaultSearchLimit = 5
	DefaultMinScore    = 0.7
)

// Record is one persisted conversational turn, as returned by similarity
// search. Similarity is only meaningful on records coming out of
// GetSimilarQuestions.
type Record struct {
	ResponseId string
	Question   string
	Answer     string
	UserId     string
	CreatedAt  string
	Metadata   map[string]interface{}
	Upvotes    int64
	Downvotes  int64
	Similarity float64
}

// SaveParams carries the optional fields of SaveQuestionAnswer.
type SaveParams struct {
	Question   string
	Answer     string
	ResponseId string
	UserId     string
	Metadata   map[string]interface{}
}

// EventPublisher is the seam for the NATS bus; best-effort, may be nil.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// LongTermMemory stores and retrieves question/answer turns for one tenant.
type LongTermMemory struct {
	tenant    string
	store     vectorstore.Store
	embedder  embedding.EmbeddingProvider
	publisher EventPublisher
	log       logger.ILogger
}

var collectionColumns = []vectorstore.Column{
	{Name: "response_id", Type: "text"},
	{Name: "question", Type: "text"},
	{Name: "answer", Type: "text"},
	{Name: "user_id", Type: "text"},
	{Name: "created_at", Type: "text"},
	{Name: "metadata", Type: "text"},
	{Name: "upvotes", Type: "bigint"},
	{Name: "downvotes", Type: "bigint"},
}

// NewLongTermMemory resolves the tenant's store from the pool and makes sure
// the memory collection exists.
func NewLongTermMemory(
	tenant string,
	pool *vectorstore.Pool,
	embedder embedding.EmbeddingProvider,
	publisher EventPublisher,
	log logger.ILogger,
) (*LongTermMemory, error) {
	store, err := pool.Get(tenant)
	if err != nil {
		return nil, err
	}

	m := &LongTermMemory{
		tenant:    tenant,
		store:     store,
		embedder:  embedder,
		publisher: publisher,
		log:       log,
	}
	if err := store.EnsureCollection(context.Background(), CollectionName, collectionColumns); err != nil {
		// Collection creation failure is logged but not fatal: every
		// operation degrades per its own contract.
		log.Error("memory", "failed to ensure memory collection", map[string]interface{}{
			"tenant": tenant, "error": err.Error(),
		})
	}
	return m, nil
}

// NewLongTermMemoryWithStore wires an explicit store, bypassing the pool.
// Used by tests with fake stores.
func NewLongTermMemoryWithStore(
	tenant string,
	store vectorstore.Store,
	embedder embedding.EmbeddingProvider,
	publisher EventPublisher,
	log logger.ILogger,
) *LongTermMemory {
	return &LongTermMemory{
		tenant:    tenant,
		store:     store,
		embedder:  embedder,
		publisher: publisher,
		log:       log,
	}
}

// embed returns the question embedding, degrading to the zero vector when the
// embedding backend fails. Never returns an error.
func (m *LongTermMemory) embed(question string) []float32 {
	resp, err := m.embedder.Generate(question, "retrieval_query")
	if err != nil {
		m.log.Error("memory", "embedding failed, using zero vector", map[string]interface{}{
			"tenant": m.tenant, "error": err.Error(),
		})
		return embedding.ZeroVector()
	}
	return resp.Embedding.Values
}

// SaveQuestionAnswer persists one turn and returns its response id. Returns
// an empty string on store failure; callers must treat "" as "not saved".
func (m *LongTermMemory) SaveQuestionAnswer(ctx context.Context, p SaveParams) string {
	responseId := p.ResponseId
	if responseId == "" {
		responseId = uuid.New().String()
	}

	userId := p.UserId
	if userId == "" {
		userId = "unknown"
	}

	metadataStr := "{}"
	if p.Metadata != nil {
		if b, err := json.Marshal(p.Metadata); err == nil {
			metadataStr = string(b)
		} else {
			m.log.Warn("memory", "failed to serialize metadata", map[string]interface{}{
				"tenant": m.tenant, "error": err.Error(),
			})
		}
	}

	vec := m.embed(p.Question)

	err := m.store.Insert(ctx, CollectionName, map[string]interface{}{
		"response_id": responseId,
		"question":    p.Question,
		"answer":      p.Answer,
		"user_id":     userId,
		"created_at":  time.Now().Format(time.RFC3339),
		"metadata":    metadataStr,
		"upvotes":     0,
		"downvotes":   0,
	}, vec)
	if err != nil {
		m.log.Error("memory", "failed to save memory", map[string]interface{}{
			"tenant": m.tenant, "response_id": responseId, "error": err.Error(),
		})
		return ""
	}

	m.publish(ctx, events.NewChatTurnSaved(m.tenant, responseId, userId))

	m.log.Info("memory", "saved memory", map[string]interface{}{
		"tenant": m.tenant, "response_id": responseId,
	})
	return responseId
}

// GetSimilarQuestions returns past turns similar to the question, ordered by
// descending similarity, filtered by minScore. Failures degrade to an empty
// result; malformed metadata degrades to an empty map.
func (m *LongTermMemory) GetSimilarQuestions(ctx context.Context, question string, limit int, minScore float64) []Record {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vec := m.embed(question)

	hits, err := m.store.Search(ctx, CollectionName, vec, limit, minScore)
	if err != nil {
		m.log.Error("memory", "similarity search failed", map[string]interface{}{
			"tenant": m.tenant, "error": err.Error(),
		})
		return []Record{}
	}

	records := make([]Record, 0, len(hits))
	for _, hit := range hits {
		rec := Record{
			ResponseId: asString(hit.Fields["response_id"]),
			Question:   asString(hit.Fields["question"]),
			Answer:     asString(hit.Fields["answer"]),
			UserId:     asString(hit.Fields["user_id"]),
			CreatedAt:  asString(hit.Fields["created_at"]),
			Upvotes:    asInt64(hit.Fields["upvotes"]),
			Downvotes:  asInt64(hit.Fields["downvotes"]),
			Similarity: hit.Score,
			Metadata:   map[string]interface{}{},
		}
		raw := asString(hit.Fields["metadata"])
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec.Metadata); err != nil {
				m.log.Warn("memory", "failed to parse stored metadata", map[string]interface{}{
					"tenant": m.tenant, "response_id": rec.ResponseId,
				})
				rec.Metadata = map[string]interface{}{}
			}
		}
		records = append(records, rec)
	}
	return records
}

// UpdateVotes increments the up or down counter of the record identified by
// responseId. Returns false when the id is unknown or the write fails.
func (m *LongTermMemory) UpdateVotes(ctx context.Context, responseId string, upvote bool) bool {
	rows, err := m.store.Query(ctx, CollectionName, map[string]interface{}{
		"response_id": responseId,
	}, 1)
	if err != nil {
		m.log.Error("memory", "vote lookup failed", map[string]interface{}{
			"tenant": m.tenant, "response_id": responseId, "error": err.Error(),
		})
		return false
	}
	if len(rows) == 0 {
		m.log.Warn("memory", "no memory found for vote", map[string]interface{}{
			"tenant": m.tenant, "response_id": responseId,
		})
		return false
	}

	row := rows[0]
	id := asInt64(row["id"])
	upvotes := asInt64(row["upvotes"])
	downvotes := asInt64(row["downvotes"])

	if upvote {
		upvotes++
	} else {
		downvotes++
	}

	err = m.store.Update(ctx, CollectionName, id, map[string]interface{}{
		"upvotes":   upvotes,
		"downvotes": downvotes,
	})
	if err != nil {
		m.log.Error("memory", "vote update failed", map[string]interface{}{
			"tenant": m.tenant, "response_id": responseId, "error": err.Error(),
		})
		return false
	}

	m.publish(ctx, events.NewMemoryVote(m.tenant, responseId, upvote))
	return true
}

// ClearMemories drops the tenant's entire memory collection. Returns false
// when the collection does not exist or the drop fails.
func (m *LongTermMemory) ClearMemories(ctx context.Context) bool {
	exists, err := m.store.HasCollection(ctx, CollectionName)
	if err != nil || !exists {
		return false
	}
	if err := m.store.DropCollection(ctx, CollectionName); err != nil {
		m.log.Error("memory", "failed to clear memories", map[string]interface{}{
			"tenant": m.tenant, "error": err.Error(),
		})
		return false
	}
	// Recreate the collection right away; the runtime holding this memory is
	// cached, so later saves and searches expect the table to exist.
	if err := m.store.EnsureCollection(ctx, CollectionName, collectionColumns); err != nil {
		m.log.Error("memory", "failed to recreate memory collection", map[string]interface{}{
			"tenant": m.tenant, "error": err.Error(),
		})
	}

	m.log.Info("memory", "cleared all memories", map[string]interface{}{"tenant": m.tenant})
	return true
}

func (m *LongTermMemory) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.log.Warn("memory", "event publish failed", map[string]interface{}{
			"tenant": m.tenant, "event": event.EventType(), "error": err.Error(),
		})
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
