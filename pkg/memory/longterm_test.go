package memory_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuagent-be/internal/pkg/logger"
	"docuagent-be/pkg/embedding"
	"docuagent-be/pkg/events"
	"docuagent-be/pkg/memory"
	"docuagent-be/pkg/vectorstore"
)

// fakeEmbedder returns a fixed vector per text so similarity is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Generate(text string, _ string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		vec = []float32{0, 0, 1}
	}
	resp := &embedding.EmbeddingResponse{}
	resp.Embedding.Values = vec
	return resp, nil
}

type fakeRow struct {
	fields map[string]interface{}
	vec    []float32
}

// fakeStore is an in-memory Store with cosine-similarity search.
type fakeStore struct {
	rows        []*fakeRow
	nextId      int64
	insertErr   error
	dropped     bool
	ensureCalls int
}

func (f *fakeStore) EnsureCollection(context.Context, string, []vectorstore.Column) error {
	f.ensureCalls++
	return nil
}

func (f *fakeStore) HasCollection(context.Context, string) (bool, error) {
	return len(f.rows) > 0, nil
}

func (f *fakeStore) DropCollection(context.Context, string) error {
	f.rows = nil
	f.dropped = true
	return nil
}

func (f *fakeStore) Insert(_ context.Context, _ string, fields map[string]interface{}, vec []float32) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextId++
	copied := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		copied[k] = v
	}
	copied["id"] = f.nextId
	f.rows = append(f.rows, &fakeRow{fields: copied, vec: vec})
	return nil
}

func (f *fakeStore) Query(_ context.Context, _ string, filter map[string]interface{}, limit int) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, row := range f.rows {
		match := true
		for k, v := range filter {
			if row.fields[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, row.fields)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, _ string, id int64, fields map[string]interface{}) error {
	for _, row := range f.rows {
		if row.fields["id"] == id {
			for k, v := range fields {
				row.fields[k] = v
			}
			return nil
		}
	}
	return errors.New("row not found")
}

func (f *fakeStore) Search(_ context.Context, _ string, vec []float32, limit int, minScore float64) ([]vectorstore.Hit, error) {
	var hits []vectorstore.Hit
	for _, row := range f.rows {
		score := cosine(vec, row.vec)
		if score >= minScore {
			hits = append(hits, vectorstore.Hit{Fields: row.fields, Score: score})
		}
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type recordingPublisher struct {
	published []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.published = append(r.published, e)
	return nil
}

func newTestMemory(store vectorstore.Store, embedder embedding.EmbeddingProvider, pub memory.EventPublisher) *memory.LongTermMemory {
	return memory.NewLongTermMemoryWithStore("acme", store, embedder, pub, logger.NewNopLogger())
}

func TestSaveAndRetrieveSimilarQuestions(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"how do I reset my password?":   {1, 0, 0},
		"how can I reset the password?": {0.99, 0.1, 0},
		"what is the office address?":   {0, 1, 0},
	}}
	store := &fakeStore{}
	pub := &recordingPublisher{}
	ltm := newTestMemory(store, embedder, pub)

	ctx := context.Background()

	id := ltm.SaveQuestionAnswer(ctx, memory.SaveParams{
		Question:   "how do I reset my password?",
		Answer:     "Use the forgot-password link.",
		ResponseId: "r1",
		UserId:     "u1",
		Metadata:   map[string]interface{}{"session_id": "s1"},
	})
	assert.Equal(t, "r1", id)
	require.Len(t, pub.published, 1)

	ltm.SaveQuestionAnswer(ctx, memory.SaveParams{
		Question: "what is the office address?",
		Answer:   "Jalan Sudirman 12.",
	})

	records := ltm.GetSimilarQuestions(ctx, "how can I reset the password?", 5, 0.7)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ResponseId)
	assert.Equal(t, "Use the forgot-password link.", records[0].Answer)
	assert.Equal(t, "u1", records[0].UserId)
	assert.Equal(t, "s1", records[0].Metadata["session_id"])
	assert.Greater(t, records[0].Similarity, 0.7)
}

func TestSaveDefaults(t *testing.T) {
	store := &fakeStore{}
	ltm := newTestMemory(store, &fakeEmbedder{}, nil)

	id := ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{
		Question: "q",
		Answer:   "a",
	})
	require.NotEmpty(t, id, "a missing response id is generated")

	require.Len(t, store.rows, 1)
	assert.Equal(t, "unknown", store.rows[0].fields["user_id"])
	assert.Equal(t, "{}", store.rows[0].fields["metadata"])
}

func TestSaveReturnsEmptyOnStoreFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	pub := &recordingPublisher{}
	ltm := newTestMemory(store, &fakeEmbedder{}, pub)

	id := ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{Question: "q", Answer: "a"})
	assert.Empty(t, id)
	assert.Empty(t, pub.published, "failed saves publish nothing")
}

func TestEmbeddingFailureDegradesToZeroVector(t *testing.T) {
	store := &fakeStore{}
	ltm := newTestMemory(store, &fakeEmbedder{err: errors.New("backend down")}, nil)

	id := ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{Question: "q", Answer: "a"})
	assert.NotEmpty(t, id, "embedding failure must not block the save")

	records := ltm.GetSimilarQuestions(context.Background(), "q", 5, 0.7)
	assert.Empty(t, records, "zero vectors never score above the threshold")
}

func TestGetSimilarQuestionsThreshold(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	store := &fakeStore{}
	ltm := newTestMemory(store, embedder, nil)

	ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{Question: "q", Answer: "a"})

	records := ltm.GetSimilarQuestions(context.Background(), "q", 5, 1.01)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestUpdateVotes(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{}
	ltm := newTestMemory(store, &fakeEmbedder{}, pub)

	ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{
		Question: "q", Answer: "a", ResponseId: "r1",
	})
	pub.published = nil

	require.True(t, ltm.UpdateVotes(context.Background(), "r1", true))
	require.True(t, ltm.UpdateVotes(context.Background(), "r1", true))
	require.True(t, ltm.UpdateVotes(context.Background(), "r1", false))

	assert.Equal(t, int64(2), store.rows[0].fields["upvotes"])
	assert.Equal(t, int64(1), store.rows[0].fields["downvotes"])
	assert.Len(t, pub.published, 3)

	assert.False(t, ltm.UpdateVotes(context.Background(), "missing", true))
}

func TestClearMemories(t *testing.T) {
	store := &fakeStore{}
	ltm := newTestMemory(store, &fakeEmbedder{}, nil)

	assert.False(t, ltm.ClearMemories(context.Background()), "nothing to clear")

	ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{Question: "q", Answer: "a"})
	assert.True(t, ltm.ClearMemories(context.Background()))
	assert.True(t, store.dropped)
	assert.Empty(t, store.rows)
}

func TestClearMemoriesRecreatesCollection(t *testing.T) {
	store := &fakeStore{}
	ltm := newTestMemory(store, &fakeEmbedder{}, nil)

	ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{Question: "q", Answer: "a"})

	ensured := store.ensureCalls
	require.True(t, ltm.ClearMemories(context.Background()))
	assert.Equal(t, ensured+1, store.ensureCalls, "the collection is recreated right after the drop")

	// The same cached instance keeps working after a clear.
	id := ltm.SaveQuestionAnswer(context.Background(), memory.SaveParams{
		Question: "q again", Answer: "a again", ResponseId: "r2",
	})
	assert.Equal(t, "r2", id)
	require.Len(t, store.rows, 1)
	assert.Equal(t, "a again", store.rows[0].fields["answer"])
}
