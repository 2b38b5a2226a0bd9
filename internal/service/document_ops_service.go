package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuagent-be/internal/entity"
	"docuagent-be/internal/pkg/logger"
	"docuagent-be/internal/repository/contract"
	"docuagent-be/internal/repository/specification"
	"docuagent-be/pkg/agent"
	"docuagent-be/pkg/embedding"
	"docuagent-be/pkg/llm"
	"docuagent-be/pkg/utils"
)

const (
	documentSearchLimit    = 5
	documentSearchMinScore = 0.5
)

// DocumentOpsService backs the document sub-agent's operation handlers for
// one tenant. Handlers report failures through the state's Err field; they
// never abort the workflow.
type DocumentOpsService struct {
	tenant   string
	repo     contract.DocumentRepository
	embedder embedding.EmbeddingProvider
	llm      llm.LLMProvider
	log      logger.ILogger
}

func NewDocumentOpsService(
	tenant string,
	repo contract.DocumentRepository,
	embedder embedding.EmbeddingProvider,
	provider llm.LLMProvider,
	log logger.ILogger,
) agent.DocumentOperations {
	return &DocumentOpsService{
		tenant:   tenant,
		repo:     repo,
		embedder: embedder,
		llm:      provider,
		log:      log,
	}
}

func (o *DocumentOpsService) Create(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     titleFromTask(st.Task.Original),
		Content:   st.Task.Original,
		Status:    "open",
		Tenant:    o.tenant,
		CreatedAt: time.Now(),
	}
	if err := o.repo.Create(ctx, doc); err != nil {
		st.Err = err.Error()
		return st
	}
	st.DocumentId = doc.Id.String()
	st.DocumentData = documentToMap(doc)
	return st
}

func (o *DocumentOpsService) Update(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	doc, err := o.findByTask(ctx, st.Task.Original)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if doc == nil {
		st.DocumentData = map[string]interface{}{"message": "No matching document found to update"}
		return st
	}

	doc.Content = doc.Content + "\n\n" + st.Task.Original
	now := time.Now()
	doc.UpdatedAt = &now
	if err := o.repo.Update(ctx, doc); err != nil {
		st.Err = err.Error()
		return st
	}
	st.DocumentId = doc.Id.String()
	st.DocumentData = documentToMap(doc)
	return st
}

func (o *DocumentOpsService) Assign(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	doc, err := o.findByTask(ctx, st.Task.Original)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if doc == nil {
		st.DocumentData = map[string]interface{}{"message": "No matching document found to assign"}
		return st
	}

	assignee := assigneeFromTask(st.Task.Original)
	if assignee == "" {
		st.DocumentData = map[string]interface{}{"message": "Could not determine who to assign the document to"}
		return st
	}

	doc.Assignee = assignee
	now := time.Now()
	doc.UpdatedAt = &now
	if err := o.repo.Update(ctx, doc); err != nil {
		st.Err = err.Error()
		return st
	}
	st.DocumentId = doc.Id.String()
	st.DocumentData = documentToMap(doc)
	return st
}

func (o *DocumentOpsService) Fetch(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	doc, err := o.findByTask(ctx, st.Task.Original)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if doc == nil {
		st.DocumentData = map[string]interface{}{"message": "No matching document found"}
		return st
	}
	st.DocumentId = doc.Id.String()
	st.DocumentData = documentToMap(doc)
	return st
}

func (o *DocumentOpsService) Search(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	st.SearchQuery = st.Task.Original

	vec, err := o.embedder.Generate(st.Task.Original, "retrieval_query")
	if err != nil {
		st.Err = fmt.Sprintf("embedding failed: %v", err)
		return st
	}

	hits, err := o.repo.SemanticSearch(ctx, o.tenant, vec.Embedding.Values, documentSearchLimit, documentSearchMinScore)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if len(hits) == 0 {
		st.DocumentData = map[string]interface{}{"message": "No documents matched the search"}
		return st
	}

	results := make([]map[string]interface{}, len(hits))
	for i, hit := range hits {
		m := documentToMap(hit.Document)
		m["score"] = hit.Score
		results[i] = m
	}
	st.StoreSearchResults = results
	st.FoundInStore = true
	return st
}

func (o *DocumentOpsService) Comment(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	doc, err := o.findByTask(ctx, st.Task.Original)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if doc == nil {
		st.DocumentData = map[string]interface{}{"message": "No matching document found to comment on"}
		return st
	}

	comment := &entity.DocumentComment{
		Id:         uuid.New(),
		DocumentId: doc.Id,
		Body:       st.Task.Original,
		CreatedAt:  time.Now(),
	}
	if err := o.repo.AddComment(ctx, comment); err != nil {
		st.Err = err.Error()
		return st
	}
	st.DocumentId = doc.Id.String()
	st.DocumentData = map[string]interface{}{
		"message":     fmt.Sprintf("Comment added to document '%s'", doc.Title),
		"document_id": doc.Id.String(),
	}
	return st
}

func (o *DocumentOpsService) Delete(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	doc, err := o.findByTask(ctx, st.Task.Original)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if doc == nil {
		st.DocumentData = map[string]interface{}{"message": "No matching document found to delete"}
		return st
	}
	if err := o.repo.Delete(ctx, doc.Id); err != nil {
		st.Err = err.Error()
		return st
	}
	st.DocumentData = map[string]interface{}{
		"message": fmt.Sprintf("Document '%s' deleted", doc.Title),
	}
	return st
}

func (o *DocumentOpsService) Analyze(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	docs, err := o.repo.FindAll(ctx,
		specification.ByTenant{Tenant: o.tenant},
		specification.DocumentSearchQuery{Query: titleFromTask(st.Task.Original)},
		specification.Pagination{Limit: documentSearchLimit},
	)
	if err != nil {
		st.Err = err.Error()
		return st
	}
	if len(docs) == 0 {
		st.DocumentData = map[string]interface{}{"message": "No documents found to analyze"}
		return st
	}

	var corpus strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&corpus, "%d. %s\n%s\n\n", i+1, doc.Title, doc.Content)
	}

	analysis, err := o.llm.Generate(ctx, fmt.Sprintf(
		"Analyze the following documents in the context of this request: '%s'\n\n%s",
		st.Task.Original, corpus.String(),
	))
	if err != nil {
		st.Err = fmt.Sprintf("analysis failed: %v", err)
		return st
	}
	st.DocumentData = map[string]interface{}{
		"analysis":       analysis,
		"document_count": len(docs),
	}
	return st
}

// Store embeds the current document's content and writes the vector back so
// subsequent searches can find it.
func (o *DocumentOpsService) Store(ctx context.Context, st agent.DocumentState) agent.DocumentState {
	id, err := uuid.Parse(st.DocumentId)
	if err != nil {
		st.Err = fmt.Sprintf("invalid document id %q", st.DocumentId)
		return st
	}

	content, _ := st.DocumentData["content"].(string)
	if content == "" {
		content = st.Task.Original
	}
	content = utils.SplitText(content, embedChunkSize, embedOverlap)[0]

	vec, err := o.embedder.Generate(content, "retrieval_document")
	if err != nil {
		st.Err = fmt.Sprintf("embedding failed: %v", err)
		return st
	}
	if err := o.repo.UpdateEmbedding(ctx, id, vec.Embedding.Values); err != nil {
		st.Err = err.Error()
		return st
	}
	o.log.Info("document_ops", "stored document embedding", map[string]interface{}{
		"tenant": o.tenant, "document_id": st.DocumentId,
	})
	return st
}

func (o *DocumentOpsService) findByTask(ctx context.Context, task string) (*entity.Document, error) {
	return o.repo.FindOne(ctx,
		specification.ByTenant{Tenant: o.tenant},
		specification.DocumentSearchQuery{Query: titleFromTask(task)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}

func documentToMap(doc *entity.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":         doc.Id.String(),
		"title":      doc.Title,
		"content":    doc.Content,
		"status":     doc.Status,
		"priority":   doc.Priority,
		"assignee":   doc.Assignee,
		"created_at": doc.CreatedAt.Format(time.RFC3339),
	}
}

// titleFromTask prefers a quoted phrase inside the request; otherwise it
// falls back to the leading words of the request itself.
func titleFromTask(task string) string {
	for _, quote := range []string{`"`, "'"} {
		if start := strings.Index(task, quote); start >= 0 {
			rest := task[start+1:]
			if end := strings.Index(rest, quote); end > 0 {
				return rest[:end]
			}
		}
	}
	words := strings.Fields(task)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

// assigneeFromTask picks the word following "to", the usual phrasing of an
// assignment request.
func assigneeFromTask(task string) string {
	words := strings.Fields(task)
	for i, w := range words {
		if strings.EqualFold(w, "to") && i+1 < len(words) {
			return strings.Trim(words[i+1], `"'.,!?`)
		}
	}
	return ""
}
