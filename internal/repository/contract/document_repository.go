package contract

import (
	"context"

	"docuagent-be/internal/entity"
	"docuagent-be/internal/repository/specification"

	"github.com/google/uuid"
)

// DocumentHit is a document with its similarity score from semantic search.
type DocumentHit struct {
	Document *entity.Document
	Score    float64
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	AddComment(ctx context.Context, comment *entity.DocumentComment) error
	FindComments(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentComment, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	SemanticSearch(ctx context.Context, tenant string, embedding []float32, limit int, minScore float64) ([]DocumentHit, error)
}
