package implementation

import (
	"context"
	"errors"

	"docuagent-be/internal/entity"
	"docuagent-be/internal/mapper"
	"docuagent-be/internal/model"
	"docuagent-be/internal/repository/contract"
	"docuagent-be/internal/repository/scope"
	"docuagent-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Create and Update never touch the embedding column; only UpdateEmbedding
// writes it, so the consumer-computed vector survives later saves.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Omit("embedding").Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Update(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Omit("embedding").Save(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedDesc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Document{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepositoryImpl) AddComment(ctx context.Context, comment *entity.DocumentComment) error {
	m := r.mapper.ToCommentModel(comment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*comment = *r.mapper.ToCommentEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) FindComments(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentComment, error) {
	var models []*model.DocumentComment
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentId).
		Scopes(scope.OrderByCreatedAsc).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	comments := make([]*entity.DocumentComment, len(models))
	for i, m := range models {
		comments[i] = r.mapper.ToCommentEntity(m)
	}
	return comments, nil
}

func (r *DocumentRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", id).
		Update("embedding", pgvector.NewVector(embedding)).Error
}

// SemanticSearch returns documents ordered by cosine similarity to the query
// vector. Cosine distance in pgvector is 1 - similarity, so the score is
// computed as 1 - (embedding <=> query).
func (r *DocumentRepositoryImpl) SemanticSearch(ctx context.Context, tenant string, embedding []float32, limit int, minScore float64) ([]contract.DocumentHit, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.Document
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("documents").
		Select("documents.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("tenant = ?", tenant).
		Where("embedding IS NOT NULL").
		Scopes(scope.ExcludeSoftDelete).
		Where("1 - (embedding <=> ?) >= ?", queryVector, minScore).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	hits := make([]contract.DocumentHit, len(results))
	for i, res := range results {
		hits[i] = contract.DocumentHit{
			Document: r.mapper.ToEntity(&res.Document),
			Score:    res.Similarity,
		}
	}
	return hits, nil
}
