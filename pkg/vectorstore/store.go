package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"docuagent-be/pkg/embedding"
)

// Hit is a single similarity-search result. Score is in [0,1], 1.0 = identical.
type Hit struct {
	Fields map[string]interface{}
	Score  float64
}

// Column declares a scalar field of a collection. The store always adds an
// `id` bigserial primary key and an `embedding` vector column itself.
type Column struct {
	Name string
	Type string // postgres type, e.g. "text", "bigint"
}

// Store is the facade over the similarity-search service for one tenant.
// Collections are isolated per tenant; the zero limit means "store default".
type Store interface {
	EnsureCollection(ctx context.Context, collection string, columns []Column) error
	HasCollection(ctx context.Context, collection string) (bool, error)
	DropCollection(ctx context.Context, collection string) error

	Insert(ctx context.Context, collection string, fields map[string]interface{}, vec []float32) error
	Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) ([]map[string]interface{}, error)
	Update(ctx context.Context, collection string, id int64, fields map[string]interface{}) error
	Search(ctx context.Context, collection string, vec []float32, limit int, minScore float64) ([]Hit, error)
}

// TenantStore implements Store on top of gorm + pgvector. One collection maps
// to one table named `<collection>_<tenant>` so a tenant's memories can be
// dropped wholesale without touching anyone else's.
type TenantStore struct {
	db     *gorm.DB
	tenant string
}

var _ Store = &TenantStore{}

var identPattern = regexp.MustCompile(`[^a-z0-9_]+`)

func sanitizeIdent(s string) string {
	return identPattern.ReplaceAllString(strings.ToLower(s), "_")
}

func (s *TenantStore) tableName(collection string) string {
	return sanitizeIdent(collection) + "_" + sanitizeIdent(s.tenant)
}

// Tenant returns the tenant key this store is bound to.
func (s *TenantStore) Tenant() string {
	return s.tenant
}

func (s *TenantStore) EnsureCollection(ctx context.Context, collection string, columns []Column) error {
	table := s.tableName(collection)

	cols := make([]string, 0, len(columns)+2)
	cols = append(cols, "id bigserial PRIMARY KEY")
	for _, c := range columns {
		cols = append(cols, fmt.Sprintf("%s %s", sanitizeIdent(c.Name), c.Type))
	}
	cols = append(cols, fmt.Sprintf("embedding vector(%d)", embedding.Dimension))

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", "))
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("ensure collection %s: %w", table, err)
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)",
		table, table,
	)
	if err := s.db.WithContext(ctx).Exec(idx).Error; err != nil {
		return fmt.Errorf("index collection %s: %w", table, err)
	}
	return nil
}

func (s *TenantStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	return s.db.WithContext(ctx).Migrator().HasTable(s.tableName(collection)), nil
}

func (s *TenantStore) DropCollection(ctx context.Context, collection string) error {
	table := s.tableName(collection)
	if err := s.db.WithContext(ctx).Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
		return fmt.Errorf("drop collection %s: %w", table, err)
	}
	return nil
}

func (s *TenantStore) Insert(ctx context.Context, collection string, fields map[string]interface{}, vec []float32) error {
	row := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		row[sanitizeIdent(k)] = v
	}
	row["embedding"] = pgvector.NewVector(vec)

	if err := s.db.WithContext(ctx).Table(s.tableName(collection)).Create(&row).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", s.tableName(collection), err)
	}
	return nil
}

func (s *TenantStore) Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []map[string]interface{}
	q := s.db.WithContext(ctx).Table(s.tableName(collection)).Omit("embedding").Limit(limit)
	for k, v := range filter {
		q = q.Where(sanitizeIdent(k)+" = ?", v)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", s.tableName(collection), err)
	}
	return rows, nil
}

func (s *TenantStore) Update(ctx context.Context, collection string, id int64, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		updates[sanitizeIdent(k)] = v
	}
	err := s.db.WithContext(ctx).
		Table(s.tableName(collection)).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update %s id=%d: %w", s.tableName(collection), id, err)
	}
	return nil
}

func (s *TenantStore) Search(ctx context.Context, collection string, vec []float32, limit int, minScore float64) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	queryVector := pgvector.NewVector(vec)

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query) yields the similarity score.
	var rows []map[string]interface{}
	err := s.db.WithContext(ctx).
		Table(s.tableName(collection)).
		Select("*, 1 - (embedding <=> ?) AS score", queryVector).
		Where("1 - (embedding <=> ?) >= ?", queryVector, minScore).
		Order("score DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.tableName(collection), err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		score, _ := row["score"].(float64)
		delete(row, "score")
		delete(row, "embedding")
		hits = append(hits, Hit{Fields: row, Score: score})
	}
	return hits, nil
}
