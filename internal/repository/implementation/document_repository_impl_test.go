package implementation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docuagent-be/internal/entity"
	"docuagent-be/internal/mapper"
)

// dryRunDB builds statements without a live connection so generated SQL can
// be inspected.
func dryRunDB(t *testing.T) (*gorm.DB, *capturedSQL) {
	t.Helper()

	db, err := gorm.Open(postgres.Open("host=localhost user=doc dbname=doc"), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	captured := &capturedSQL{}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("capture_create", func(tx *gorm.DB) {
		captured.create = tx.Statement.SQL.String()
	}))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("capture_update", func(tx *gorm.DB) {
		captured.update = tx.Statement.SQL.String()
	}))
	return db, captured
}

type capturedSQL struct {
	create string
	update string
}

func TestMapperLeavesEmbeddingUnset(t *testing.T) {
	m := mapper.NewDocumentMapper().ToModel(&entity.Document{
		Id:     uuid.New(),
		Title:  "roadmap",
		Tenant: "acme",
	})
	assert.Nil(t, m.Embedding, "new documents carry no vector until the consumer computes one")
}

func TestCreateNeverWritesEmbeddingColumn(t *testing.T) {
	db, captured := dryRunDB(t)
	repo := NewDocumentRepository(db)

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     "roadmap",
		Content:   "q3 plans",
		Status:    "open",
		Tenant:    "acme",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), doc))

	require.NotEmpty(t, captured.create)
	assert.NotContains(t, strings.ToLower(captured.create), "embedding")
}

func TestUpdateNeverWritesEmbeddingColumn(t *testing.T) {
	db, captured := dryRunDB(t)
	repo := NewDocumentRepository(db)

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     "roadmap",
		Content:   "q3 plans, revised",
		Status:    "open",
		Tenant:    "acme",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Update(context.Background(), doc))

	require.NotEmpty(t, captured.update)
	assert.NotContains(t, strings.ToLower(captured.update), "embedding",
		"full-row saves must not clobber the consumer-computed vector")
}
