package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"docuagent-be/internal/entity"
	"docuagent-be/internal/repository/specification"
	"docuagent-be/internal/repository/unitofwork"
	"docuagent-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())
	assert.NotNil(t, uow.DocumentRepository())

	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	t.Run("Document round trip", func(t *testing.T) {
		ctx := context.Background()
		repo := uow.DocumentRepository()

		doc := &entity.Document{
			Id:      uuid.New(),
			Title:   "integration test document",
			Content: "created by the gorm integration test",
			Status:  "open",
			Tenant:  "integration-test",
		}
		require.NoError(t, repo.Create(ctx, doc))
		defer func() {
			_ = repo.Delete(ctx, doc.Id)
		}()

		found, err := repo.FindOne(ctx, specification.ByID{ID: doc.Id})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, doc.Title, found.Title)

		count, err := repo.Count(ctx, specification.ByTenant{Tenant: "integration-test"})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))
	})

	t.Run("Transaction rollback leaves no row", func(t *testing.T) {
		ctx := context.Background()
		txUow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, txUow.Begin(ctx))

		doc := &entity.Document{
			Id:     uuid.New(),
			Title:  "rolled back document",
			Tenant: "integration-test",
		}
		require.NoError(t, txUow.DocumentRepository().Create(ctx, doc))
		require.NoError(t, txUow.Rollback())

		found, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id})
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
