package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"docuagent-be/internal/dto"
	"docuagent-be/internal/entity"
	"docuagent-be/internal/pkg/logger"
	"docuagent-be/internal/repository/unitofwork"
	"docuagent-be/pkg/events"
)

type IDocumentService interface {
	Ingest(ctx context.Context, tenant string, req *dto.IngestDocumentRequest) (*dto.DocumentResponse, error)
}

// documentService persists ingested documents and hands them to the async
// embedding pipeline. The OCR stage lives outside this service; it posts its
// structured output here.
type documentService struct {
	repos     unitofwork.RepositoryFactory
	publisher IPublisherService
	events    EventPublisher
	log       logger.ILogger
}

// EventPublisher mirrors the NATS publisher seam; may be nil.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

func NewDocumentService(
	repos unitofwork.RepositoryFactory,
	publisher IPublisherService,
	eventsPub EventPublisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		repos:     repos,
		publisher: publisher,
		events:    eventsPub,
		log:       log,
	}
}

func (s *documentService) Ingest(ctx context.Context, tenant string, req *dto.IngestDocumentRequest) (*dto.DocumentResponse, error) {
	status := req.Status
	if status == "" {
		status = "open"
	}

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		Status:    status,
		Priority:  req.Priority,
		Assignee:  req.Assignee,
		Tenant:    tenant,
		CreatedAt: time.Now(),
	}
	uow := s.repos.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	// Embedding happens asynchronously; a publish failure leaves the
	// document searchable by text only.
	payload, err := json.Marshal(dto.PublishEmbedDocumentMessage{DocumentId: doc.Id})
	if err == nil {
		err = s.publisher.Publish(ctx, payload)
	}
	if err != nil {
		s.log.Error("document", "failed to enqueue embedding", map[string]interface{}{
			"document_id": doc.Id.String(), "error": err.Error(),
		})
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, events.NewDocumentIngested(tenant, doc.Id.String())); err != nil {
			s.log.Warn("document", "event publish failed", map[string]interface{}{
				"document_id": doc.Id.String(), "error": err.Error(),
			})
		}
	}

	return &dto.DocumentResponse{
		Id:        doc.Id,
		Title:     doc.Title,
		Status:    doc.Status,
		Priority:  doc.Priority,
		Assignee:  doc.Assignee,
		CreatedAt: doc.CreatedAt,
	}, nil
}
