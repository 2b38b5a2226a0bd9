package service

import (
	"context"
	"encoding/json"

	"docuagent-be/internal/dto"
	"docuagent-be/internal/pkg/logger"
	"docuagent-be/internal/repository/contract"
	"docuagent-be/internal/repository/specification"
	"docuagent-be/pkg/embedding"
	"docuagent-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// Embedding input is bounded to the first chunk of title plus content.
const (
	embedChunkSize = 6000
	embedOverlap   = 200
)

// consumerService embeds ingested documents off the request path.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	repo              contract.DocumentRepository
	embeddingProvider embedding.EmbeddingProvider
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	repo contract.DocumentRepository,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		repo:              repo,
		embeddingProvider: embeddingProvider,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite retry.
		msg.Ack()
		return
	}

	doc, err := cs.repo.FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		cs.log.Error("consumer", "failed to load document", map[string]interface{}{
			"document_id": payload.DocumentId.String(), "error": err.Error(),
		})
		msg.Nack()
		return
	}
	if doc == nil {
		// Deleted before embedding ran.
		msg.Ack()
		return
	}

	content := utils.SplitText(doc.Title+"\n\n"+doc.Content, embedChunkSize, embedOverlap)[0]
	res, err := cs.embeddingProvider.Generate(content, "retrieval_document")
	if err != nil {
		cs.log.Error("consumer", "failed to generate embedding", map[string]interface{}{
			"document_id": doc.Id.String(), "error": err.Error(),
		})
		msg.Nack()
		return
	}

	if err := cs.repo.UpdateEmbedding(ctx, doc.Id, res.Embedding.Values); err != nil {
		cs.log.Error("consumer", "failed to store embedding", map[string]interface{}{
			"document_id": doc.Id.String(), "error": err.Error(),
		})
		msg.Nack()
		return
	}

	cs.log.Info("consumer", "document embedded", map[string]interface{}{
		"document_id": doc.Id.String(), "tenant": doc.Tenant,
	})
	msg.Ack()
}
