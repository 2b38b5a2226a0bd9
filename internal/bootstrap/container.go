package bootstrap

import (
	"log"

	"docuagent-be/internal/config"
	"docuagent-be/internal/controller"
	"docuagent-be/internal/pkg/logger"
	"docuagent-be/internal/repository/implementation"
	repoMemory "docuagent-be/internal/repository/memory"
	"docuagent-be/internal/repository/unitofwork"
	"docuagent-be/internal/service"
	"docuagent-be/pkg/embedding"
	"docuagent-be/pkg/embedding/jina"
	"docuagent-be/pkg/llm"
	"docuagent-be/pkg/llm/factory"
	"docuagent-be/pkg/memory"
	"docuagent-be/pkg/vectorstore"

	pktNats "docuagent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaAPIKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbedModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	}

	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		baseURL = cfg.Ai.OpenAIBaseURL
	}

	planner, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Ai.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Answer generation may use a stronger model than planning.
	answerer := planner
	if cfg.Ai.LLMSuperiorModel != "" && cfg.Ai.LLMSuperiorModel != cfg.Ai.LLMModel {
		answerer, err = factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMSuperiorModel, baseURL, cfg.Ai.OpenAIAPIKey)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize superior LLM Provider: %v", err)
		}
		log.Printf("[INFO] Using superior LLM model for answers: %s", cfg.Ai.LLMSuperiorModel)
	}
	planner = llm.WithAudit(planner, llmLogger)
	answerer = llm.WithAudit(answerer, llmLogger)

	// 4. Infrastructure
	var eventsPub memory.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventsPub = natsPub
	}

	pool := vectorstore.NewPool(vectorstore.SharedDB(db))
	docRepo := implementation.NewDocumentRepository(db)
	repoFactory := unitofwork.NewRepositoryFactory(db)
	sessionRepo := repoMemory.NewSessionRepository()

	// 5. Services
	publisherService := service.NewPublisherService(cfg.App.EmbedDocumentTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.EmbedDocumentTopic,
		docRepo,
		embeddingProvider,
		sysLogger,
	)

	chatService := service.NewChatService(
		pool,
		embeddingProvider,
		planner,
		answerer,
		docRepo,
		eventsPub,
		sessionRepo,
		cfg.Memory.SearchLimit,
		cfg.Memory.MinScore,
		sysLogger,
	)
	documentService := service.NewDocumentService(repoFactory, publisherService, eventsPub, sysLogger)
	streamAdapter := service.NewStreamAdapter(sysLogger)

	// 6. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService, streamAdapter, cfg.Memory.DefaultTenant),
		DocumentController: controller.NewDocumentController(documentService, cfg.Memory.DefaultTenant),

		ConsumerService: consumerService,
	}
}
