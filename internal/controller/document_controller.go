package controller

import (
	"github.com/gofiber/fiber/v2"

	"docuagent-be/internal/dto"
	"docuagent-be/internal/pkg/serverutils"
	"docuagent-be/internal/service"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
	defaultTenant   string
}

func NewDocumentController(documentService service.IDocumentService, defaultTenant string) IDocumentController {
	return &documentController{
		documentService: documentService,
		defaultTenant:   defaultTenant,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api/v1")
	h.Post("/documents", c.Ingest)
}

func (c *documentController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	tenant := ctx.Get("X-Tenant")
	if tenant == "" {
		tenant = c.defaultTenant
	}

	res, err := c.documentService.Ingest(ctx.Context(), tenant, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Document ingested", res))
}
