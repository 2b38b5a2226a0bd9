package controller

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"

	"docuagent-be/internal/dto"
	"docuagent-be/internal/pkg/serverutils"
	"docuagent-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	Vote(ctx *fiber.Ctx) error
	ClearMemories(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService   service.IChatService
	adapter       *service.StreamAdapter
	defaultTenant string
}

func NewChatController(chatService service.IChatService, adapter *service.StreamAdapter, defaultTenant string) IChatController {
	return &chatController{
		chatService:   chatService,
		adapter:       adapter,
		defaultTenant: defaultTenant,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)
	r.Post("/chat/vote", c.Vote)
	r.Delete("/chat/memories", serverutils.JwtMiddleware, c.ClearMemories)
}

func (c *chatController) tenant(ctx *fiber.Ctx) string {
	if t := ctx.Get("X-Tenant"); t != "" {
		return t
	}
	return c.defaultTenant
}

// Chat streams the answer as an incrementally flushed JSON object. Request
// validation failures surface as regular HTTP errors; once streaming starts,
// failures terminate the body with the fixed error fragment instead.
func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	tenant := c.tenant(ctx)
	c.chatService.EnsureSession(tenant, &req)

	// The workflow outlives this handler; its lifetime is bound to the
	// stream writer, not to the fasthttp request context.
	streamCtx, cancel := context.WithCancel(context.Background())
	events := c.chatService.Stream(streamCtx, tenant, &req)

	sessionId, threadId := req.SessionId, req.ThreadId
	adapter := c.adapter

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		adapter.Pipe(w, sessionId, threadId, events, cancel)
		for range events {
		}
	})
	return nil
}

func (c *chatController) Vote(ctx *fiber.Ctx) error {
	var req dto.VoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ok := c.chatService.Vote(ctx.Context(), c.tenant(ctx), &req)
	if !ok {
		return ctx.Status(fiber.StatusNotFound).
			JSON(serverutils.ErrorResponse(fiber.StatusNotFound, "No memory found for response_id"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Vote recorded", dto.VoteResponse{Success: true}))
}

func (c *chatController) ClearMemories(ctx *fiber.Ctx) error {
	cleared := c.chatService.ClearMemories(ctx.Context(), c.tenant(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Memories cleared", dto.ClearMemoriesResponse{Cleared: cleared}))
}
