package controller

import (
	"errors"
	"fmt"
	"strings"

	"ai-pdfchat-client/internal/devserver"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/pkg/serverutils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	ListSessions(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	RenameSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	SaveMessage(ctx *fiber.Ctx) error
}

type chatController struct {
	store    *devserver.Store
	validate *validator.Validate
}

func NewChatController(store *devserver.Store) IChatController {
	return &chatController{store: store, validate: validator.New()}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/auth/chat", auth)
	h.Get("/sessions", c.ListSessions)
	h.Post("/sessions", c.CreateSession)
	h.Put("/sessions/:id/name", c.RenameSession)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Get("/sessions/:id/messages", c.GetMessages)
	h.Post("/messages", c.SaveMessage)
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	return ctx.JSON(c.store.ListSessions(serverutils.Subject(ctx)))
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	return ctx.JSON(c.store.CreateSession(serverutils.Subject(ctx)))
}

// RenameSession takes the new name from the new_name query parameter, or
// from the JSON body when the parameter is absent.
func (c *chatController) RenameSession(ctx *fiber.Ctx) error {
	name := ctx.Query("new_name")
	if name == "" && len(ctx.Body()) > 0 {
		var req dto.RenameSessionRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		name = req.NewName
	}
	if strings.TrimSpace(name) == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "new_name is required")
	}

	if err := c.store.Rename(serverutils.Subject(ctx), ctx.Params("id"), name); err != nil {
		return storeError(err)
	}
	return ctx.JSON(fiber.Map{"message": "Session name updated"})
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.store.Delete(serverutils.Subject(ctx), id); err != nil {
		return storeError(err)
	}
	return ctx.JSON(fiber.Map{"message": fmt.Sprintf("Session %s deleted successfully", id)})
}

func (c *chatController) GetMessages(ctx *fiber.Ctx) error {
	messages, err := c.store.Messages(serverutils.Subject(ctx), ctx.Params("id"))
	if err != nil {
		return storeError(err)
	}
	return ctx.JSON(messages)
}

func (c *chatController) SaveMessage(ctx *fiber.Ctx) error {
	var req dto.SaveMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if err := c.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	id, err := c.store.SaveMessage(serverutils.Subject(ctx), &req)
	if err != nil {
		return storeError(err)
	}
	return ctx.JSON(fiber.Map{"id": id})
}

func storeError(err error) error {
	switch {
	case errors.Is(err, devserver.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	case errors.Is(err, devserver.ErrAccessDenied):
		return fiber.NewError(fiber.StatusForbidden, "Invalid session or access denied")
	default:
		return err
	}
}
