package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
)

// ChatHandler handles posting group and direct messages. Reading happens over
// the live WebSocket views.
type ChatHandler struct {
	groupRepository      repositories.GroupRepository
	chatRepository       repositories.ChatRepository
	directChatRepository repositories.DirectChatRepository
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(groupRepo repositories.GroupRepository, chatRepo repositories.ChatRepository, directRepo repositories.DirectChatRepository) *ChatHandler {
	return &ChatHandler{groupRepository: groupRepo, chatRepository: chatRepo, directChatRepository: directRepo}
}

// RegisterChatRoutes registers chat routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.POST("/groups/:id/messages", h.SendGroupMessage)
	g.POST("/chats/:peer/messages", h.SendDirectMessage)
}

func (h *ChatHandler) SendGroupMessage(c echo.Context) error {
	var req models.SendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := middleware.CallerFrom(c)
	if _, err := h.groupRepository.RequireMember(ctx, caller, c.Param("id")); err != nil {
		return httpError(err)
	}
	id, err := h.chatRepository.SendMessage(ctx, caller, c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *ChatHandler) SendDirectMessage(c echo.Context) error {
	var req models.SendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	caller := middleware.CallerFrom(c)
	peer := c.Param("peer")
	id, err := h.directChatRepository.SendMessage(c.Request().Context(), caller, peer, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":     id,
		"chatId": repositories.ChatIDFor(caller.UID, peer),
	})
}
