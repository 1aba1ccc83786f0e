package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
)

// GroupHandler handles HTTP requests related to study groups
type GroupHandler struct {
	groupRepository repositories.GroupRepository
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupRepo repositories.GroupRepository) *GroupHandler {
	return &GroupHandler{groupRepository: groupRepo}
}

// RegisterGroupRoutes registers group routes
func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.GET("/groups", h.ListMyGroups)
	g.POST("/groups", h.CreateGroup)
	g.POST("/groups/join", h.JoinGroup)
	g.GET("/groups/:id", h.GetGroup)
}

// ListMyGroups returns the caller's groups, newest first
func (h *GroupHandler) ListMyGroups(c echo.Context) error {
	groups, err := h.groupRepository.FetchMyGroups(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

// CreateGroup creates a group owned by the caller
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req models.CreateGroupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	id, err := h.groupRepository.CreateGroup(ctx, middleware.CallerFrom(c), req)
	if err != nil {
		return httpError(err)
	}
	group, err := h.groupRepository.GetGroupByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, group)
}

// JoinGroup adds the caller to the group with the given join code
func (h *GroupHandler) JoinGroup(c echo.Context) error {
	var req models.JoinGroupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id, err := h.groupRepository.JoinGroupByCode(c.Request().Context(), middleware.CallerFrom(c), req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// GetGroup returns a single group to one of its members
func (h *GroupHandler) GetGroup(c echo.Context) error {
	group, err := h.groupRepository.RequireMember(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, group)
}
