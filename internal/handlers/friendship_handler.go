package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
)

// FriendshipHandler handles HTTP requests related to friend requests and friends
type FriendshipHandler struct {
	friendshipRepository repositories.FriendshipRepository
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friendshipRepo repositories.FriendshipRepository) *FriendshipHandler {
	return &FriendshipHandler{friendshipRepository: friendshipRepo}
}

// RegisterFriendshipRoutes registers friendship routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/requests", h.SendFriendRequest)
	g.GET("/friends/requests/pending", h.PendingRequests)
	g.POST("/friends/requests/:id/accept", h.AcceptFriendRequest)
	g.POST("/friends/requests/:id/decline", h.DeclineFriendRequest)
	g.GET("/friends", h.ListFriends)
}

// SendFriendRequest sends a friend request to a user given by uid or email
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	var req models.CreateFriendRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	toUID := req.ToUID
	if toUID == "" {
		uid, err := h.friendshipRepository.FindUserByEmail(ctx, req.Email)
		if err != nil {
			return httpError(err)
		}
		toUID = uid
	}

	id, err := h.friendshipRepository.SendFriendRequest(ctx, middleware.CallerFrom(c), toUID)
	if err != nil {
		return httpError(err)
	}
	if id == "" {
		// request to oneself
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// PendingRequests lists requests addressed to the caller that are still pending
func (h *FriendshipHandler) PendingRequests(c echo.Context) error {
	requests, err := h.friendshipRepository.PendingRequests(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, requests)
}

// AcceptFriendRequest accepts a pending request and creates both friend edges
func (h *FriendshipHandler) AcceptFriendRequest(c echo.Context) error {
	var req models.AcceptFriendRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := h.friendshipRepository.AcceptRequest(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"), req.FromUID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": models.FriendRequestAccepted})
}

// DeclineFriendRequest declines a pending request
func (h *FriendshipHandler) DeclineFriendRequest(c echo.Context) error {
	err := h.friendshipRepository.DeclineRequest(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": models.FriendRequestDeclined})
}

// ListFriends lists the caller's friends
func (h *FriendshipHandler) ListFriends(c echo.Context) error {
	friends, err := h.friendshipRepository.ListFriends(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, friends)
}
