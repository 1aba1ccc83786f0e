package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
)

// UserHandler handles profile requests
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterUserRoutes registers profile routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/profile", h.GetMyProfile)
	g.PUT("/profile", h.ReplaceProfile)
	g.PATCH("/profile", h.UpdateProfile)
	g.GET("/users/:uid", h.GetProfile)
}

// GetMyProfile returns the caller's profile, creating it on first access
func (h *UserHandler) GetMyProfile(c echo.Context) error {
	uid, err := middleware.CallerFrom(c).Require()
	if err != nil {
		return httpError(err)
	}
	profile, err := h.userRepository.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ReplaceProfile overwrites every editable field of the caller's profile
func (h *UserHandler) ReplaceProfile(c echo.Context) error {
	uid, err := middleware.CallerFrom(c).Require()
	if err != nil {
		return httpError(err)
	}
	var req models.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	profile, err := h.userRepository.UpsertProfile(c.Request().Context(), uid, req.Profile())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile changes only the fields present in the body
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := middleware.CallerFrom(c).Require()
	if err != nil {
		return httpError(err)
	}
	var req models.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No fields to update")
	}
	profile, err := h.userRepository.UpdateFields(c.Request().Context(), uid, fields)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// GetProfile returns a user's profile. Only the caller's own profile is
// created on demand.
func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := middleware.CallerFrom(c).Require()
	if err != nil {
		return httpError(err)
	}
	ctx := c.Request().Context()
	var profile *models.UserProfile
	if target := c.Param("uid"); target == uid {
		profile, err = h.userRepository.GetProfile(ctx, uid)
	} else {
		profile, err = h.userRepository.FindProfile(ctx, target)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}
