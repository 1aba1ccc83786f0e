package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/screens"
	"github.com/unicollab/backend/internal/session"
)

// httpError maps repository errors onto HTTP errors with a user-facing message.
func httpError(err error) error {
	var verr *repositories.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, session.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, screens.UserMessage(err))
	case errors.Is(err, repositories.ErrInvalidGroupCode),
		errors.Is(err, repositories.ErrGroupNotFound):
		return echo.NewHTTPError(http.StatusNotFound, screens.UserMessage(err))
	case errors.Is(err, repositories.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, repositories.ErrFriendRequestNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Tournament not found")
	case errors.Is(err, repositories.ErrNotGroupMember):
		return echo.NewHTTPError(http.StatusForbidden, screens.UserMessage(err))
	case errors.Is(err, repositories.ErrNotRecipient):
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this friend request")
	case errors.Is(err, repositories.ErrFriendRequestResolved):
		return echo.NewHTTPError(http.StatusConflict, "Friend request was already answered")
	case errors.Is(err, repositories.ErrAccountExists):
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	case errors.Is(err, docstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, repositories.ErrJoinCodeExhausted):
		return echo.NewHTTPError(http.StatusServiceUnavailable, screens.UserMessage(err))
	}

	slog.Error("request failed", "error", err)
	switch msg := screens.UserMessage(err); msg {
	case screens.MsgNetwork:
		return echo.NewHTTPError(http.StatusServiceUnavailable, msg)
	case screens.MsgPermission:
		return echo.NewHTTPError(http.StatusForbidden, msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, screens.MsgGeneric)
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
